package diff

import "github.com/mbolis/survey-editor/model"

// SectionChanged compares the fields a section update can carry.
func SectionChanged(cur, snap *model.Section) bool {
	return cur.Title != snap.Title ||
		cur.Description != snap.Description
}

// EntryChanged compares question text, type, flags and the image slot.
// A pending image edit (replace or clear) always counts.
func EntryChanged(cur, snap *model.Entry) bool {
	return cur.Text != snap.Text ||
		cur.Type != snap.Type ||
		cur.Required != snap.Required ||
		cur.FreeTextOption != snap.FreeTextOption ||
		cur.Image.Dirty()
}

func ChoiceChanged(cur, snap *model.Choice) bool {
	return cur.Text != snap.Text ||
		cur.Order != snap.Order ||
		cur.AllowFreeText != snap.AllowFreeText ||
		cur.Image.Dirty()
}

func RowChanged(cur, snap *model.GridRow) bool {
	return cur.Text != snap.Text ||
		cur.RowNumber != snap.RowNumber ||
		cur.Image.Dirty()
}
