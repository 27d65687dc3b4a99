package reconcile

import (
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/plan"
	"github.com/mbolis/survey-editor/upstream"
)

func attachment(im model.Image) *upstream.Attachment {
	if im.State != model.ImageReplace {
		return nil
	}
	return &upstream.Attachment{Name: im.Name, Data: im.Data}
}

// sectionCreate builds the whole-section bulk payload. Nested follow-ups
// are flattened into the entry list, addressing parent and trigger by the
// client ids used elsewhere in the same payload.
func sectionCreate(sec *model.Section) upstream.SectionCreate {
	out := upstream.SectionCreate{
		ClientID:      sec.LocalID,
		Title:         sec.Title,
		Description:   sec.Description,
		SectionNumber: sec.Order,
	}
	for _, e := range sec.Entries {
		out.Entries = append(out.Entries, entryCreate(e))
		for _, c := range e.Choices {
			if c.FollowUp != nil {
				out.Entries = append(out.Entries, followUpCreate(c.FollowUp, e, c, plan.RefClient))
			}
		}
	}
	return out
}

func entryCreate(e *model.Entry) upstream.EntryCreate {
	out := upstream.EntryCreate{
		ClientID:          e.LocalID,
		Question:          e.Text,
		QuestionType:      string(e.Type),
		QuestionNumber:    e.Order,
		IsRequired:        e.Required,
		HasFreeTextOption: e.FreeTextOption,
		QuestionImage:     attachment(e.Image),
	}
	for _, c := range e.Choices {
		out.Choices = append(out.Choices, choiceCreate(c))
	}
	for _, r := range e.GridRows {
		out.GridRows = append(out.GridRows, rowCreate(r))
	}
	return out
}

func followUpCreate(fu *model.Entry, parent *model.Entry, trigger *model.Choice, mode plan.RefMode) upstream.EntryCreate {
	out := entryCreate(fu)
	out.IsFollowUp = true
	if mode == plan.RefServer {
		out.ParentQuestionID = parent.ServerID
		out.TriggerChoiceIDs = serverTriggers(fu, trigger)
	} else {
		out.ParentQuestionClientID = parent.LocalID
		out.TriggerChoiceClientIDs = clientTriggers(fu, trigger)
	}
	return out
}

func serverTriggers(fu *model.Entry, trigger *model.Choice) []int {
	var ids []int
	for _, ref := range fu.Triggers {
		if id, ok := ref.Server(); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 && trigger.ServerID != 0 {
		ids = []int{trigger.ServerID}
	}
	return ids
}

func clientTriggers(fu *model.Entry, trigger *model.Choice) []string {
	var ids []string
	for _, ref := range fu.Triggers {
		if id, ok := ref.Local(); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []string{trigger.LocalID}
	}
	return ids
}

func choiceCreate(c *model.Choice) upstream.ChoiceCreate {
	return upstream.ChoiceCreate{
		ClientID:     c.LocalID,
		ChoiceText:   c.Text,
		ChoiceOrder:  model.ChoiceLetter(c.Order),
		HasTextInput: c.AllowFreeText,
		ChoiceImage:  attachment(c.Image),
	}
}

func rowCreate(r *model.GridRow) upstream.GridRowCreate {
	return upstream.GridRowCreate{
		ClientID:  r.LocalID,
		RowNumber: r.RowNumber,
		RowText:   r.Text,
		RowImage:  attachment(r.Image),
	}
}

func sectionUpdate(sec *model.Section) upstream.SectionUpdate {
	return upstream.SectionUpdate{
		Title:       sec.Title,
		Description: sec.Description,
	}
}

// entryUpdate builds the partial update: only fields differing from the
// snapshot go out. A nil snapshot sends everything.
func entryUpdate(cur, snap *model.Entry) upstream.EntryUpdate {
	out := upstream.EntryUpdate{}
	if snap == nil || cur.Text != snap.Text {
		out.Question = &cur.Text
	}
	if snap == nil || cur.Type != snap.Type {
		typ := string(cur.Type)
		out.QuestionType = &typ
	}
	if snap == nil || cur.Required != snap.Required {
		out.IsRequired = &cur.Required
	}
	if snap == nil || cur.FreeTextOption != snap.FreeTextOption {
		out.HasFreeTextOption = &cur.FreeTextOption
	}
	switch cur.Image.State {
	case model.ImageReplace:
		out.ImageUpload = attachment(cur.Image)
	case model.ImageClear:
		empty := ""
		out.QuestionImage = &empty
	}
	return out
}

func choiceUpdate(cur, snap *model.Choice) upstream.ChoiceUpdate {
	out := upstream.ChoiceUpdate{}
	if snap == nil || cur.Text != snap.Text {
		out.ChoiceText = &cur.Text
	}
	if snap == nil || cur.Order != snap.Order {
		letter := model.ChoiceLetter(cur.Order)
		out.ChoiceOrder = &letter
	}
	if snap == nil || cur.AllowFreeText != snap.AllowFreeText {
		out.HasTextInput = &cur.AllowFreeText
	}
	switch cur.Image.State {
	case model.ImageReplace:
		out.ImageUpload = attachment(cur.Image)
	case model.ImageClear:
		empty := ""
		out.ChoiceImage = &empty
	}
	return out
}

func rowUpdate(cur, snap *model.GridRow) upstream.GridRowUpdate {
	out := upstream.GridRowUpdate{}
	if snap == nil || cur.Text != snap.Text {
		out.RowText = &cur.Text
	}
	if snap == nil || cur.RowNumber != snap.RowNumber {
		out.RowNumber = &cur.RowNumber
	}
	switch cur.Image.State {
	case model.ImageReplace:
		out.ImageUpload = attachment(cur.Image)
	case model.ImageClear:
		empty := ""
		out.RowImage = &empty
	}
	return out
}
