package model

import (
	"sort"

	"github.com/mbolis/survey-editor/upstream"
)

// AssignServerIDs walks the section subtrees and fills in server ids from a
// create result's client-id map. Nodes that already have a server id are
// left alone.
func AssignServerIDs(ids upstream.IDMap, sections ...*Section) {
	for _, s := range sections {
		if s.ServerID == 0 {
			if id, ok := ids[s.LocalID]; ok {
				s.ServerID = id
			}
		}
		for _, e := range s.Entries {
			e.AssignServerIDs(ids)
		}
	}
}

func (e *Entry) AssignServerIDs(ids upstream.IDMap) {
	if e.ServerID == 0 {
		if id, ok := ids[e.LocalID]; ok {
			e.ServerID = id
		}
	}
	for _, c := range e.Choices {
		if c.ServerID == 0 {
			if id, ok := ids[c.LocalID]; ok {
				c.ServerID = id
			}
		}
		if c.FollowUp != nil {
			c.FollowUp.AssignServerIDs(ids)
		}
	}
	for _, r := range e.GridRows {
		if r.ServerID == 0 {
			if id, ok := ids[r.LocalID]; ok {
				r.ServerID = id
			}
		}
	}
}

// NormalizeRefs upgrades follow-up back-references from local to server
// form once their targets have acquired server ids. Keeps future payloads
// addressing persisted nodes the server way.
func (e *Entry) NormalizeRefs() {
	for _, c := range e.Choices {
		fu := c.FollowUp
		if fu == nil {
			continue
		}
		fu.Parent = e.Ref()
		for i, ref := range fu.Triggers {
			if local, ok := ref.Local(); ok && local == c.LocalID && c.ServerID != 0 {
				fu.Triggers[i] = ServerRef(c.ServerID)
			}
		}
		if len(fu.Triggers) == 0 {
			fu.Triggers = []Ref{c.Ref()}
		}
		fu.NormalizeRefs()
	}
}

// SettleImages folds the entry's pending image edits (its own slot plus
// choices and rows) into persisted form. Nested follow-ups are not touched:
// they settle when their own create lands.
func (e *Entry) SettleImages() {
	e.Image = e.Image.Settled()
	for _, c := range e.Choices {
		c.Image = c.Image.Settled()
	}
	for _, r := range e.GridRows {
		r.Image = r.Image.Settled()
	}
}

// SettleImages settles every entry of the section, follow-ups included.
// Used after a bulk section create, which persists the whole subtree.
func (s *Section) SettleImages() {
	for _, e := range s.Entries {
		e.SettleImages()
		for _, c := range e.Choices {
			if c.FollowUp != nil {
				c.FollowUp.SettleImages()
			}
		}
	}
}

// Settled folds a pending image edit into its persisted form.
func (im Image) Settled() Image {
	switch im.State {
	case ImageReplace:
		return Image{URL: im.Name, State: ImageUnchanged}
	case ImageClear:
		return Image{State: ImageUnchanged}
	}
	return im
}

// The Commit* family merges one successfully persisted node from the
// working tree into the snapshot. Lookups go by server id: the snapshot may
// be positionally offset from the working tree while creates are pending.

func (snap *Survey) CommitSectionFields(sec *Section) {
	target := snap.SectionByServerID(sec.ServerID)
	if target == nil {
		return
	}
	target.Title = sec.Title
	target.Description = sec.Description
	target.Order = sec.Order
}

func (snap *Survey) CommitNewSections(sections []*Section) {
	for _, sec := range sections {
		snap.Sections = append(snap.Sections, sec.Clone())
	}
	sort.SliceStable(snap.Sections, func(i, j int) bool {
		return snap.Sections[i].Order < snap.Sections[j].Order
	})
}

func (snap *Survey) CommitNewEntry(sectionServerID int, e *Entry) {
	target := snap.SectionByServerID(sectionServerID)
	if target == nil {
		return
	}
	target.Entries = append(target.Entries, e.Clone())
	sort.SliceStable(target.Entries, func(i, j int) bool {
		return target.Entries[i].Order < target.Entries[j].Order
	})
}

func (snap *Survey) CommitEntryFields(e *Entry) {
	target := snap.EntryByServerID(e.ServerID)
	if target == nil {
		return
	}
	target.Text = e.Text
	target.Type = e.Type
	target.Order = e.Order
	target.Required = e.Required
	target.FreeTextOption = e.FreeTextOption
	target.Image = e.Image
}

func (snap *Survey) CommitNewChoice(entryServerID int, c *Choice) {
	target := snap.EntryByServerID(entryServerID)
	if target == nil {
		return
	}
	target.Choices = append(target.Choices, c.Clone())
	sort.SliceStable(target.Choices, func(i, j int) bool {
		return target.Choices[i].Order < target.Choices[j].Order
	})
}

func (snap *Survey) CommitChoiceFields(entryServerID int, c *Choice) {
	entry := snap.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	target := entry.ChoiceByServerID(c.ServerID)
	if target == nil {
		return
	}
	target.Text = c.Text
	target.Order = c.Order
	target.AllowFreeText = c.AllowFreeText
	target.Image = c.Image
}

func (snap *Survey) RemoveChoice(entryServerID, choiceServerID int) {
	entry := snap.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	for i, c := range entry.Choices {
		if c.ServerID == choiceServerID {
			entry.Choices = append(entry.Choices[:i], entry.Choices[i+1:]...)
			return
		}
	}
}

func (snap *Survey) CommitNewRow(entryServerID int, r *GridRow) {
	target := snap.EntryByServerID(entryServerID)
	if target == nil {
		return
	}
	target.GridRows = append(target.GridRows, r.Clone())
	sort.SliceStable(target.GridRows, func(i, j int) bool {
		return target.GridRows[i].RowNumber < target.GridRows[j].RowNumber
	})
}

func (snap *Survey) CommitRowFields(entryServerID int, r *GridRow) {
	entry := snap.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	target := entry.RowByServerID(r.ServerID)
	if target == nil {
		return
	}
	target.Text = r.Text
	target.RowNumber = r.RowNumber
	target.Image = r.Image
}

func (snap *Survey) RemoveRow(entryServerID, rowServerID int) {
	entry := snap.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	for i, r := range entry.GridRows {
		if r.ServerID == rowServerID {
			entry.GridRows = append(entry.GridRows[:i], entry.GridRows[i+1:]...)
			return
		}
	}
}

func (snap *Survey) CommitNewFollowUp(parentServerID, triggerServerID int, fu *Entry) {
	parent := snap.EntryByServerID(parentServerID)
	if parent == nil {
		return
	}
	trigger := parent.ChoiceByServerID(triggerServerID)
	if trigger == nil {
		return
	}
	trigger.FollowUp = fu.Clone()
}

func (snap *Survey) RemoveFollowUp(parentServerID, followUpServerID int) {
	parent := snap.EntryByServerID(parentServerID)
	if parent == nil {
		return
	}
	for _, c := range parent.Choices {
		if c.FollowUp != nil && c.FollowUp.ServerID == followUpServerID {
			c.FollowUp = nil
			return
		}
	}
}

func (snap *Survey) EntryByServerID(id int) *Entry {
	for _, s := range snap.Sections {
		if e := s.EntryByServerID(id); e != nil {
			return e
		}
	}
	return nil
}
