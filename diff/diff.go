// Package diff compares the working tree against the snapshot and emits a
// flat changeset grouped by operation kind. Nodes are matched by server id
// once persisted, by structural position before that.
package diff

import "github.com/mbolis/survey-editor/model"

// Path addresses a node in the working tree by structural position.
// Entry and Child are -1 when not applicable; FollowUp selects the
// follow-up entry nested under the addressed choice.
type Path struct {
	Section  int  `json:"section"`
	Entry    int  `json:"entry"`
	Child    int  `json:"child"`
	FollowUp bool `json:"followUp,omitempty"`
}

func SectionPath(s int) Path        { return Path{Section: s, Entry: -1, Child: -1} }
func EntryPath(s, e int) Path       { return Path{Section: s, Entry: e, Child: -1} }
func ChildPath(s, e, c int) Path    { return Path{Section: s, Entry: e, Child: c} }
func FollowUpPath(s, e, c int) Path { return Path{Section: s, Entry: e, Child: c, FollowUp: true} }

// SectionIn resolves the addressed section, or nil if out of range.
func (p Path) SectionIn(sv *model.Survey) *model.Section {
	if p.Section < 0 || p.Section >= len(sv.Sections) {
		return nil
	}
	return sv.Sections[p.Section]
}

// EntryIn resolves the addressed entry. With FollowUp set it resolves the
// follow-up nested under the addressed choice.
func (p Path) EntryIn(sv *model.Survey) *model.Entry {
	s := p.SectionIn(sv)
	if s == nil || p.Entry < 0 || p.Entry >= len(s.Entries) {
		return nil
	}
	e := s.Entries[p.Entry]
	if !p.FollowUp {
		return e
	}
	c := p.choiceOf(e)
	if c == nil {
		return nil
	}
	return c.FollowUp
}

// ChoiceIn resolves the addressed choice.
func (p Path) ChoiceIn(sv *model.Survey) *model.Choice {
	s := p.SectionIn(sv)
	if s == nil || p.Entry < 0 || p.Entry >= len(s.Entries) {
		return nil
	}
	return p.choiceOf(s.Entries[p.Entry])
}

func (p Path) choiceOf(e *model.Entry) *model.Choice {
	if p.Child < 0 || p.Child >= len(e.Choices) {
		return nil
	}
	return e.Choices[p.Child]
}

// RowIn resolves the addressed grid row.
func (p Path) RowIn(sv *model.Survey) *model.GridRow {
	s := p.SectionIn(sv)
	if s == nil || p.Entry < 0 || p.Entry >= len(s.Entries) {
		return nil
	}
	e := s.Entries[p.Entry]
	if p.Child < 0 || p.Child >= len(e.GridRows) {
		return nil
	}
	return e.GridRows[p.Child]
}

type EntryUpdate struct {
	Path        Path
	TypeChanged bool
}

// Deletion records a node present in the snapshot but gone from the working
// tree. Path addresses the owning entry; ByTypeChange marks deletions
// implied by the entry switching shape, which must precede the replacement
// creates.
type Deletion struct {
	Path          Path
	ServerID      int
	EntryServerID int
	ByTypeChange  bool
}

// FollowUpRemoval records a persisted follow-up dropped from the working
// tree; reconciled by an unlink call.
type FollowUpRemoval struct {
	Path           Path // owning choice
	EntryServerID  int  // the follow-up entry itself
	ParentServerID int
	TriggerIDs     []int
}

type ChangeSet struct {
	NewSections    []int
	SectionUpdates []int

	NewEntries   []Path
	EntryUpdates []EntryUpdate

	NewChoices    []Path
	ChoiceUpdates []Path
	ChoiceDeletes []Deletion

	NewRows    []Path
	RowUpdates []Path
	RowDeletes []Deletion

	NewFollowUps     []Path
	FollowUpUpdates  []EntryUpdate
	FollowUpRemovals []FollowUpRemoval
}

func (cs *ChangeSet) Empty() bool {
	return len(cs.NewSections) == 0 &&
		len(cs.SectionUpdates) == 0 &&
		len(cs.NewEntries) == 0 &&
		len(cs.EntryUpdates) == 0 &&
		len(cs.NewChoices) == 0 &&
		len(cs.ChoiceUpdates) == 0 &&
		len(cs.ChoiceDeletes) == 0 &&
		len(cs.NewRows) == 0 &&
		len(cs.RowUpdates) == 0 &&
		len(cs.RowDeletes) == 0 &&
		len(cs.NewFollowUps) == 0 &&
		len(cs.FollowUpUpdates) == 0 &&
		len(cs.FollowUpRemovals) == 0
}

// Detect walks the working tree against the snapshot. New sections are
// reported whole (their nested content rides along in the bulk create, it
// is not decomposed here).
func Detect(working, snapshot *model.Survey) *ChangeSet {
	cs := &ChangeSet{}

	for si, sec := range working.Sections {
		if !sec.Persisted() {
			cs.NewSections = append(cs.NewSections, si)
			continue
		}

		snapSec := snapshot.SectionByServerID(sec.ServerID)
		if snapSec == nil {
			// snapshot lost track of a persisted section; treat as update
			// so the next save rewrites its fields
			cs.SectionUpdates = append(cs.SectionUpdates, si)
		} else if SectionChanged(sec, snapSec) {
			cs.SectionUpdates = append(cs.SectionUpdates, si)
		}

		for ei, entry := range sec.Entries {
			if entry.IsFollowUp {
				continue
			}
			if !entry.Persisted() {
				cs.NewEntries = append(cs.NewEntries, EntryPath(si, ei))
				detectNewEntryFollowUps(cs, si, ei, entry)
				continue
			}

			var snapEntry *model.Entry
			if snapSec != nil {
				snapEntry = snapSec.EntryByServerID(entry.ServerID)
			}
			if snapEntry == nil {
				continue
			}

			detectEntry(cs, si, ei, entry, snapEntry)
		}
	}

	return cs
}

func detectEntry(cs *ChangeSet, si, ei int, entry, snapEntry *model.Entry) {
	typeChanged := entry.Type != snapEntry.Type
	if EntryChanged(entry, snapEntry) {
		cs.EntryUpdates = append(cs.EntryUpdates, EntryUpdate{
			Path:        EntryPath(si, ei),
			TypeChanged: typeChanged,
		})
	}

	detectChoices(cs, si, ei, entry, snapEntry, typeChanged)
	detectRows(cs, si, ei, entry, snapEntry, typeChanged)
}

func detectChoices(cs *ChangeSet, si, ei int, entry, snapEntry *model.Entry, typeChanged bool) {
	for ci, choice := range entry.Choices {
		path := ChildPath(si, ei, ci)
		if !choice.Persisted() {
			cs.NewChoices = append(cs.NewChoices, path)
		} else if snap := snapEntry.ChoiceByServerID(choice.ServerID); snap != nil && ChoiceChanged(choice, snap) {
			cs.ChoiceUpdates = append(cs.ChoiceUpdates, path)
		}

		detectFollowUp(cs, si, ei, ci, entry, snapEntry, choice)
	}

	for _, snap := range snapEntry.Choices {
		if snap.Persisted() && entry.ChoiceByServerID(snap.ServerID) == nil {
			cs.ChoiceDeletes = append(cs.ChoiceDeletes, Deletion{
				Path:          EntryPath(si, ei),
				ServerID:      snap.ServerID,
				EntryServerID: entry.ServerID,
				ByTypeChange:  typeChanged,
			})
		}
	}
}

func detectRows(cs *ChangeSet, si, ei int, entry, snapEntry *model.Entry, typeChanged bool) {
	for ri, row := range entry.GridRows {
		path := ChildPath(si, ei, ri)
		if !row.Persisted() {
			cs.NewRows = append(cs.NewRows, path)
		} else if snap := snapEntry.RowByServerID(row.ServerID); snap != nil && RowChanged(row, snap) {
			cs.RowUpdates = append(cs.RowUpdates, path)
		}
	}

	for _, snap := range snapEntry.GridRows {
		if snap.Persisted() && entry.RowByServerID(snap.ServerID) == nil {
			cs.RowDeletes = append(cs.RowDeletes, Deletion{
				Path:          EntryPath(si, ei),
				ServerID:      snap.ServerID,
				EntryServerID: entry.ServerID,
				ByTypeChange:  typeChanged,
			})
		}
	}
}

func detectFollowUp(cs *ChangeSet, si, ei, ci int, entry, snapEntry *model.Entry, choice *model.Choice) {
	var snapChoice *model.Choice
	if choice.Persisted() {
		snapChoice = snapEntry.ChoiceByServerID(choice.ServerID)
	}

	workFU := choice.FollowUp
	var snapFU *model.Entry
	if snapChoice != nil {
		snapFU = snapChoice.FollowUp
	}

	switch {
	case workFU != nil && !workFU.Persisted():
		cs.NewFollowUps = append(cs.NewFollowUps, FollowUpPath(si, ei, ci))

	case workFU != nil && snapFU != nil:
		if EntryChanged(workFU, snapFU) {
			cs.FollowUpUpdates = append(cs.FollowUpUpdates, EntryUpdate{
				Path:        FollowUpPath(si, ei, ci),
				TypeChanged: workFU.Type != snapFU.Type,
			})
		}

	case workFU == nil && snapFU != nil && snapFU.Persisted():
		var triggers []int
		for _, ref := range snapFU.Triggers {
			if id, ok := ref.Server(); ok {
				triggers = append(triggers, id)
			}
		}
		cs.FollowUpRemovals = append(cs.FollowUpRemovals, FollowUpRemoval{
			Path:           ChildPath(si, ei, ci),
			EntryServerID:  snapFU.ServerID,
			ParentServerID: entry.ServerID,
			TriggerIDs:     triggers,
		})
	}
}

// detectNewEntryFollowUps records follow-ups nested under a brand-new
// entry's choices. The entry create carries its choices, but follow-ups
// are separate entries and need their own create after the parent's.
func detectNewEntryFollowUps(cs *ChangeSet, si, ei int, entry *model.Entry) {
	for ci, choice := range entry.Choices {
		if choice.FollowUp != nil && !choice.FollowUp.Persisted() {
			cs.NewFollowUps = append(cs.NewFollowUps, FollowUpPath(si, ei, ci))
		}
	}
}
