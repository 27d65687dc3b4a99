// Package plan turns a changeset into an ordered operation list. Operations
// in the same wave have no mutual constraint and may be dispatched
// concurrently; a wave only starts once the previous one has fully settled.
package plan

import (
	"fmt"

	"github.com/mbolis/survey-editor/diff"
	"github.com/mbolis/survey-editor/model"
)

type Kind string

const (
	CreateSections Kind = "create_sections"
	UpdateSection  Kind = "update_section"
	CreateEntry    Kind = "create_entry"
	UpdateEntry    Kind = "update_entry"
	CreateChoice   Kind = "create_choice"
	UpdateChoice   Kind = "update_choice"
	DeleteChoice   Kind = "delete_choice"
	CreateRow      Kind = "create_row"
	UpdateRow      Kind = "update_row"
	DeleteRow      Kind = "delete_row"
	CreateFollowUp Kind = "create_followup"
	UnlinkFollowUp Kind = "unlink_followup"
)

// RefMode states how a follow-up create addresses its parent and trigger:
// by server ids when both already exist, by client ids when both are being
// created in this save.
type RefMode string

const (
	RefServer RefMode = "server"
	RefClient RefMode = "client"
)

type Operation struct {
	Kind Kind
	Path diff.Path

	// CreateSections only: indexes of the new sections in the working tree.
	Sections []int

	// delete and unlink targets are gone from the working tree, so they
	// carry their own ids instead of a resolvable path
	Delete *diff.Deletion
	Unlink *diff.FollowUpRemoval

	TypeChanged bool
	RefMode     RefMode

	// DependsOn names the entry whose create/update must have succeeded
	// before this operation may run. Nil for wave-0 operations.
	DependsOn *diff.Path
}

func (op Operation) String() string {
	return fmt.Sprintf("%s@%d.%d.%d", op.Kind, op.Path.Section, op.Path.Entry, op.Path.Child)
}

// SequencingError marks a dependency combination the planner refuses to
// guess about. It is fatal for the one operation only.
type SequencingError struct {
	Kind   Kind
	Path   diff.Path
	Reason string
}

func (e *SequencingError) Error() string {
	return fmt.Sprintf("cannot sequence %s@%d.%d.%d: %s", e.Kind, e.Path.Section, e.Path.Entry, e.Path.Child, e.Reason)
}

type Plan struct {
	Waves       [][]Operation
	Unplannable []*SequencingError
}

func (p *Plan) Empty() bool {
	return len(p.Unplannable) == 0 && p.OpCount() == 0
}

func (p *Plan) OpCount() (n int) {
	for _, wave := range p.Waves {
		n += len(wave)
	}
	return
}

// Build sequences the changeset. Wave 0 holds everything without
// prerequisites: section updates and bulk creates, entry updates (type
// changes included), deletions, child creates under stable persisted
// entries, independent child updates, unlinks, and follow-up creates whose
// parent and trigger are both server-backed. Wave 1 holds creates that
// need a wave-0 outcome first: replacement children of a type-changed
// entry, and follow-ups of entries created in wave 0.
func Build(cs *diff.ChangeSet, working *model.Survey) *Plan {
	p := &Plan{}
	var wave0, wave1 []Operation

	if len(cs.NewSections) > 0 {
		wave0 = append(wave0, Operation{
			Kind:     CreateSections,
			Path:     diff.SectionPath(cs.NewSections[0]),
			Sections: cs.NewSections,
		})
	}
	for _, si := range cs.SectionUpdates {
		wave0 = append(wave0, Operation{Kind: UpdateSection, Path: diff.SectionPath(si)})
	}

	typeChanged := map[diff.Path]bool{}
	for _, upd := range cs.EntryUpdates {
		wave0 = append(wave0, Operation{Kind: UpdateEntry, Path: upd.Path, TypeChanged: upd.TypeChanged})
		if upd.TypeChanged {
			typeChanged[upd.Path] = true
		}
	}
	for _, upd := range cs.FollowUpUpdates {
		wave0 = append(wave0, Operation{Kind: UpdateEntry, Path: upd.Path, TypeChanged: upd.TypeChanged})
	}

	newEntries := map[diff.Path]bool{}
	for _, path := range cs.NewEntries {
		newEntries[path] = true
		wave0 = append(wave0, Operation{Kind: CreateEntry, Path: path})
	}

	for _, del := range cs.ChoiceDeletes {
		del := del
		wave0 = append(wave0, Operation{Kind: DeleteChoice, Path: del.Path, Delete: &del})
	}
	for _, del := range cs.RowDeletes {
		del := del
		wave0 = append(wave0, Operation{Kind: DeleteRow, Path: del.Path, Delete: &del})
	}

	for _, path := range cs.ChoiceUpdates {
		wave0 = append(wave0, Operation{Kind: UpdateChoice, Path: path})
	}
	for _, path := range cs.RowUpdates {
		wave0 = append(wave0, Operation{Kind: UpdateRow, Path: path})
	}

	for _, rem := range cs.FollowUpRemovals {
		rem := rem
		wave0 = append(wave0, Operation{Kind: UnlinkFollowUp, Path: rem.Path, Unlink: &rem})
	}

	childCreate := func(kind Kind, path diff.Path) {
		entryPath := diff.EntryPath(path.Section, path.Entry)
		if typeChanged[entryPath] {
			// the type switch must land before children of the new shape
			dep := entryPath
			wave1 = append(wave1, Operation{Kind: kind, Path: path, DependsOn: &dep})
			return
		}
		wave0 = append(wave0, Operation{Kind: kind, Path: path})
	}
	for _, path := range cs.NewChoices {
		childCreate(CreateChoice, path)
	}
	for _, path := range cs.NewRows {
		childCreate(CreateRow, path)
	}

	for _, path := range cs.NewFollowUps {
		op, seqErr := planFollowUp(path, working, newEntries)
		if seqErr != nil {
			p.Unplannable = append(p.Unplannable, seqErr)
			continue
		}
		if op.DependsOn != nil {
			wave1 = append(wave1, op)
		} else {
			wave0 = append(wave0, op)
		}
	}

	if len(wave0) > 0 {
		p.Waves = append(p.Waves, wave0)
	}
	if len(wave1) > 0 {
		p.Waves = append(p.Waves, wave1)
	}
	return p
}

func planFollowUp(path diff.Path, working *model.Survey, newEntries map[diff.Path]bool) (Operation, *SequencingError) {
	parentPath := diff.EntryPath(path.Section, path.Entry)
	parent := parentPath.EntryIn(working)
	trigger := path.ChoiceIn(working)
	if parent == nil || trigger == nil {
		return Operation{}, &SequencingError{Kind: CreateFollowUp, Path: path, Reason: "dangling parent or trigger reference"}
	}

	switch {
	case parent.Persisted() && trigger.Persisted():
		return Operation{Kind: CreateFollowUp, Path: path, RefMode: RefServer}, nil

	case !parent.Persisted() && newEntries[parentPath]:
		// parent and trigger both created this save; address them by the
		// client ids sent in the parent's create call
		dep := parentPath
		return Operation{Kind: CreateFollowUp, Path: path, RefMode: RefClient, DependsOn: &dep}, nil

	case parent.Persisted() && !trigger.Persisted():
		return Operation{}, &SequencingError{
			Kind:   CreateFollowUp,
			Path:   path,
			Reason: "parent entry is server-backed but trigger choice is client-only; save the choice first",
		}

	default:
		return Operation{}, &SequencingError{
			Kind:   CreateFollowUp,
			Path:   path,
			Reason: "parent entry is neither persisted nor scheduled for creation",
		}
	}
}
