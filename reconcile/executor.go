package reconcile

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mbolis/survey-editor/diff"
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/plan"
	"github.com/mbolis/survey-editor/upstream"
)

// ErrDependencyFailed marks an operation skipped because the create or
// update it depended on did not go through.
var ErrDependencyFailed = errors.New("prerequisite operation failed")

type Executor struct {
	backend Backend
}

func NewExecutor(backend Backend) *Executor {
	return &Executor{backend: backend}
}

type outcome struct {
	ids upstream.IDMap
	err error
}

// Execute dispatches the plan. Operations within a wave fire concurrently
// and are awaited together; a failure never cancels its siblings. Each
// success is merged into the snapshot (assigning fresh server ids to both
// trees) before the next wave starts, so dependent operations see
// resolvable ids. Unplannable operations appear in the report as failures
// without any network call.
func (x *Executor) Execute(ctx context.Context, p *plan.Plan, working, snapshot *model.Survey) *Report {
	report := &Report{}

	for _, seqErr := range p.Unplannable {
		report.Failed = append(report.Failed, Failure{
			Op:  plan.Operation{Kind: seqErr.Kind, Path: seqErr.Path},
			Err: seqErr,
		})
	}

	failed := map[diff.Path]bool{}
	for _, wave := range p.Waves {
		outcomes := make([]outcome, len(wave))

		var wg sync.WaitGroup
		for i, op := range wave {
			if op.DependsOn != nil && failed[*op.DependsOn] {
				outcomes[i] = outcome{err: errors.Wrap(ErrDependencyFailed, op.String())}
				continue
			}
			wg.Add(1)
			go func(i int, op plan.Operation) {
				defer wg.Done()
				ids, err := x.dispatch(ctx, op, working, snapshot)
				outcomes[i] = outcome{ids: ids, err: err}
			}(i, op)
		}
		wg.Wait()

		for i, op := range wave {
			if err := outcomes[i].err; err != nil {
				log.Warnf("reconcile.op_failed: %s: %s", op, err)
				report.Failed = append(report.Failed, Failure{Op: op, Err: err})
				failed[op.Path] = true
				continue
			}
			x.apply(op, outcomes[i].ids, working, snapshot)
			report.Succeeded = append(report.Succeeded, op)
		}
	}

	return report
}

// dispatch issues the single API call for op. It only reads the trees:
// merging happens in apply, after the whole wave settled.
func (x *Executor) dispatch(ctx context.Context, op plan.Operation, working, snapshot *model.Survey) (upstream.IDMap, error) {
	switch op.Kind {
	case plan.CreateSections:
		payload := make([]upstream.SectionCreate, 0, len(op.Sections))
		for _, si := range op.Sections {
			payload = append(payload, sectionCreate(working.Sections[si]))
		}
		return x.backend.CreateSections(ctx, working.ID, payload)

	case plan.UpdateSection:
		sec := op.Path.SectionIn(working)
		if sec == nil {
			return nil, errors.Errorf("reconcile.resolve: no section at %s", op)
		}
		return nil, x.backend.UpdateSection(ctx, sec.ServerID, sectionUpdate(sec))

	case plan.CreateEntry:
		sec := op.Path.SectionIn(working)
		entry := op.Path.EntryIn(working)
		if sec == nil || entry == nil {
			return nil, errors.Errorf("reconcile.resolve: no entry at %s", op)
		}
		return x.backend.CreateEntry(ctx, sec.ServerID, entryCreate(entry))

	case plan.UpdateEntry:
		entry := op.Path.EntryIn(working)
		if entry == nil {
			return nil, errors.Errorf("reconcile.resolve: no entry at %s", op)
		}
		snap := snapshot.EntryByServerID(entry.ServerID)
		return nil, x.backend.UpdateEntry(ctx, entry.ServerID, entryUpdate(entry, snap))

	case plan.CreateChoice:
		entry := op.Path.EntryIn(working)
		choice := op.Path.ChoiceIn(working)
		if entry == nil || choice == nil {
			return nil, errors.Errorf("reconcile.resolve: no choice at %s", op)
		}
		return x.backend.CreateChoice(ctx, entry.ServerID, choiceCreate(choice))

	case plan.UpdateChoice:
		entry := op.Path.EntryIn(working)
		choice := op.Path.ChoiceIn(working)
		if entry == nil || choice == nil {
			return nil, errors.Errorf("reconcile.resolve: no choice at %s", op)
		}
		var snap *model.Choice
		if snapEntry := snapshot.EntryByServerID(entry.ServerID); snapEntry != nil {
			snap = snapEntry.ChoiceByServerID(choice.ServerID)
		}
		return nil, x.backend.UpdateChoice(ctx, entry.ServerID, choice.ServerID, choiceUpdate(choice, snap))

	case plan.DeleteChoice:
		return nil, x.backend.DeleteChoice(ctx, op.Delete.EntryServerID, op.Delete.ServerID)

	case plan.CreateRow:
		entry := op.Path.EntryIn(working)
		row := op.Path.RowIn(working)
		if entry == nil || row == nil {
			return nil, errors.Errorf("reconcile.resolve: no grid row at %s", op)
		}
		return x.backend.CreateGridRow(ctx, entry.ServerID, rowCreate(row))

	case plan.UpdateRow:
		entry := op.Path.EntryIn(working)
		row := op.Path.RowIn(working)
		if entry == nil || row == nil {
			return nil, errors.Errorf("reconcile.resolve: no grid row at %s", op)
		}
		var snap *model.GridRow
		if snapEntry := snapshot.EntryByServerID(entry.ServerID); snapEntry != nil {
			snap = snapEntry.RowByServerID(row.ServerID)
		}
		return nil, x.backend.UpdateGridRow(ctx, entry.ServerID, row.ServerID, rowUpdate(row, snap))

	case plan.DeleteRow:
		return nil, x.backend.DeleteGridRow(ctx, op.Delete.EntryServerID, op.Delete.ServerID)

	case plan.CreateFollowUp:
		parent := diff.EntryPath(op.Path.Section, op.Path.Entry).EntryIn(working)
		trigger := op.Path.ChoiceIn(working)
		fu := op.Path.EntryIn(working)
		if parent == nil || trigger == nil || fu == nil {
			return nil, errors.Errorf("reconcile.resolve: no follow-up at %s", op)
		}
		sec := op.Path.SectionIn(working)
		return x.backend.CreateEntry(ctx, sec.ServerID, followUpCreate(fu, parent, trigger, op.RefMode))

	case plan.UnlinkFollowUp:
		return nil, x.backend.UnlinkFollowUp(ctx, op.Unlink.EntryServerID, op.Unlink.ParentServerID, op.Unlink.TriggerIDs)
	}

	return nil, errors.Errorf("reconcile.dispatch: unknown operation kind %q", op.Kind)
}

// apply merges one successful operation into the snapshot and settles the
// working-tree node (server ids, image tri-states, follow-up refs).
func (x *Executor) apply(op plan.Operation, ids upstream.IDMap, working, snapshot *model.Survey) {
	switch op.Kind {
	case plan.CreateSections:
		created := make([]*model.Section, 0, len(op.Sections))
		for _, si := range op.Sections {
			created = append(created, working.Sections[si])
		}
		model.AssignServerIDs(ids, created...)
		for _, sec := range created {
			for _, e := range sec.Entries {
				e.NormalizeRefs()
			}
			sec.SettleImages()
		}
		snapshot.CommitNewSections(created)

	case plan.UpdateSection:
		snapshot.CommitSectionFields(op.Path.SectionIn(working))

	case plan.CreateEntry:
		sec := op.Path.SectionIn(working)
		entry := op.Path.EntryIn(working)
		entry.AssignServerIDs(ids)
		entry.NormalizeRefs()
		entry.SettleImages()
		snapshot.CommitNewEntry(sec.ServerID, entry)

	case plan.UpdateEntry:
		entry := op.Path.EntryIn(working)
		entry.Image = entry.Image.Settled()
		snapshot.CommitEntryFields(entry)

	case plan.CreateChoice:
		entry := op.Path.EntryIn(working)
		choice := op.Path.ChoiceIn(working)
		if id, ok := ids[choice.LocalID]; ok && choice.ServerID == 0 {
			choice.ServerID = id
		}
		entry.NormalizeRefs()
		choice.Image = choice.Image.Settled()
		snapshot.CommitNewChoice(entry.ServerID, choice)

	case plan.UpdateChoice:
		entry := op.Path.EntryIn(working)
		choice := op.Path.ChoiceIn(working)
		choice.Image = choice.Image.Settled()
		snapshot.CommitChoiceFields(entry.ServerID, choice)

	case plan.DeleteChoice:
		snapshot.RemoveChoice(op.Delete.EntryServerID, op.Delete.ServerID)

	case plan.CreateRow:
		entry := op.Path.EntryIn(working)
		row := op.Path.RowIn(working)
		if id, ok := ids[row.LocalID]; ok && row.ServerID == 0 {
			row.ServerID = id
		}
		row.Image = row.Image.Settled()
		snapshot.CommitNewRow(entry.ServerID, row)

	case plan.UpdateRow:
		entry := op.Path.EntryIn(working)
		row := op.Path.RowIn(working)
		row.Image = row.Image.Settled()
		snapshot.CommitRowFields(entry.ServerID, row)

	case plan.DeleteRow:
		snapshot.RemoveRow(op.Delete.EntryServerID, op.Delete.ServerID)

	case plan.CreateFollowUp:
		parent := diff.EntryPath(op.Path.Section, op.Path.Entry).EntryIn(working)
		trigger := op.Path.ChoiceIn(working)
		fu := op.Path.EntryIn(working)
		fu.AssignServerIDs(ids)
		parent.NormalizeRefs()
		fu.SettleImages()
		snapshot.CommitNewFollowUp(parent.ServerID, trigger.ServerID, fu)

	case plan.UnlinkFollowUp:
		snapshot.RemoveFollowUp(op.Unlink.ParentServerID, op.Unlink.EntryServerID)
	}
}
