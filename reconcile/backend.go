// Package reconcile dispatches a planned operation list against the survey
// backend, wave by wave, and folds every success back into the snapshot.
// Failures are isolated per operation: siblings keep going, the failed
// node's state stays untouched on both trees so a retry re-detects it.
package reconcile

import (
	"context"

	"github.com/mbolis/survey-editor/upstream"
)

// Backend is the slice of the upstream API the executor drives.
// *upstream.Client satisfies it; tests plug in stubs.
type Backend interface {
	CreateSections(ctx context.Context, surveyID int, sections []upstream.SectionCreate) (upstream.IDMap, error)
	UpdateSection(ctx context.Context, sectionID int, upd upstream.SectionUpdate) error

	CreateEntry(ctx context.Context, sectionID int, entry upstream.EntryCreate) (upstream.IDMap, error)
	UpdateEntry(ctx context.Context, entryID int, upd upstream.EntryUpdate) error

	CreateChoice(ctx context.Context, entryID int, ch upstream.ChoiceCreate) (upstream.IDMap, error)
	UpdateChoice(ctx context.Context, entryID, choiceID int, upd upstream.ChoiceUpdate) error
	DeleteChoice(ctx context.Context, entryID, choiceID int) error

	CreateGridRow(ctx context.Context, entryID int, row upstream.GridRowCreate) (upstream.IDMap, error)
	UpdateGridRow(ctx context.Context, entryID, rowID int, upd upstream.GridRowUpdate) error
	DeleteGridRow(ctx context.Context, entryID, rowID int) error

	UnlinkFollowUp(ctx context.Context, entryID, parentID int, triggerIDs []int) error
}
