// Package session holds the per-editor state: one working tree the UI
// mutates, one snapshot the differ uses as baseline. A single editor owns
// both; there is no cross-editor conflict detection (last write wins).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/mbolis/survey-editor/diff"
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/plan"
	"github.com/mbolis/survey-editor/reconcile"
	"github.com/mbolis/survey-editor/upstream"
	"github.com/mbolis/survey-editor/validate"
)

// Platform is everything the editor needs from the survey backend.
type Platform interface {
	reconcile.Backend

	GetSurvey(ctx context.Context, surveyID int) (*upstream.Survey, error)
	CreateSurvey(ctx context.Context, name, surveyType, description string) (int, error)
	UpdateSurvey(ctx context.Context, surveyID int, name, surveyType, description string) error
	DeleteSection(ctx context.Context, sectionID int) error
	DeleteEntry(ctx context.Context, entryID int) error
	ReorderSection(ctx context.Context, sectionID, newPosition int) error
	ReorderEntry(ctx context.Context, entryID, newPosition int) error
	ReorderChoice(ctx context.Context, entryID, choiceID, newPosition int) error
	ReorderGridRow(ctx context.Context, entryID, rowID, newPosition int) error
}

type Session struct {
	ID        string         `json:"id"`
	Working   *model.Survey  `json:"working"`
	Snapshot  *model.Survey  `json:"snapshot"`
	Orphans   []model.Orphan `json:"orphans,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`

	mu sync.Mutex
}

// SaveResult is what one save hands back to the UI: either "nothing to
// do", or the per-operation outcome counts of a reconciliation run.
type SaveResult struct {
	NoChanges bool              `json:"noChanges,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Report    *reconcile.Report `json:"-"`
}

// Save runs the full pipeline: renumber and normalize the working tree,
// validate it, detect changes against the snapshot, plan, execute.
// A validation error aborts before any network call. Partial failures come
// back inside the result, not as an error: the failed nodes stay dirty in
// the working tree and will be re-detected on the next save.
func (s *Session) Save(ctx context.Context, platform Platform) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Working.Renumber()
	for _, sec := range s.Working.Sections {
		for _, e := range sec.Entries {
			e.NormalizeRefs()
		}
	}

	if err := validate.Survey(s.Working); err != nil {
		return nil, err
	}

	// survey-level fields reconcile with a single update call, ahead of the
	// tree operations
	metaChanged := s.Working.Name != s.Snapshot.Name ||
		s.Working.Type != s.Snapshot.Type ||
		s.Working.Description != s.Snapshot.Description
	if metaChanged {
		err := platform.UpdateSurvey(ctx, s.Working.ID, s.Working.Name, string(s.Working.Type), s.Working.Description)
		if err != nil {
			return nil, err
		}
		s.Snapshot.Name = s.Working.Name
		s.Snapshot.Type = s.Working.Type
		s.Snapshot.Description = s.Working.Description
		s.touch()
	}

	cs := diff.Detect(s.Working, s.Snapshot)
	if cs.Empty() {
		if metaChanged {
			return &SaveResult{Summary: "Survey details updated"}, nil
		}
		return &SaveResult{NoChanges: true, Summary: "No changes to save"}, nil
	}

	p := plan.Build(cs, s.Working)
	report := reconcile.NewExecutor(platform).Execute(ctx, p, s.Working, s.Snapshot)
	s.touch()

	log.Infof("session.save: survey %d: %s", s.Working.ID, report.Summary())
	return &SaveResult{Summary: report.Summary(), Report: report}, nil
}

// Discard resets the working tree to the last synced state.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Working = s.Snapshot.Clone()
	s.touch()
}

// Replace swaps in a working tree pushed by the UI. The snapshot is
// untouched: it only ever moves through successful persistence.
func (s *Session) Replace(working *model.Survey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	working.ID = s.Snapshot.ID
	s.Working = working
	s.touch()
}

// View returns deep copies for rendering, safe to serialize concurrently.
func (s *Session) View() (working *model.Survey, orphans []model.Orphan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Working.Clone(), s.Orphans
}

// DeleteSection removes a section immediately: the delete call goes out
// right away for persisted sections, then both trees drop the node. Fails
// upstream if the survey already has responses.
func (s *Session) DeleteSection(ctx context.Context, platform Platform, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.Working.Sections) {
		return errNotFound("section")
	}
	sec := s.Working.Sections[index]
	if sec.Persisted() {
		if err := platform.DeleteSection(ctx, sec.ServerID); err != nil {
			return err
		}
		s.dropSnapshotSection(sec.ServerID)
	}
	s.Working.Sections = append(s.Working.Sections[:index], s.Working.Sections[index+1:]...)
	s.touch()
	return nil
}

// DeleteEntry removes a question immediately. Upstream cascades the delete
// to the entry's follow-ups.
func (s *Session) DeleteEntry(ctx context.Context, platform Platform, path diff.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := path.SectionIn(s.Working)
	entry := path.EntryIn(s.Working)
	if sec == nil || entry == nil {
		return errNotFound("entry")
	}
	if entry.Persisted() {
		if err := platform.DeleteEntry(ctx, entry.ServerID); err != nil {
			return err
		}
		s.dropSnapshotEntry(sec.ServerID, entry.ServerID)
	}
	sec.Entries = append(sec.Entries[:path.Entry], sec.Entries[path.Entry+1:]...)
	s.touch()
	return nil
}

// DeleteChoice removes a choice immediately.
func (s *Session) DeleteChoice(ctx context.Context, platform Platform, path diff.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := path.EntryIn(s.Working)
	choice := path.ChoiceIn(s.Working)
	if entry == nil || choice == nil {
		return errNotFound("choice")
	}
	if choice.Persisted() && entry.Persisted() {
		if err := platform.DeleteChoice(ctx, entry.ServerID, choice.ServerID); err != nil {
			return err
		}
		s.Snapshot.RemoveChoice(entry.ServerID, choice.ServerID)
	}
	entry.Choices = append(entry.Choices[:path.Child], entry.Choices[path.Child+1:]...)
	s.touch()
	return nil
}

// DeleteRow removes a grid row immediately.
func (s *Session) DeleteRow(ctx context.Context, platform Platform, path diff.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := path.EntryIn(s.Working)
	row := path.RowIn(s.Working)
	if entry == nil || row == nil {
		return errNotFound("grid row")
	}
	if row.Persisted() && entry.Persisted() {
		if err := platform.DeleteGridRow(ctx, entry.ServerID, row.ServerID); err != nil {
			return err
		}
		s.Snapshot.RemoveRow(entry.ServerID, row.ServerID)
	}
	entry.GridRows = append(entry.GridRows[:path.Child], entry.GridRows[path.Child+1:]...)
	s.touch()
	return nil
}

// ReorderSection moves a section to a new position in the survey. Persisted
// sections are reordered upstream right away; the position sent counts
// persisted siblings only, so unsaved neighbors do not shift server numbering.
func (s *Session) ReorderSection(ctx context.Context, platform Platform, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.Working.Sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errNotFound("section")
	}
	if from == to {
		return nil
	}

	sec := s.Working.Sections[from]
	moved := moveItem(s.Working.Sections, from, to)
	if sec.Persisted() {
		pos := persistedBefore(moved, to, func(other *model.Section) bool { return other.Persisted() })
		if err := platform.ReorderSection(ctx, sec.ServerID, pos); err != nil {
			return err
		}
		s.moveSnapshotSection(sec.ServerID, pos)
	}
	s.Working.Sections = moved
	s.touch()
	return nil
}

// ReorderEntry moves a question within its section.
func (s *Session) ReorderEntry(ctx context.Context, platform Platform, path diff.Path, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := path.SectionIn(s.Working)
	entry := path.EntryIn(s.Working)
	if sec == nil || entry == nil || to < 0 || to >= len(sec.Entries) {
		return errNotFound("entry")
	}
	if path.Entry == to {
		return nil
	}

	moved := moveItem(sec.Entries, path.Entry, to)
	if entry.Persisted() {
		pos := persistedBefore(moved, to, func(e *model.Entry) bool { return e.Persisted() })
		if err := platform.ReorderEntry(ctx, entry.ServerID, pos); err != nil {
			return err
		}
		s.moveSnapshotEntry(sec.ServerID, entry.ServerID, pos)
	}
	sec.Entries = moved
	s.touch()
	return nil
}

// ReorderChoice moves a choice within its question. Order letters are not
// touched here; the next save renumbers them and pushes the new letters as
// plain choice updates.
func (s *Session) ReorderChoice(ctx context.Context, platform Platform, path diff.Path, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := path.EntryIn(s.Working)
	choice := path.ChoiceIn(s.Working)
	if entry == nil || choice == nil || to < 0 || to >= len(entry.Choices) {
		return errNotFound("choice")
	}
	if path.Child == to {
		return nil
	}

	moved := moveItem(entry.Choices, path.Child, to)
	if choice.Persisted() && entry.Persisted() {
		pos := persistedBefore(moved, to, func(c *model.Choice) bool { return c.Persisted() })
		if err := platform.ReorderChoice(ctx, entry.ServerID, choice.ServerID, pos); err != nil {
			return err
		}
		s.moveSnapshotChoice(entry.ServerID, choice.ServerID, pos)
	}
	entry.Choices = moved
	s.touch()
	return nil
}

// ReorderRow moves a grid row within its question.
func (s *Session) ReorderRow(ctx context.Context, platform Platform, path diff.Path, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := path.EntryIn(s.Working)
	row := path.RowIn(s.Working)
	if entry == nil || row == nil || to < 0 || to >= len(entry.GridRows) {
		return errNotFound("grid row")
	}
	if path.Child == to {
		return nil
	}

	moved := moveItem(entry.GridRows, path.Child, to)
	if row.Persisted() && entry.Persisted() {
		pos := persistedBefore(moved, to, func(r *model.GridRow) bool { return r.Persisted() })
		if err := platform.ReorderGridRow(ctx, entry.ServerID, row.ServerID, pos); err != nil {
			return err
		}
		s.moveSnapshotRow(entry.ServerID, row.ServerID, pos)
	}
	entry.GridRows = moved
	s.touch()
	return nil
}

// SetEntryType switches a question's shape locally, installing default
// children for the new type. The old children disappear from the working
// tree only: persisted ones are reconciled as deletes on the next save.
func (s *Session) SetEntryType(path diff.Path, typ model.EntryType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := path.EntryIn(s.Working)
	if entry == nil {
		return errNotFound("entry")
	}
	if !typ.Valid() {
		return errNotFound("entry type")
	}
	if entry.Type == typ {
		return nil
	}

	entry.Type = typ
	entry.Choices = nil
	entry.GridRows = nil
	switch {
	case typ.HasChoices():
		entry.Choices = model.DefaultChoices()
	case typ == model.EntryGrid:
		entry.GridRows = model.DefaultGridRows()
	}
	s.touch()
	return nil
}

func (s *Session) dropSnapshotSection(serverID int) {
	for i, sec := range s.Snapshot.Sections {
		if sec.ServerID == serverID {
			s.Snapshot.Sections = append(s.Snapshot.Sections[:i], s.Snapshot.Sections[i+1:]...)
			return
		}
	}
}

func (s *Session) dropSnapshotEntry(sectionServerID, entryServerID int) {
	sec := s.Snapshot.SectionByServerID(sectionServerID)
	if sec == nil {
		return
	}
	for i, e := range sec.Entries {
		if e.ServerID == entryServerID {
			sec.Entries = append(sec.Entries[:i], sec.Entries[i+1:]...)
			return
		}
	}
}

func (s *Session) moveSnapshotSection(serverID, to int) {
	for i, sec := range s.Snapshot.Sections {
		if sec.ServerID == serverID {
			s.Snapshot.Sections = moveItem(s.Snapshot.Sections, i, clampIndex(to, len(s.Snapshot.Sections)))
			return
		}
	}
}

func (s *Session) moveSnapshotEntry(sectionServerID, entryServerID, to int) {
	sec := s.Snapshot.SectionByServerID(sectionServerID)
	if sec == nil {
		return
	}
	for i, e := range sec.Entries {
		if e.ServerID == entryServerID {
			sec.Entries = moveItem(sec.Entries, i, clampIndex(to, len(sec.Entries)))
			return
		}
	}
}

func (s *Session) moveSnapshotChoice(entryServerID, choiceServerID, to int) {
	entry := s.Snapshot.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	for i, c := range entry.Choices {
		if c.ServerID == choiceServerID {
			entry.Choices = moveItem(entry.Choices, i, clampIndex(to, len(entry.Choices)))
			return
		}
	}
}

func (s *Session) moveSnapshotRow(entryServerID, rowServerID, to int) {
	entry := s.Snapshot.EntryByServerID(entryServerID)
	if entry == nil {
		return
	}
	for i, r := range entry.GridRows {
		if r.ServerID == rowServerID {
			entry.GridRows = moveItem(entry.GridRows, i, clampIndex(to, len(entry.GridRows)))
			return
		}
	}
}

// moveItem returns a copy of items with the element at from re-inserted at to.
func moveItem[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	var blank T
	out = append(out, blank)
	copy(out[to+1:], out[to:])
	out[to] = items[from]
	return out
}

// persistedBefore counts the persisted siblings ahead of index: that count
// is the element's position in the server's own ordering.
func persistedBefore[T any](items []T, index int, persisted func(T) bool) int {
	pos := 0
	for _, it := range items[:index] {
		if persisted(it) {
			pos++
		}
	}
	return pos
}

func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

type errNotFound string

func (e errNotFound) Error() string { return string(e) + " not found" }

// IsNotFound reports whether err is a session-level lookup failure.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}
