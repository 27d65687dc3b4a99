package session

import (
	"context"
	"database/sql"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/survey-editor/model"
)

// Store persists edit sessions as draft rows, one JSON blob per session.
// Serialization happens under the session lock via snapshotted fields.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type draftPayload struct {
	Working  *model.Survey  `json:"working"`
	Snapshot *model.Survey  `json:"snapshot"`
	Orphans  []model.Orphan `json:"orphans,omitempty"`
}

func (st *Store) Save(ctx context.Context, s *Session) error {
	s.mu.Lock()
	payload, err := json.Marshal(draftPayload{
		Working:  s.Working,
		Snapshot: s.Snapshot,
		Orphans:  s.Orphans,
	})
	surveyID := s.Working.ID
	updatedAt := s.UpdatedAt
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "session.store.marshal")
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO draft (id, survey_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			survey_id = excluded.survey_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		s.ID, surveyID, string(payload), updatedAt,
	)
	return errors.Wrap(err, "session.store.save")
}

func (st *Store) Load(ctx context.Context, id string) (*Session, error) {
	var raw string
	var updatedAt time.Time
	err := st.db.
		QueryRowContext(ctx, "SELECT payload, updated_at FROM draft WHERE id = ?", id).
		Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "session.store.load")
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.Wrap(err, "session.store.unmarshal")
	}
	return &Session{
		ID:        id,
		Working:   payload.Working,
		Snapshot:  payload.Snapshot,
		Orphans:   payload.Orphans,
		UpdatedAt: updatedAt,
	}, nil
}

func (st *Store) Delete(ctx context.Context, id string) error {
	_, err := st.db.ExecContext(ctx, "DELETE FROM draft WHERE id = ?", id)
	return errors.Wrap(err, "session.store.delete")
}
