package session

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/model"
)

// Manager tracks live edit sessions in memory and mirrors them to the
// draft store so an interrupted session can be resumed.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	platform Platform
	store    *Store
}

func NewManager(platform Platform, store *Store) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		platform: platform,
		store:    store,
	}
}

// Create opens an editor in create mode: the survey record is created
// upstream right away, the tree starts empty.
func (m *Manager) Create(ctx context.Context, name string, typ model.SurveyType, description string) (*Session, error) {
	surveyID, err := m.platform.CreateSurvey(ctx, name, string(typ), description)
	if err != nil {
		return nil, err
	}

	survey := model.NewSurvey(name, typ, description)
	survey.ID = surveyID
	s := &Session{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Working:   survey,
		Snapshot:  survey.Clone(),
		UpdatedAt: time.Now().UTC(),
	}
	m.put(s)
	return s, nil
}

// Open loads an existing survey into a fresh session. The server's flat
// entry lists are rebuilt into the nested editing tree; any follow-up that
// could not be nested is kept on the session as an orphan for the UI to
// surface.
func (m *Manager) Open(ctx context.Context, surveyID int) (*Session, error) {
	src, err := m.platform.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	loaded := model.Load(src)
	s := &Session{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Working:   loaded.Working,
		Snapshot:  loaded.Snapshot,
		Orphans:   loaded.Orphans,
		UpdatedAt: time.Now().UTC(),
	}
	m.put(s)
	return s, nil
}

// Get finds a live session, falling back to the draft store for sessions
// that did not survive a restart.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, true
	}

	if m.store == nil {
		return nil, false
	}
	s, err := m.store.Load(ctx, id)
	if err != nil || s == nil {
		if err != nil {
			log.Errorf("session.resume: %s", err)
		}
		return nil, false
	}
	m.put(s)
	return s, true
}

// Close abandons a session. Pending in-flight requests are not cancelled;
// whatever the backend already applied stays applied.
func (m *Manager) Close(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Errorf("session.close.draft: %s", err)
		}
	}
}

// Persist snapshots the session into the draft store.
func (m *Manager) Persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, s); err != nil {
		log.Errorf("session.persist: %s", err)
	}
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}
