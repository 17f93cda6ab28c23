package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound means the session id is unknown or expired.
var ErrSessionNotFound = errors.New("workflow session not found")

// Snapshot is the UI-facing view of one session.
type Snapshot struct {
	ID          string  `json:"id"`
	State       State   `json:"state"`
	HasImage    bool    `json:"hasImage"`
	ImageName   string  `json:"imageName,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	UserNotes   string  `json:"userNotes,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Address     string  `json:"address,omitempty"`
}

type session struct {
	mu         sync.Mutex
	wf         *Workflow
	lastActive time.Time
}

// Manager owns the in-flight submission sessions. One logical workflow runs
// per submission; the per-session mutex serializes the single user's
// sequential interaction against stray duplicate requests.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*session
	classifier Classifier
	geocoder   Geocoder
	submitter  Submitter
	idleTTL    time.Duration
}

// NewManager creates a session manager. Sessions idle longer than idleTTL are
// dropped by the cleanup loop.
func NewManager(classifier Classifier, geocoder Geocoder, submitter Submitter, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Manager{
		sessions:   make(map[string]*session),
		classifier: classifier,
		geocoder:   geocoder,
		submitter:  submitter,
		idleTTL:    idleTTL,
	}
}

// Start opens a new submission session for the given author ("" = anonymous)
// and returns its id.
func (m *Manager) Start(authorID string) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &session{
		wf:         New(m.classifier, m.geocoder, m.submitter, authorID),
		lastActive: time.Now(),
	}
	m.mu.Unlock()
	return id
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastActive = time.Now()
	return s, nil
}

// Advance drives the session's workflow forward.
func (m *Manager) Advance(ctx context.Context, id string, in Input) (*Transition, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, err := s.wf.Advance(ctx, in)
	if err == nil && tr.State == StateSubmitted {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}
	return tr, err
}

// Back steps the session's workflow to the previous stage.
func (m *Manager) Back(id string) (State, error) {
	s, err := m.get(id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wf.Back()
}

// Snapshot returns the session's current state for rendering.
func (m *Manager) Snapshot(id string) (*Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.wf.Draft()
	return &Snapshot{
		ID:          id,
		State:       s.wf.State(),
		HasImage:    d.ImageName != "",
		ImageName:   d.ImageName,
		Title:       d.Title,
		Description: d.Description,
		UserNotes:   d.UserNotes,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Address:     d.Address,
	}, nil
}

// CleanupIdleSessions drops sessions with no activity for the idle TTL.
func (m *Manager) CleanupIdleSessions() {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for range ticker.C {
			cutoff := time.Now().Add(-m.idleTTL)
			m.mu.Lock()
			for id, s := range m.sessions {
				if s.lastActive.Before(cutoff) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}()
}
