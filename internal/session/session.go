// Package session keeps per-user working state between requests: the loaded
// dataset, the active filter, the latest clustering and anything derived from
// it. Derived state is invalidated strictly downstream: a new dataset clears
// everything, a new clustering clears series, forecasts and reports.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// ErrNotFound signals an unknown or expired session ID.
var ErrNotFound = errors.New("session not found")

// State holds everything a user has built up in one working session.
type State struct {
	ID       string
	Username string

	Dataset    *models.Dataset
	Filter     *models.Filter
	Assignment *models.ClusterAssignment
	Summaries  []models.ClusterSummary

	LastSeries   *models.DailySeries
	LastForecast *models.ForecastResult
	ReportPDF    []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetDataset installs a new dataset and clears every derived artifact.
func (s *State) SetDataset(dataset models.Dataset) {
	s.Dataset = &dataset
	s.Filter = nil
	s.clearClustering()
}

// SetFilter installs a filter and clears clustering results, which were
// computed against the previous selection.
func (s *State) SetFilter(filter models.Filter) {
	s.Filter = &filter
	s.clearClustering()
}

// SetAssignment installs a clustering result and clears state derived from
// the previous one.
func (s *State) SetAssignment(assignment models.ClusterAssignment, summaries []models.ClusterSummary) {
	s.Assignment = &assignment
	s.Summaries = summaries
	s.LastSeries = nil
	s.LastForecast = nil
	s.ReportPDF = nil
}

func (s *State) clearClustering() {
	s.Assignment = nil
	s.Summaries = nil
	s.LastSeries = nil
	s.LastForecast = nil
	s.ReportPDF = nil
}

// FilteredObservations applies the active filter, if any, to the loaded
// dataset.
func (s *State) FilteredObservations() []models.Observation {
	if s.Dataset == nil {
		return nil
	}
	if s.Filter == nil {
		return s.Dataset.Observations
	}
	return s.Filter.Apply(s.Dataset.Observations)
}

// Manager owns all live sessions. Sessions idle longer than the configured
// TTL are dropped; a zero TTL disables expiry.
type Manager struct {
	logger *slog.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*State
}

// NewManager creates an empty session manager.
func NewManager(logger *slog.Logger, ttl time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*State),
	}
}

// Create opens a fresh session for username and returns its state.
func (m *Manager) Create(username string) *State {
	now := time.Now().UTC()
	state := &State{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.purgeExpiredLocked(now)
	m.sessions[state.ID] = state
	snapshot := *state
	m.mu.Unlock()

	m.logger.Info("session created", slog.String("session_id", state.ID), slog.String("username", username))
	return &snapshot
}

// Get returns a snapshot of the session for id, or ErrNotFound when unknown
// or expired. The snapshot is taken under the manager lock, so callers may
// read it freely while concurrent Updates replace fields on the live state.
// Pointed-to values (dataset, assignment, forecast) are never mutated in
// place after being stored, only swapped wholesale, which keeps a shallow
// copy consistent. Mutation goes through Update.
func (m *Manager) Get(id string) (*State, error) {
	now := time.Now().UTC()

	m.mu.RLock()
	state, ok := m.sessions[id]
	var snapshot State
	if ok {
		snapshot = *state
	}
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(&snapshot, now) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return &snapshot, nil
}

// Update runs fn against the session state under the manager lock and bumps
// the idle timer. All mutation goes through here.
func (m *Manager) Update(id string, fn func(*State)) error {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok || m.expired(state, now) {
		delete(m.sessions, id)
		return ErrNotFound
	}
	fn(state)
	state.UpdatedAt = now
	return nil
}

// Delete removes a session. Removing an unknown ID is not an error.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expired(state *State, now time.Time) bool {
	return m.ttl > 0 && now.Sub(state.UpdatedAt) > m.ttl
}

func (m *Manager) purgeExpiredLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, state := range m.sessions {
		if m.expired(state, now) {
			delete(m.sessions, id)
		}
	}
}
