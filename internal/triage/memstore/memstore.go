// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/intake/internal/triage"
)

// Store holds triage runs in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	results map[string]*triage.Result      // run ID -> result
	trails  map[string][]triage.TrailEntry // run ID -> audit trail
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results: make(map[string]*triage.Result),
		trails:  make(map[string][]triage.TrailEntry),
	}
}

// Get retrieves a triage run by its ID. Returns a deep copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	return copyResult(r), true, nil
}

// Put stores a deep copy of the triage run.
func (s *Store) Put(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = copyResult(r)
	return nil
}

// AppendTrail records one audit entry. Appends are idempotent per (run, seq)
// and ordered within a run; entries from concurrent runs never interleave
// within a single run's trail.
func (s *Store) AppendTrail(_ context.Context, runID string, seq int, e *triage.TrailEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trail := s.trails[runID]
	if seq < len(trail) {
		return nil // already recorded
	}
	if seq != len(trail) {
		return xerrors.New("trail append out of order")
	}
	s.trails[runID] = append(trail, *e)
	return nil
}

// Trail returns a copy of the audit trail recorded for a run.
func (s *Store) Trail(runID string) []triage.TrailEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]triage.TrailEntry, len(s.trails[runID]))
	copy(out, s.trails[runID])
	return out
}

// copyResult deep-copies the maps and slices on State so callers can't alias
// stored state.
func copyResult(r *triage.Result) *triage.Result {
	cp := *r
	if r.Symptoms != nil {
		cp.Symptoms = append([]triage.Symptom(nil), r.Symptoms...)
	}
	if r.RedFlags != nil {
		cp.RedFlags = append([]string(nil), r.RedFlags...)
	}
	if r.KnownConditions != nil {
		cp.KnownConditions = append([]string(nil), r.KnownConditions...)
	}
	if r.Trail != nil {
		cp.Trail = append([]triage.TrailEntry(nil), r.Trail...)
	}
	if r.HandlerNotes != nil {
		cp.HandlerNotes = make(map[string]string, len(r.HandlerNotes))
		for k, v := range r.HandlerNotes {
			cp.HandlerNotes[k] = v
		}
	}
	return &cp
}
