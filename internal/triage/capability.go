package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/intake/internal/patient"
)

// Pluggable capabilities the engine calls but does not implement. Each call
// carries the engine's per-capability deadline; expiry is treated as that
// stage's failure path, never as a silent hang.

// Extractor turns a raw patient message into structured symptom descriptors.
type Extractor interface {
	Extract(ctx context.Context, msg *patient.Message) ([]Symptom, error)
}

// Classifier is the secondary classification pass. It only distinguishes
// URGENT from ROUTINE; EMERGENCY is the deterministic red-flag pass's call.
type Classifier interface {
	Classify(ctx context.Context, symptoms []Symptom) (Urgency, error)
}

// Generator produces the patient-facing response text from the full state.
type Generator interface {
	Generate(ctx context.Context, st *State) (string, error)
}

// Escalator is the external emergency trigger, invoked only by the
// emergency handler. Failure never aborts the run.
type Escalator interface {
	NotifyEmergency(ctx context.Context, runID string, st *State) error
}

// Reviewer flags a run for asynchronous human review, invoked only by the
// urgent handler.
type Reviewer interface {
	FlagForReview(ctx context.Context, runID string, st *State, deadline time.Time) error
}

// TrailSink is the audit consumer of trail entries. Implementations must
// tolerate concurrent writers from independent runs; within one run entries
// arrive in execution order.
type TrailSink interface {
	AppendTrail(ctx context.Context, runID string, seq int, e *TrailEntry) error
}
