package triage

import "time"

// Status tracks where a run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished with a final response
	StatusComplete Status = "complete"

	// StatusFailed means halted before producing a final response
	StatusFailed Status = "failed"
)

// Urgency is the severity tier assigned by classification.
type Urgency string

const (
	// UrgencyUnset is the only valid value before classification runs.
	UrgencyUnset Urgency = ""

	UrgencyRoutine   Urgency = "ROUTINE"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyEmergency Urgency = "EMERGENCY"
)

var severityRank = map[Urgency]int{
	UrgencyUnset:     0,
	UrgencyRoutine:   1,
	UrgencyUrgent:    2,
	UrgencyEmergency: 3,
}

// Valid reports whether u is one of the three assigned tiers.
func (u Urgency) Valid() bool {
	return u == UrgencyRoutine || u == UrgencyUrgent || u == UrgencyEmergency
}

// MoreSevere reports whether u outranks o (EMERGENCY > URGENT > ROUTINE > unset).
func (u Urgency) MoreSevere(o Urgency) bool {
	return severityRank[u] > severityRank[o]
}

// MaxUrgency returns the more severe of a and b. A higher-severity signal is
// never averaged away or discarded.
func MaxUrgency(a, b Urgency) Urgency {
	if b.MoreSevere(a) {
		return b
	}
	return a
}

// Symptom is one extracted symptom descriptor.
type Symptom struct {
	Text         string `json:"text"`
	Duration     string `json:"duration,omitempty"`
	SeverityHint string `json:"severity_hint,omitempty"`

	// LowConfidence marks the placeholder descriptor produced when
	// extraction fails or finds nothing usable.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// TrailEntry is one audit record of a stage execution.
type TrailEntry struct {
	Stage   string    `json:"stage"`
	At      time.Time `json:"at"`
	Summary string    `json:"summary"`
}

// Handler note keys. Only the handler matching the assigned urgency writes
// handler notes for a given run.
const (
	NoteAction = "action"
	NotePlan   = "plan"
	NoteReason = "reason"
)

// Handler note "action" values, one per branch.
const (
	ActionEscalate = "escalate"
	ActionBook     = "book"
	ActionSelfCare = "self_care"
)

// State is the mutable record threaded through one triage run. It is owned
// by the Engine for the run's lifetime; stages mutate only the fields they
// are contracted to write.
type State struct {
	// RawMessage is the immutable input text, set once at creation.
	RawMessage string `json:"raw_message"`

	// Patient context carried from the inbound message.
	PatientID       string   `json:"patient_id,omitempty"`
	PatientAge      int      `json:"patient_age,omitempty"`
	KnownConditions []string `json:"known_conditions,omitempty"`

	// Symptoms is written by the extraction stage, empty until it runs.
	Symptoms []Symptom `json:"symptoms,omitempty"`

	// RedFlags lists deterministic red-flag rule names that matched.
	RedFlags []string `json:"red_flags,omitempty"`

	// Urgency transitions UnSET -> one tier exactly once, at classification.
	Urgency Urgency `json:"urgency_level"`

	// HandlerNotes is written only by the branch handler matching Urgency.
	HandlerNotes map[string]string `json:"handler_notes,omitempty"`

	// EscalationFlag is set true only by the emergency handler and is never
	// cleared within a run.
	EscalationFlag bool `json:"escalation_flag"`

	// FinalResponse is present only after synthesis completes.
	FinalResponse string `json:"final_response,omitempty"`

	// Trail is the append-only audit record, one entry per executed stage.
	Trail []TrailEntry `json:"trail"`
}

// appendTrail records a stage execution. Entries are never removed or
// reordered; ordering within a run follows execution order.
func (s *State) appendTrail(stage, summary string) *TrailEntry {
	s.Trail = append(s.Trail, TrailEntry{Stage: stage, At: time.Now().UTC(), Summary: summary})
	return &s.Trail[len(s.Trail)-1]
}

// Result is the run envelope persisted to the store: the state plus run
// identity, lifecycle status, and timing.
type Result struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	State

	// Error is the failure descriptor for failed runs.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    float64   `json:"duration_seconds,omitempty"`
}

// NewState initializes a run state from patient input.
func NewState(text, patientID string, age int, conditions []string) *State {
	return &State{
		RawMessage:      text,
		PatientID:       patientID,
		PatientAge:      age,
		KnownConditions: conditions,
	}
}
