// Package patient defines the inbound patient message record.
package patient

import "strings"

// Message is a single free-text patient message submitted for triage,
// plus whatever context the submitting system knows about the patient.
type Message struct {
	PatientID       string   `json:"patient_id,omitempty"`
	PatientAge      int      `json:"patient_age,omitempty"`
	KnownConditions []string `json:"known_conditions,omitempty"`
	Text            string   `json:"message"`
}

// ConditionsOrNone renders known conditions for prompt context.
func (m *Message) ConditionsOrNone() string {
	if len(m.KnownConditions) == 0 {
		return "None"
	}
	return strings.Join(m.KnownConditions, ", ")
}
