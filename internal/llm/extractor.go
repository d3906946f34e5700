package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/intake/internal/patient"
	"github.com/linnemanlabs/intake/internal/triage"
)

const extractSystemPrompt = `You are a medical intake assistant. Extract structured information from a patient's message. Do NOT diagnose.

Return ONLY valid JSON (no markdown, no code fences):
{"symptoms": [{"text": "symptom in the patient's words", "duration": "how long, or empty", "severity_hint": "severity language used, or empty"}]}

If no symptoms are described, return {"symptoms": []}.`

// Extractor implements triage.Extractor over a Completer.
type Extractor struct {
	completer Completer
}

// NewExtractor creates an LLM-backed extraction capability.
func NewExtractor(c Completer) *Extractor {
	return &Extractor{completer: c}
}

// Extract turns a raw patient message into symptom descriptors. Errors are
// the engine's signal to substitute the low-confidence placeholder; this
// capability never invents symptoms on failure.
func (e *Extractor) Extract(ctx context.Context, msg *patient.Message) ([]triage.Symptom, error) {
	text, err := e.completer.Complete(ctx, extractSystemPrompt, patientContext(msg))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var parsed struct {
		Symptoms []struct {
			Text         string `json:"text"`
			Duration     string `json:"duration"`
			SeverityHint string `json:"severity_hint"`
		} `json:"symptoms"`
	}
	if err := unmarshalAnswer(text, &parsed); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var out []triage.Symptom
	for _, s := range parsed.Symptoms {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, triage.Symptom{
			Text:         strings.TrimSpace(s.Text),
			Duration:     strings.TrimSpace(s.Duration),
			SeverityHint: strings.TrimSpace(s.SeverityHint),
		})
	}
	return out, nil
}

func patientContext(msg *patient.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient ID: %s\n", valueOr(msg.PatientID, "unknown"))
	if msg.PatientAge > 0 {
		fmt.Fprintf(&b, "Age: %d\n", msg.PatientAge)
	} else {
		b.WriteString("Age: unknown\n")
	}
	fmt.Fprintf(&b, "Known conditions: %s\n\n", msg.ConditionsOrNone())
	fmt.Fprintf(&b, "Patient message: %q", msg.Text)
	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
