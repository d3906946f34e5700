package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/intake/internal/triage"
)

const classifySystemPrompt = `You are a medical triage assistant. You do NOT diagnose. Emergencies are detected upstream; your job is to decide whether the remaining cases need same-day attention.

LEVELS:
- URGENT: needs same-day attention, worsening, or prolonged symptoms
- ROUTINE: mild, self-care appropriate

Return ONLY valid JSON (no markdown, no code fences):
{"urgency_level": "URGENT|ROUTINE", "reasoning": "brief explanation"}`

// Classifier implements the secondary classification pass (triage.Classifier)
// over a Completer. It only ever answers URGENT or ROUTINE; anything else is
// an error so the engine's fail-safe default applies.
type Classifier struct {
	completer Completer
}

// NewClassifier creates an LLM-backed secondary classification capability.
func NewClassifier(c Completer) *Classifier {
	return &Classifier{completer: c}
}

// Classify assigns URGENT or ROUTINE from duration/severity signals.
func (c *Classifier) Classify(ctx context.Context, symptoms []triage.Symptom) (triage.Urgency, error) {
	text, err := c.completer.Complete(ctx, classifySystemPrompt, symptomContext(symptoms))
	if err != nil {
		return triage.UrgencyUnset, fmt.Errorf("classify: %w", err)
	}

	var parsed struct {
		UrgencyLevel string `json:"urgency_level"`
	}
	if err := unmarshalAnswer(text, &parsed); err != nil {
		return triage.UrgencyUnset, fmt.Errorf("classify: %w", err)
	}

	switch triage.Urgency(strings.ToUpper(strings.TrimSpace(parsed.UrgencyLevel))) {
	case triage.UrgencyUrgent:
		return triage.UrgencyUrgent, nil
	case triage.UrgencyRoutine:
		return triage.UrgencyRoutine, nil
	default:
		return triage.UrgencyUnset, fmt.Errorf("classify: unexpected tier %q", parsed.UrgencyLevel)
	}
}

func symptomContext(symptoms []triage.Symptom) string {
	var b strings.Builder
	b.WriteString("Symptoms:\n")
	for _, s := range symptoms {
		fmt.Fprintf(&b, "- %s", s.Text)
		if s.Duration != "" {
			fmt.Fprintf(&b, " (duration: %s)", s.Duration)
		}
		if s.SeverityHint != "" {
			fmt.Fprintf(&b, " (severity: %s)", s.SeverityHint)
		}
		if s.LowConfidence {
			b.WriteString(" (low-confidence extraction)")
		}
		b.WriteString("\n")
	}
	return b.String()
}
