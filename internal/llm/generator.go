package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/intake/internal/triage"
)

const generateSystemPrompt = `You are a compassionate healthcare communication assistant.

Rules:
- NEVER diagnose or suggest a specific medical condition
- NEVER invent details not mentioned by the patient
- DO NOT mention internal severity tiers or scores
- Summarize what you understood using the patient's own language
- State clearly what action is being taken
- Always include guidance on what to do if symptoms worsen
- Be empathetic but concise
- If the action is escalate, emphasize urgency without causing panic

Write the message directly; do NOT include any JSON or formatting markers.`

// Generator implements triage.Generator over a Completer.
type Generator struct {
	completer Completer
}

// NewGenerator creates an LLM-backed response generation capability.
func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

// Generate produces the patient-facing message from the handled state.
func (g *Generator) Generate(ctx context.Context, st *triage.State) (string, error) {
	text, err := g.completer.Complete(ctx, generateSystemPrompt, stateContext(st))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate: %w", ErrNoCompletion)
	}
	return text, nil
}

func stateContext(st *triage.State) string {
	var symptoms []string
	for _, s := range st.Symptoms {
		symptoms = append(symptoms, s.Text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(symptoms, ", "))
	fmt.Fprintf(&b, "Urgency: %s\n", st.Urgency)
	fmt.Fprintf(&b, "Action taken: %s\n", st.HandlerNotes[triage.NoteAction])
	fmt.Fprintf(&b, "Plan: %s\n", st.HandlerNotes[triage.NotePlan])
	if reason := st.HandlerNotes[triage.NoteReason]; reason != "" {
		fmt.Fprintf(&b, "Details: %s\n", reason)
	}
	if st.PatientAge > 0 {
		fmt.Fprintf(&b, "Patient age: %d\n", st.PatientAge)
	}
	if len(st.KnownConditions) > 0 {
		fmt.Fprintf(&b, "Known conditions: %s\n", strings.Join(st.KnownConditions, ", "))
	}
	fmt.Fprintf(&b, "Original message: %q\n\n", st.RawMessage)
	b.WriteString("Generate the patient-facing message now.")
	return b.String()
}
