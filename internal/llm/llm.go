// Package llm implements the triage capability contracts (extraction,
// secondary classification, response generation) over a provider-agnostic
// completion interface. The core never depends on a specific backing model;
// providers live in the claude and openai subpackages.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/xerrors"
)

// Completer is a single-shot LLM completion: system prompt + user prompt in,
// text out. Implementations must honor ctx deadlines.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrNoCompletion is returned when the provider answers with empty content.
var ErrNoCompletion = xerrors.New("llm: empty completion")

// unmarshalAnswer extracts a JSON object from model output. Models wrap JSON
// in prose or code fences often enough that we retry on the outermost brace
// pair before giving up.
func unmarshalAnswer(text string, v any) error {
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return xerrors.New("llm: no JSON object in completion")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("llm: parse completion JSON: %w", err)
	}
	return nil
}
