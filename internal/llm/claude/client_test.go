package claude

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTextContent_SingleBlock(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Thank you for your message."},
		},
	}

	if got := textContent(msg); got != "Thank you for your message." {
		t.Errorf("textContent = %q, want %q", got, "Thank you for your message.")
	}
}

func TestTextContent_ConcatenatesTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "first part "},
			{Type: "text", Text: "second part"},
		},
	}

	if got := textContent(msg); got != "first part second part" {
		t.Errorf("textContent = %q, want concatenation", got)
	}
}

func TestTextContent_IgnoresNonTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "tool_use", ID: "tu-1", Name: "lookup", Input: json.RawMessage(`{}`)},
			{Type: "text", Text: "only this"},
		},
	}

	if got := textContent(msg); got != "only this" {
		t.Errorf("textContent = %q, want %q", got, "only this")
	}
}

func TestTextContent_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "  padded  \n"},
		},
	}

	if got := textContent(msg); got != "padded" {
		t.Errorf("textContent = %q, want %q", got, "padded")
	}
}

func TestTextContent_Empty(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{}
	if got := textContent(msg); got != "" {
		t.Errorf("textContent = %q, want empty", got)
	}
}
