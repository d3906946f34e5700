// Package openai provides an OpenAI-backed llm.Completer.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/linnemanlabs/go-core/xerrors"
)

// Client implements llm.Completer against the OpenAI chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI completion client with the given API key and
// model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete sends one system+user prompt pair and returns the assistant's
// response text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", xerrors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
