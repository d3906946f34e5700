// Package slack delivers triage escalations and review flags to Slack via
// incoming webhooks. It implements the engine's Escalator and Reviewer
// collaborator contracts.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/intake/internal/triage"
)

const (
	maxMessageLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts emergency pages and review flags to Slack webhooks. Either
// URL may be empty, in which case the corresponding call is a no-op.
type Notifier struct {
	pageURL   string
	reviewURL string
	client    *http.Client
	logger    log.Logger
}

// New creates a Slack notifier. pageURL receives emergency escalations,
// reviewURL receives urgent-tier review flags.
func New(pageURL, reviewURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		pageURL:   pageURL,
		reviewURL: reviewURL,
		client:    &http.Client{Timeout: httpTimeout},
		logger:    logger,
	}
}

// NotifyEmergency pages the on-call channel for an emergency-tier run.
// Invoked only by the emergency handler; a failure here is recorded by the
// engine, never raised.
func (n *Notifier) NotifyEmergency(ctx context.Context, runID string, st *triage.State) error {
	if n.pageURL == "" {
		return nil
	}
	return n.post(ctx, n.pageURL, buildPageMessage(runID, st))
}

// FlagForReview asks the clinical channel to review an urgent-tier run
// before the deadline.
func (n *Notifier) FlagForReview(ctx context.Context, runID string, st *triage.State, deadline time.Time) error {
	if n.reviewURL == "" {
		return nil
	}
	return n.post(ctx, n.reviewURL, buildReviewMessage(runID, st, deadline))
}

func (n *Notifier) post(ctx context.Context, url string, msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhook URLs are from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildPageMessage(runID string, st *triage.State) map[string]any {
	flags := strings.Join(st.RedFlags, ", ")
	if flags == "" {
		flags = "elevated risk"
	}

	return map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": "\U0001f6a8 EMERGENCY triage: immediate review required",
				},
			},
			{"type": "divider"},
			{
				"type": "section",
				"fields": []map[string]any{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Patient:* %s", patientLabel(st))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Red flags:* %s", flags)},
				},
			},
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Message*\n\n%s", truncate(st.RawMessage, maxMessageLen)),
				},
			},
			contextBlock(runID),
		},
	}
}

func buildReviewMessage(runID string, st *triage.State, deadline time.Time) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": "\U0001f7e1 Urgent triage: review needed",
				},
			},
			{"type": "divider"},
			{
				"type": "section",
				"fields": []map[string]any{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Patient:* %s", patientLabel(st))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Review by:* %s", deadline.UTC().Format("15:04 UTC"))},
				},
			},
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Message*\n\n%s", truncate(st.RawMessage, maxMessageLen)),
				},
			},
			contextBlock(runID),
		},
	}
}

func contextBlock(runID string) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("intake • triage %s • %s", runID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func patientLabel(st *triage.State) string {
	if st.PatientID == "" {
		return "unknown"
	}
	if st.PatientAge > 0 {
		return fmt.Sprintf("%s (age %d)", st.PatientID, st.PatientAge)
	}
	return st.PatientID
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
