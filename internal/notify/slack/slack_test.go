package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/intake/internal/triage"
)

func testState() *triage.State {
	return &triage.State{
		RawMessage: "chest pain for two hours, left arm numb",
		PatientID:  "p-123",
		PatientAge: 61,
		RedFlags:   []string{"chest pain with radiation"},
		Urgency:    triage.UrgencyEmergency,
	}
}

func TestNotifyEmergency_PostsToPageWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, "", log.Nop())
	if err := n.NotifyEmergency(context.Background(), "01JN123", testState()); err != nil {
		t.Fatalf("NotifyEmergency: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}
	// header, divider, fields, message, context = 5 blocks
	if len(blocks) != 5 {
		t.Errorf("blocks count = %d, want 5", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "EMERGENCY") {
		t.Errorf("header text = %q, want to contain EMERGENCY", headerText)
	}
	if !strings.Contains(headerText, "\U0001f6a8") {
		t.Error("header should contain the siren emoji")
	}

	fields := blocks[2].(map[string]any)["fields"].([]any)
	joined := ""
	for _, f := range fields {
		joined += f.(map[string]any)["text"].(string) + "\n"
	}
	if !strings.Contains(joined, "p-123 (age 61)") {
		t.Errorf("fields = %q, want patient label p-123 (age 61)", joined)
	}
	if !strings.Contains(joined, "chest pain with radiation") {
		t.Errorf("fields = %q, want red flag names", joined)
	}
}

func TestFlagForReview_PostsToReviewWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New("", srv.URL, log.Nop())
	st := testState()
	st.Urgency = triage.UrgencyUrgent
	st.RedFlags = nil
	deadline := time.Date(2026, 8, 25, 16, 30, 0, 0, time.UTC)

	if err := n.FlagForReview(context.Background(), "01JN456", st, deadline); err != nil {
		t.Fatalf("FlagForReview: %v", err)
	}

	blocks := got["blocks"].([]any)
	header := blocks[0].(map[string]any)["text"].(map[string]any)["text"].(string)
	if !strings.Contains(header, "Urgent") {
		t.Errorf("header = %q, want to contain Urgent", header)
	}

	fields := blocks[2].(map[string]any)["fields"].([]any)
	joined := ""
	for _, f := range fields {
		joined += f.(map[string]any)["text"].(string) + "\n"
	}
	if !strings.Contains(joined, "16:30 UTC") {
		t.Errorf("fields = %q, want review deadline 16:30 UTC", joined)
	}
}

func TestNotify_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", "", log.Nop())
	if err := n.NotifyEmergency(context.Background(), "id", testState()); err != nil {
		t.Errorf("NotifyEmergency with empty URL should be no-op, got: %v", err)
	}
	if err := n.FlagForReview(context.Background(), "id", testState(), time.Now()); err != nil {
		t.Errorf("FlagForReview with empty URL should be no-op, got: %v", err)
	}
}

func TestNotifyEmergency_TruncatesLongMessage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := testState()
	st.RawMessage = strings.Repeat("chest pain ", 1000)

	n := New(srv.URL, "", log.Nop())
	if err := n.NotifyEmergency(context.Background(), "01JN789", st); err != nil {
		t.Fatalf("NotifyEmergency: %v", err)
	}

	blocks := got["blocks"].([]any)
	msgText := blocks[3].(map[string]any)["text"].(map[string]any)["text"].(string)
	if len(msgText) > maxMessageLen+len("*Message*\n\n") {
		t.Errorf("message block length = %d, want truncated to %d", len(msgText), maxMessageLen)
	}
	if !strings.HasSuffix(msgText, "...") {
		t.Error("truncated message should end with ellipsis")
	}
}

func TestNotifyEmergency_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL, "", log.Nop())
	err := n.NotifyEmergency(context.Background(), "01JNBAD", testState())
	if err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want to mention status 400", err)
	}
}

func TestPatientLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		st   *triage.State
		want string
	}{
		{"id and age", &triage.State{PatientID: "p-1", PatientAge: 42}, "p-1 (age 42)"},
		{"id only", &triage.State{PatientID: "p-2"}, "p-2"},
		{"anonymous", &triage.State{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := patientLabel(tt.st); got != tt.want {
				t.Errorf("patientLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
