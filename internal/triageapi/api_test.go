package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/intake/internal/patient"
	"github.com/linnemanlabs/intake/internal/triage"
)

// mockService implements TriageService.
type mockService struct {
	submitResult *triage.SubmitResult
	submitErr    error
	getResult    *triage.Result
	getOK        bool
	getErr       error

	lastMsg *patient.Message
}

func (m *mockService) Submit(_ context.Context, msg *patient.Message) (*triage.SubmitResult, error) {
	m.lastMsg = msg
	return m.submitResult, m.submitErr
}

func (m *mockService) Get(_ context.Context, _ string) (*triage.Result, bool, error) {
	return m.getResult, m.getOK, m.getErr
}

func newTestRouter(svc TriageService) http.Handler {
	r := chi.NewRouter()
	New(log.Nop(), svc).RegisterRoutes(r)
	return r
}

func TestSubmitMessage_Accepted(t *testing.T) {
	t.Parallel()

	svc := &mockService{submitResult: &triage.SubmitResult{ID: "01JN123"}}
	h := newTestRouter(svc)

	body := `{"patient_id":"p-1","patient_age":61,"known_conditions":["hypertension"],"message":"chest pain"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "01JN123" {
		t.Errorf("id = %q, want 01JN123", resp["id"])
	}

	if svc.lastMsg == nil {
		t.Fatal("service did not receive the message")
	}
	if svc.lastMsg.PatientID != "p-1" || svc.lastMsg.PatientAge != 61 || svc.lastMsg.Text != "chest pain" {
		t.Errorf("decoded message = %+v", svc.lastMsg)
	}
	if len(svc.lastMsg.KnownConditions) != 1 || svc.lastMsg.KnownConditions[0] != "hypertension" {
		t.Errorf("known conditions = %v, want [hypertension]", svc.lastMsg.KnownConditions)
	}
}

func TestSubmitMessage_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitMessage_EmptyPayload(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"message":"  "}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitMessage_Skipped(t *testing.T) {
	t.Parallel()

	svc := &mockService{submitResult: &triage.SubmitResult{Skipped: true, Reason: "empty submission"}}
	h := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"patient_id":"p-1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "empty submission") {
		t.Errorf("body = %q, want skip reason", rec.Body.String())
	}
}

func TestSubmitMessage_ServiceError(t *testing.T) {
	t.Parallel()

	svc := &mockService{submitErr: errors.New("store down")}
	h := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"message":"cough"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestGetTriage_Found(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		getOK: true,
		getResult: &triage.Result{
			ID:     "01JN123",
			Status: triage.StatusComplete,
			State: triage.State{
				Urgency:       triage.UrgencyUrgent,
				FinalResponse: "A clinician will review this shortly.",
				Trail: []triage.TrailEntry{
					{Stage: triage.StageExtract, Summary: "extracted 1 symptom(s)"},
				},
			},
		},
	}
	h := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/01JN123", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}

	var got triage.Result
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "01JN123" || got.Urgency != triage.UrgencyUrgent {
		t.Errorf("got %+v, want id=01JN123 urgency=URGENT", got)
	}
	if len(got.Trail) != 1 {
		t.Errorf("trail entries = %d, want 1", len(got.Trail))
	}
}

func TestGetTriage_NotFound(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/missing", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetTriage_StoreError(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&mockService{getErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/01JN123", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestNew_RequiresService(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic when service is nil")
		}
	}()
	New(log.Nop(), nil)
}
