package triage

import (
	"context"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/intake/internal/patient"
	"github.com/oklog/ulid/v2"
)

// SubmitResult is the outcome of submitting a patient message for triage.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Service is the business boundary for triage operations: it owns run
// lifecycle, persistence, and async dispatch into the engine.
type Service struct {
	store   Store
	engine  *Engine
	logger  log.Logger
	metrics *Metrics
}

// NewService creates a new triage service. metrics may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	engine.SetTrailSink(store)
	return &Service{
		store:   store,
		engine:  engine,
		logger:  logger,
		metrics: metrics,
	}
}

// Submit accepts a patient message and starts a triage run. Identical
// messages are independent runs; the pipeline itself is deterministic given
// deterministic capabilities, so the service does not deduplicate.
func (s *Service) Submit(ctx context.Context, msg *patient.Message) (*SubmitResult, error) {
	if strings.TrimSpace(msg.Text) == "" && msg.PatientID == "" {
		s.countSubmit("rejected")
		return &SubmitResult{Skipped: true, Reason: "empty submission"}, nil
	}

	id := ulid.Make().String()
	result := &Result{
		ID:        id,
		Status:    StatusPending,
		State:     *NewState(msg.Text, msg.PatientID, msg.PatientAge, msg.KnownConditions),
		CreatedAt: time.Now(),
	}

	if err := s.store.Put(ctx, result); err != nil {
		s.countSubmit("error")
		return nil, err
	}
	s.countSubmit("accepted")

	// kick off the async run - pass only the ID to avoid sharing the Result
	// pointer. WithoutCancel: the run outlives the submitting request.
	go s.run(context.WithoutCancel(ctx), id)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves a triage run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) run(ctx context.Context, id string) {
	L := s.logger.With("triage_id", id)

	result, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run for triage")
		return
	}

	start := time.Now()
	result.Status = StatusInProgress
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	runErr := s.engine.Run(ctx, id, &result.State)

	result.CompletedAt = time.Now()
	result.Duration = time.Since(start).Seconds()
	if runErr != nil {
		// The partially filled state and its trail are persisted intact:
		// the caller gets an explicit failure descriptor, never a silent
		// partial result.
		result.Status = StatusFailed
		result.Error = runErr.Error()
	} else {
		result.Status = StatusComplete
	}

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist triage run")
	}

	L.Info(ctx, "triage run finished",
		"status", result.Status,
		"urgency", result.Urgency,
		"escalated", result.EscalationFlag,
		"duration", result.Duration,
	)
}

func (s *Service) countSubmit(outcome string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(outcome).Inc()
	}
}
