package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/intake/internal/patient"
)

var tracer = otel.Tracer("github.com/linnemanlabs/intake/internal/triage")

const (
	// DefaultCapabilityTimeout bounds each pluggable-capability call.
	// Expiry is that stage's failure path, never a silent hang.
	DefaultCapabilityTimeout = 30 * time.Second

	// ReviewWindow is the human-review deadline for urgent-tier runs.
	ReviewWindow = time.Hour
)

// Decision paths recorded at classification, naming which signal decided
// the urgency tier.
const (
	DecidedByRedFlag    = "red_flag"
	DecidedByClassifier = "classifier"
	DecidedByFailsafe   = "failsafe"
)

// Capabilities bundles the pluggable capabilities and external
// collaborators an Engine drives. Extractor, Classifier and Generator are
// required; Escalator and Reviewer may be nil (no-op collaborators).
type Capabilities struct {
	Extractor  Extractor
	Classifier Classifier
	Generator  Generator
	Escalator  Escalator
	Reviewer   Reviewer
}

// CompleteEvent summarizes a finished run for the OnComplete hook.
type CompleteEvent struct {
	Status    Status
	Urgency   Urgency
	DecidedBy string
	Escalated bool
	Duration  float64
	Fallbacks int
}

// EngineHooks are optional callbacks for instrumentation. Nil funcs are
// skipped.
type EngineHooks struct {
	OnStage    func(stage string, duration float64, fallback bool)
	OnComplete func(e *CompleteEvent)
}

// Engine is the graph executor. It drives one run's state strictly through
// extract -> classify -> route -> one handler -> synthesize, owns the state
// record for the run's lifetime, and records one trail entry per executed
// stage. Engines are stateless across runs and safe for concurrent use;
// each run owns an independent State.
type Engine struct {
	caps       Capabilities
	logger     log.Logger
	hooks      EngineHooks
	sink       TrailSink
	capTimeout time.Duration
}

// NewEngine creates an engine with the given capabilities.
func NewEngine(caps Capabilities, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		caps:       caps,
		logger:     logger,
		hooks:      hooks,
		capTimeout: DefaultCapabilityTimeout,
	}
}

// SetTrailSink mirrors trail entries to an audit sink as they are appended.
func (e *Engine) SetTrailSink(s TrailSink) { e.sink = s }

// SetCapabilityTimeout overrides the per-capability deadline.
func (e *Engine) SetCapabilityTimeout(d time.Duration) {
	if d > 0 {
		e.capTimeout = d
	}
}

// Run executes the triage graph over st. It returns a non-nil error only
// for fatal conditions (routing invariant violation, cancellation between
// stages); every other failure degrades to the stage's fallback. On error
// the partially filled state and its trail are left intact for audit.
func (e *Engine) Run(ctx context.Context, id string, st *State) error {
	start := time.Now()
	L := e.logger.With("triage_id", id, "patient_id", st.PatientID)
	fallbacks := 0
	decidedBy := ""

	record := func(ctx context.Context, stage, summary string, stageStart time.Time, fallback bool) {
		entry := st.appendTrail(stage, summary)
		if e.sink != nil {
			if err := e.sink.AppendTrail(ctx, id, len(st.Trail)-1, entry); err != nil {
				L.Error(ctx, err, "trail sink append failed", "stage", stage)
			}
		}
		dur := time.Since(stageStart).Seconds()
		if fallback {
			fallbacks++
		}
		if e.hooks.OnStage != nil {
			e.hooks.OnStage(stage, dur, fallback)
		}
		L.Info(ctx, "stage complete", "stage", stage, "summary", summary, "duration", dur, "fallback", fallback)
	}

	fail := func(err error) error {
		if e.hooks.OnComplete != nil {
			e.hooks.OnComplete(&CompleteEvent{
				Status:    StatusFailed,
				Urgency:   st.Urgency,
				DecidedBy: decidedBy,
				Escalated: st.EscalationFlag,
				Duration:  time.Since(start).Seconds(),
				Fallbacks: fallbacks,
			})
		}
		return err
	}

	// checkpoint is the cooperative cancellation point between stages. A
	// stage either completes its state writes or the run is marked failed;
	// mid-stage cancellation is not supported.
	checkpoint := func(after string) error {
		if err := ctx.Err(); err != nil {
			L.Warn(ctx, "run cancelled", "after_stage", after)
			return fail(fmt.Errorf("run cancelled after %s: %w", after, err))
		}
		return nil
	}

	// Stage 1: extraction. Never fails the run; ambiguous or failed
	// extraction yields a single low-confidence placeholder so
	// classification can apply its conservative default.
	stageStart := time.Now()
	func() {
		cctx, span := e.stageSpan(ctx, StageExtract)
		defer span.End()
		msg := &patient.Message{
			PatientID:       st.PatientID,
			PatientAge:      st.PatientAge,
			KnownConditions: st.KnownConditions,
			Text:            st.RawMessage,
		}
		symptoms, err := e.caps.Extractor.Extract(cctx, msg)
		if err != nil || len(symptoms) == 0 {
			if err != nil {
				L.Warn(ctx, "extraction failed, using placeholder", "error", err.Error())
			}
			st.Symptoms = []Symptom{placeholderSymptom(st.RawMessage)}
			record(ctx, StageExtract, "placeholder: "+reasonOr(err, "no symptoms extracted"), stageStart, true)
			return
		}
		st.Symptoms = symptoms
		record(ctx, StageExtract, fmt.Sprintf("extracted %d symptom(s)", len(symptoms)), stageStart, false)
	}()
	if err := checkpoint(StageExtract); err != nil {
		return err
	}

	// Stage 2: classification. Deterministic red-flag pass first; it can
	// unilaterally force EMERGENCY. Otherwise the secondary capability
	// assigns URGENT or ROUTINE. Most-severe-wins on disagreement; total
	// failure defaults to URGENT, never ROUTINE.
	stageStart = time.Now()
	func() {
		cctx, span := e.stageSpan(ctx, StageClassify)
		defer span.End()

		flags := redFlags(st.RawMessage, st.Symptoms)
		if len(flags) > 0 {
			st.RedFlags = flags
			st.Urgency = UrgencyEmergency
			decidedBy = DecidedByRedFlag
			record(ctx, StageClassify, "EMERGENCY: red flags ["+strings.Join(flags, "; ")+"]", stageStart, false)
			return
		}

		tier, err := e.caps.Classifier.Classify(cctx, st.Symptoms)
		if err != nil || !tier.Valid() {
			st.Urgency = UrgencyUrgent
			decidedBy = DecidedByFailsafe
			record(ctx, StageClassify, "URGENT: fail-safe default ("+reasonOr(err, "invalid tier from classifier")+")", stageStart, true)
			return
		}
		// The secondary pass only distinguishes URGENT from ROUTINE, but a
		// higher-severity signal is never discarded.
		st.Urgency = MaxUrgency(tier, st.Urgency)
		decidedBy = DecidedByClassifier
		record(ctx, StageClassify, string(st.Urgency)+": secondary classification", stageStart, false)
	}()
	if err := checkpoint(StageClassify); err != nil {
		return err
	}

	// Stage 3: routing. Pure dispatch over the closed enum; unset urgency
	// here is a classifier contract violation and is fatal.
	stageStart = time.Now()
	handlerStage, err := route(st.Urgency)
	if err != nil {
		record(ctx, StageRoute, "routing failed: "+err.Error(), stageStart, false)
		L.Error(ctx, err, "routing invariant violated")
		return fail(err)
	}
	record(ctx, StageRoute, "-> "+handlerStage, stageStart, false)
	if err := checkpoint(StageRoute); err != nil {
		return err
	}

	// Stage 4: exactly one branch handler. All branches converge on the
	// synthesizer.
	stageStart = time.Now()
	var summary string
	var handlerFallback bool
	func() {
		cctx, span := e.stageSpan(ctx, handlerStage)
		defer span.End()
		switch handlerStage {
		case StageEmergency:
			summary, handlerFallback = e.runEmergency(cctx, id, st, L)
		case StageUrgent:
			summary, handlerFallback = e.runUrgent(cctx, id, st, L)
		case StageRoutine:
			summary = e.runRoutine(st)
		}
	}()
	record(ctx, handlerStage, summary, stageStart, handlerFallback)
	if err := checkpoint(handlerStage); err != nil {
		return err
	}

	// Stage 5: synthesis. Generation failure degrades to a templated
	// response from handler notes; every run reaching this stage ends with
	// a non-empty final response.
	stageStart = time.Now()
	if !st.Urgency.Valid() || len(st.HandlerNotes) == 0 {
		err := fmt.Errorf("%w: synthesizer precondition (urgency=%q, notes=%d)", ErrRoutingInvariant, st.Urgency, len(st.HandlerNotes))
		L.Error(ctx, err, "synthesizer precondition violated")
		return fail(err)
	}
	func() {
		cctx, span := e.stageSpan(ctx, StageSynthesize)
		defer span.End()
		text, err := e.caps.Generator.Generate(cctx, st)
		if err != nil || strings.TrimSpace(text) == "" {
			st.FinalResponse = fallbackResponse(st)
			record(ctx, StageSynthesize, "templated fallback (synthesis unavailable: "+reasonOr(err, "empty generation")+")", stageStart, true)
			return
		}
		st.FinalResponse = text
		record(ctx, StageSynthesize, "generated response", stageStart, false)
	}()

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Status:    StatusComplete,
			Urgency:   st.Urgency,
			DecidedBy: decidedBy,
			Escalated: st.EscalationFlag,
			Duration:  time.Since(start).Seconds(),
			Fallbacks: fallbacks,
		})
	}
	L.Info(ctx, "triage complete",
		"urgency", st.Urgency,
		"decided_by", decidedBy,
		"escalated", st.EscalationFlag,
		"fallbacks", fallbacks,
		"duration", time.Since(start).Seconds(),
	)
	return nil
}

// runEmergency completes its state writes before the external trigger fires:
// the triage decision must not be lost because a downstream alert failed.
// Trigger failure is recorded in the trail summary, not raised.
func (e *Engine) runEmergency(ctx context.Context, id string, st *State, L log.Logger) (summary string, fallback bool) {
	st.EscalationFlag = true
	st.HandlerNotes = map[string]string{
		NoteAction: ActionEscalate,
		NotePlan:   "Immediate clinical review. On-call staff are being alerted; if symptoms worsen, call emergency services now.",
		NoteReason: escalationReason(st),
	}

	if e.caps.Escalator == nil {
		return "escalated (no trigger configured)", false
	}
	if err := e.caps.Escalator.NotifyEmergency(ctx, id, st); err != nil {
		L.Error(ctx, err, "escalation trigger failed")
		return "escalated; trigger failed: " + err.Error(), true
	}
	return "escalated; on-call paged", false
}

// runUrgent flags the run for human review within the review window. A
// collaborator failure is recorded, never raised.
func (e *Engine) runUrgent(ctx context.Context, id string, st *State, L log.Logger) (summary string, fallback bool) {
	deadline := time.Now().Add(ReviewWindow)
	st.HandlerNotes = map[string]string{
		NoteAction: ActionBook,
		NotePlan:   "A clinician will review this message within the next hour and contact you about a same-day appointment.",
		NoteReason: "Same-day attention indicated by symptom duration/severity signals.",
	}

	if e.caps.Reviewer == nil {
		return "flagged for review (no reviewer configured)", false
	}
	if err := e.caps.Reviewer.FlagForReview(ctx, id, st, deadline); err != nil {
		L.Error(ctx, err, "review flag failed")
		return "review flag failed: " + err.Error(), true
	}
	return "flagged for review by " + deadline.UTC().Format(time.RFC3339), false
}

// runRoutine writes self-care guidance. No external calls.
func (e *Engine) runRoutine(st *State) string {
	st.HandlerNotes = map[string]string{
		NoteAction: ActionSelfCare,
		NotePlan:   "Self-care is appropriate: rest, fluids, and over-the-counter symptom relief as needed. Book a routine appointment if symptoms persist beyond a few days or worsen.",
		NoteReason: "Mild symptoms, no red flags, no same-day signals.",
	}
	return "self-care guidance issued"
}

// stageSpan starts a per-stage span and applies the capability deadline.
// The returned context's cancel runs when the span ends.
func (e *Engine) stageSpan(ctx context.Context, stage string) (context.Context, oteltrace.Span) {
	cctx, span := tracer.Start(ctx, "triage."+stage, oteltrace.WithAttributes(
		attribute.String("triage.stage", stage),
	))
	cctx, cancel := context.WithTimeout(cctx, e.capTimeout)
	return cctx, spanWithCancel{Span: span, cancel: cancel}
}

type spanWithCancel struct {
	oteltrace.Span
	cancel context.CancelFunc
}

func (s spanWithCancel) End(opts ...oteltrace.SpanEndOption) {
	s.cancel()
	s.Span.End(opts...)
}

func placeholderSymptom(raw string) Symptom {
	text := strings.TrimSpace(raw)
	if text == "" {
		text = "no symptom information provided"
	}
	return Symptom{Text: text, LowConfidence: true}
}

func escalationReason(st *State) string {
	flags := strings.Join(st.RedFlags, ", ")
	if flags == "" {
		flags = "elevated risk"
	}
	return fmt.Sprintf("Red flags: %s. Patient (ID: %s, age %s) requires immediate clinical review.",
		flags, orUnknown(st.PatientID), ageOrUnknown(st.PatientAge))
}

// fallbackResponse builds the templated patient-facing message used when the
// generation capability is unreachable. It is always non-empty and carries
// the handler's plan verbatim.
func fallbackResponse(st *State) string {
	var b strings.Builder
	b.WriteString("Thank you for your message. ")
	switch st.Urgency {
	case UrgencyEmergency:
		b.WriteString("Based on what you've described, this needs immediate attention.")
	case UrgencyUrgent:
		b.WriteString("Based on what you've described, this should be looked at today.")
	default:
		b.WriteString("Based on what you've described, this does not appear to need urgent care.")
	}
	b.WriteString("\n\n")
	b.WriteString(st.HandlerNotes[NotePlan])
	b.WriteString("\n\nIf your symptoms get worse at any point, seek medical attention right away.")
	return b.String()
}

func reasonOr(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func ageOrUnknown(age int) string {
	if age <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", age)
}
