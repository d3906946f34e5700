// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/intake/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/intake/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store backed by pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const runColumns = `id, status, patient_id, patient_age, known_conditions, raw_message,
	symptoms, red_flags, urgency_level, handler_notes, escalation_flag,
	final_response, error, created_at, completed_at, duration_s`

// Get retrieves a triage run by ID, including its audit trail.
func (s *Store) Get(ctx context.Context, id string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM triage_runs WHERE id = $1`
	r, err := scanRunRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}

	if err := s.loadTrail(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	return r, true, nil
}

// Put inserts or updates a triage run (upsert on triage_runs only; the
// trail is written through AppendTrail).
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	conditionsJSON, err := json.Marshal(orEmptySlice(r.KnownConditions))
	if err != nil {
		return fmt.Errorf("marshal known_conditions: %w", err)
	}
	symptomsJSON, err := json.Marshal(orEmptySymptoms(r.Symptoms))
	if err != nil {
		return fmt.Errorf("marshal symptoms: %w", err)
	}
	flagsJSON, err := json.Marshal(orEmptySlice(r.RedFlags))
	if err != nil {
		return fmt.Errorf("marshal red_flags: %w", err)
	}
	notesJSON, err := json.Marshal(orEmptyMap(r.HandlerNotes))
	if err != nil {
		return fmt.Errorf("marshal handler_notes: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO triage_runs (
		id, status, patient_id, patient_age, known_conditions, raw_message,
		symptoms, red_flags, urgency_level, handler_notes, escalation_flag,
		final_response, error, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (id) DO UPDATE SET
		status          = EXCLUDED.status,
		symptoms        = EXCLUDED.symptoms,
		red_flags       = EXCLUDED.red_flags,
		urgency_level   = EXCLUDED.urgency_level,
		handler_notes   = EXCLUDED.handler_notes,
		escalation_flag = EXCLUDED.escalation_flag,
		final_response  = EXCLUDED.final_response,
		error           = EXCLUDED.error,
		completed_at    = EXCLUDED.completed_at,
		duration_s      = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, string(r.Status), r.PatientID, r.PatientAge, conditionsJSON, r.RawMessage,
		symptomsJSON, flagsJSON, string(r.Urgency), notesJSON, r.EscalationFlag,
		r.FinalResponse, r.Error, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert triage run: %w", err)
	}
	return nil
}

// AppendTrail inserts one audit entry. The insert is idempotent per
// (run_id, seq) so an engine retry of the sink never duplicates rows.
func (s *Store) AppendTrail(ctx context.Context, runID string, seq int, e *triage.TrailEntry) error {
	ctx, span := tracer.Start(ctx, "pgstore.AppendTrail", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	query := `INSERT INTO triage_trail (run_id, seq, stage, at, summary)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (run_id, seq) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, runID, seq, e.Stage, e.At, e.Summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("append trail: %w", err)
	}
	return nil
}

func (s *Store) loadTrail(ctx context.Context, r *triage.Result) error {
	query := `SELECT stage, at, summary FROM triage_trail WHERE run_id = $1 ORDER BY seq`
	rows, err := s.pool.Query(ctx, query, r.ID)
	if err != nil {
		return fmt.Errorf("load trail: %w", err)
	}
	defer rows.Close()

	var trail []triage.TrailEntry
	for rows.Next() {
		var e triage.TrailEntry
		if err := rows.Scan(&e.Stage, &e.At, &e.Summary); err != nil {
			return fmt.Errorf("scan trail row: %w", err)
		}
		trail = append(trail, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("trail rows: %w", err)
	}
	r.Trail = trail
	return nil
}

func scanRunRow(row pgx.Row) (*triage.Result, error) {
	var (
		r              triage.Result
		status         string
		urgency        string
		conditionsJSON []byte
		symptomsJSON   []byte
		flagsJSON      []byte
		notesJSON      []byte
		completedAt    *time.Time
	)

	err := row.Scan(
		&r.ID, &status, &r.PatientID, &r.PatientAge, &conditionsJSON, &r.RawMessage,
		&symptomsJSON, &flagsJSON, &urgency, &notesJSON, &r.EscalationFlag,
		&r.FinalResponse, &r.Error, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan triage run: %w", err)
	}

	r.Status = triage.Status(status)
	r.Urgency = triage.Urgency(urgency)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}
	if err := json.Unmarshal(conditionsJSON, &r.KnownConditions); err != nil {
		return nil, fmt.Errorf("unmarshal known_conditions: %w", err)
	}
	if err := json.Unmarshal(symptomsJSON, &r.Symptoms); err != nil {
		return nil, fmt.Errorf("unmarshal symptoms: %w", err)
	}
	if err := json.Unmarshal(flagsJSON, &r.RedFlags); err != nil {
		return nil, fmt.Errorf("unmarshal red_flags: %w", err)
	}
	if err := json.Unmarshal(notesJSON, &r.HandlerNotes); err != nil {
		return nil, fmt.Errorf("unmarshal handler_notes: %w", err)
	}
	if len(r.KnownConditions) == 0 {
		r.KnownConditions = nil
	}
	if len(r.Symptoms) == 0 {
		r.Symptoms = nil
	}
	if len(r.RedFlags) == 0 {
		r.RedFlags = nil
	}
	if len(r.HandlerNotes) == 0 {
		r.HandlerNotes = nil
	}
	return &r, nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptySymptoms(s []triage.Symptom) []triage.Symptom {
	if s == nil {
		return []triage.Symptom{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
