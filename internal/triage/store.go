package triage

import "context"

// Store is the persistence interface for triage runs. It doubles as the
// audit sink: AppendTrail must accept concurrent appends from independent
// runs while preserving per-run ordering.
type Store interface {
	TrailSink

	Get(ctx context.Context, id string) (*Result, bool, error)
	Put(ctx context.Context, result *Result) error
}
