package triage

import "github.com/linnemanlabs/go-core/xerrors"

// Failure taxonomy for a triage run. Only ErrRoutingInvariant terminates a
// run without a final response; every other failure degrades to a safe
// fallback inside the engine, biased toward caution.
var (
	// ErrExtractionAmbiguous is recovered locally via the placeholder
	// symptom and never surfaced to the caller.
	ErrExtractionAmbiguous = xerrors.New("extraction ambiguous")

	// ErrClassificationUnavailable is recovered via the fail-safe URGENT
	// default, never ROUTINE.
	ErrClassificationUnavailable = xerrors.New("classification unavailable")

	// ErrRoutingInvariant means urgency was still unset when the router ran.
	// This is a contract bug upstream: the run is marked failed and the
	// error is surfaced, never silently defaulted.
	ErrRoutingInvariant = xerrors.New("routing invariant violation: urgency unset")

	// ErrSynthesisUnavailable is recovered via the templated fallback
	// response built from handler notes.
	ErrSynthesisUnavailable = xerrors.New("synthesis unavailable")
)
