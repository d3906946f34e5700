package triage

import "fmt"

// Stage identifiers, in execution order. The three handler stages are
// mutually exclusive; exactly one appears in any completed run's trail.
const (
	StageExtract    = "extract"
	StageClassify   = "classify"
	StageRoute      = "route"
	StageEmergency  = "emergency"
	StageUrgent     = "urgent"
	StageRoutine    = "routine"
	StageSynthesize = "synthesize"
)

// route is a pure total function from the closed urgency enum to the handler
// stage. It fails only when urgency is still unset, which indicates a
// classifier contract violation upstream and must not be defaulted.
func route(u Urgency) (string, error) {
	switch u {
	case UrgencyEmergency:
		return StageEmergency, nil
	case UrgencyUrgent:
		return StageUrgent, nil
	case UrgencyRoutine:
		return StageRoutine, nil
	case UrgencyUnset:
		return "", ErrRoutingInvariant
	default:
		return "", fmt.Errorf("%w: unknown urgency %q", ErrRoutingInvariant, u)
	}
}
