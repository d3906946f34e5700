// Package triage provides the business boundary for intake's patient-message
// triage system. It defines the Service (lifecycle, async dispatch), Engine
// (the fixed-graph executor: extraction, urgency classification, branch
// handling, response synthesis), Store interface (persistence + audit trail),
// and domain models.
package triage
