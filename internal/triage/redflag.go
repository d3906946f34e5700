package triage

import (
	"regexp"
	"strings"
)

// redFlagRule is one deterministic emergency pattern. All listed patterns
// must match the text for the rule to fire.
type redFlagRule struct {
	name     string
	patterns []*regexp.Regexp
}

func rule(name string, patterns ...string) redFlagRule {
	r := redFlagRule{name: name}
	for _, p := range patterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// redFlagRules encode the red-flag vocabulary of the intake assessment
// policy. Any match unilaterally forces EMERGENCY; no secondary signal can
// lower it.
var redFlagRules = []redFlagRule{
	rule("chest pain with radiation",
		`(?i)chest (pain|pressure|tightness)`,
		`(?i)(radiat|arm|jaw|shoulder|numb|tingl)`),
	rule("difficulty breathing",
		`(?i)(can.?t|cannot|unable to|difficulty|struggling to|hard to) breath`),
	rule("shortness of breath",
		`(?i)short(ness)? of breath`),
	rule("sudden severe headache",
		`(?i)(sudden|worst|thunderclap).{0,30}headache|headache.{0,30}(sudden|worst)`),
	rule("stroke signs",
		`(?i)(face|facial) droop|slurred speech|one side.{0,20}(weak|numb)`),
	rule("loss of consciousness",
		`(?i)(passed out|fainted|lost consciousness|unconscious|blacked out)`),
	rule("uncontrolled bleeding",
		`(?i)(won.?t stop|uncontrolled|heavy|severe) bleed|bleed(ing)?.{0,20}won.?t stop`),
	rule("high fever with stiff neck",
		`(?i)fever`,
		`(?i)stiff neck`),
	rule("severe allergic reaction",
		`(?i)(throat|tongue|face).{0,20}swell|anaphyla`),
	rule("suicidal ideation",
		`(?i)(suicid|end(ing)? my life|kill(ing)? myself|don.?t want to (live|be alive))`),
	rule("unable to stand",
		`(?i)(can.?t|cannot|unable to) (stand|walk|move)`),
}

// redFlags runs the deterministic keyword pass over the raw message plus the
// extracted symptom text and returns the names of every rule that fired.
func redFlags(raw string, symptoms []Symptom) []string {
	var sb strings.Builder
	sb.WriteString(raw)
	for _, s := range symptoms {
		sb.WriteString("\n")
		sb.WriteString(s.Text)
		if s.SeverityHint != "" {
			sb.WriteString(" ")
			sb.WriteString(s.SeverityHint)
		}
	}
	text := sb.String()

	var matched []string
	for _, r := range redFlagRules {
		hit := true
		for _, p := range r.patterns {
			if !p.MatchString(text) {
				hit = false
				break
			}
		}
		if hit {
			matched = append(matched, r.name)
		}
	}
	return matched
}
