// Package quality classifies readings against the stream health thresholds
// and reduces a season of field visits to the monthly overview grid.
package quality

import (
	"fmt"

	"github.com/abelzeko/stream-report/internal/entities"
)

// Thresholds used by the overview. Bounds are inclusive: a reading equal to a
// bound passes.
const (
	WaterTempMaxC      = 32.2
	EcoliMaxCFU        = 1000.0
	DissolvedOxygenMin = 4.0
	PHMin              = 6.0
	PHMax              = 8.5
)

// RuleKind selects how a Rule compares a value
type RuleKind int

const (
	NoThresholdKind RuleKind = iota
	UpperBoundKind
	LowerBoundKind
	RangeKind
)

// Rule is the pass/fail boundary of one parameter
type Rule struct {
	Kind RuleKind
	Low  float64
	High float64
}

// NoThreshold always passes
func NoThreshold() Rule { return Rule{Kind: NoThresholdKind} }

// UpperBound passes values at or below b
func UpperBound(b float64) Rule { return Rule{Kind: UpperBoundKind, High: b} }

// LowerBound passes values at or above b
func LowerBound(b float64) Rule { return Rule{Kind: LowerBoundKind, Low: b} }

// Range passes values within [lo, hi]
func Range(lo, hi float64) Rule { return Rule{Kind: RangeKind, Low: lo, High: hi} }

// Passes reports whether v is acceptable under the rule
func (r Rule) Passes(v float64) bool {
	switch r.Kind {
	case UpperBoundKind:
		return v <= r.High
	case LowerBoundKind:
		return v >= r.Low
	case RangeKind:
		return v >= r.Low && v <= r.High
	default:
		return true
	}
}

// Lines returns the constant values drawn as threshold overlays
func (r Rule) Lines() []float64 {
	switch r.Kind {
	case UpperBoundKind:
		return []float64{r.High}
	case LowerBoundKind:
		return []float64{r.Low}
	case RangeKind:
		return []float64{r.Low, r.High}
	}
	return nil
}

func (r Rule) String() string {
	switch r.Kind {
	case UpperBoundKind:
		return fmt.Sprintf("<= %g", r.High)
	case LowerBoundKind:
		return fmt.Sprintf(">= %g", r.Low)
	case RangeKind:
		return fmt.Sprintf("%g..%g", r.Low, r.High)
	}
	return "no threshold"
}

// Classify returns Good or Bad for a value of parameter p under rule.
// The parameter does not influence the result; it is accepted so callers
// classify with the same signature they use to look the rule up.
func Classify(p entities.Parameter, value float64, rule Rule) entities.Status {
	if rule.Passes(value) {
		return entities.Good
	}
	return entities.Bad
}

// Rules maps each parameter to its threshold
type Rules map[entities.Parameter]Rule

// DefaultRules returns the fixed threshold table
func DefaultRules() Rules {
	return Rules{
		entities.AirTemp:         NoThreshold(),
		entities.WaterTemp:       UpperBound(WaterTempMaxC),
		entities.Conductivity:    NoThreshold(),
		entities.PH:              Range(PHMin, PHMax),
		entities.DissolvedOxygen: LowerBound(DissolvedOxygenMin),
		entities.Ecoli:           UpperBound(EcoliMaxCFU),
	}
}

// For returns the rule of p, NoThreshold when p has none
func (r Rules) For(p entities.Parameter) Rule {
	if rule, ok := r[p]; ok {
		return rule
	}
	return NoThreshold()
}

// Classify looks up the rule of p and classifies value with it
func (r Rules) Classify(p entities.Parameter, value float64) entities.Status {
	return Classify(p, value, r.For(p))
}
