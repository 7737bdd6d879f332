package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelzeko/stream-report/internal/entities"
)

// Policy picks the representative value of a month from its readings
type Policy string

const (
	// PolicyFirst keeps the first reading encountered in record order
	PolicyFirst Policy = "first"
	// PolicyLatest keeps the reading with the greatest event date
	PolicyLatest Policy = "latest"
	// PolicyMean averages every reading of the month
	PolicyMean Policy = "mean"
)

// ParsePolicy validates a policy name. An empty name selects PolicyFirst.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyFirst, nil
	case PolicyFirst, PolicyLatest, PolicyMean:
		return p, nil
	default:
		return "", fmt.Errorf("unknown aggregation policy %q", name)
	}
}

type sample struct {
	date  time.Time
	value float64
}

// reduce expects at least one sample
func (p Policy) reduce(samples []sample) float64 {
	switch p {
	case PolicyLatest:
		best := samples[0]
		for _, s := range samples[1:] {
			if !s.date.Before(best.date) {
				best = s
			}
		}
		return best.value
	case PolicyMean:
		sum := 0.0
		for _, s := range samples {
			sum += s.value
		}
		return sum / float64(len(samples))
	default:
		return samples[0].value
	}
}

// Aggregator builds the monthly overview grid
type Aggregator struct {
	Rules      Rules
	Policy     Policy
	Parameters []entities.Parameter
}

// NewAggregator creates an aggregator over the tracked parameters
func NewAggregator(rules Rules, policy Policy) *Aggregator {
	if rules == nil {
		rules = DefaultRules()
	}
	if policy == "" {
		policy = PolicyFirst
	}
	return &Aggregator{
		Rules:      rules,
		Policy:     policy,
		Parameters: entities.TrackedParameters(),
	}
}

// Aggregate reduces the records to one cell per (parameter, month).
// Months of different years fall into the same column. Records without a
// valid date are ignored.
func (a *Aggregator) Aggregate(records []entities.Measurement) entities.MonthlyGrid {
	grid := entities.MonthlyGrid{Rows: make([]entities.MonthlyRow, 0, len(a.Parameters))}

	for _, p := range a.Parameters {
		row := entities.MonthlyRow{Parameter: p}
		var byMonth [12][]sample
		for _, m := range records {
			if !m.DateValid {
				continue
			}
			v, ok := m.Value(p)
			if !ok {
				// a visit without a sample is skipped rather than taken as a Bad first value
				continue
			}
			idx := m.EventDate.Month() - 1
			byMonth[idx] = append(byMonth[idx], sample{date: m.EventDate, value: v})
		}

		for i := range row.Cells {
			cell := entities.MonthlyCell{Parameter: p, Month: time.Month(i + 1), Status: entities.NoData}
			if len(byMonth[i]) > 0 {
				cell.Value = a.Policy.reduce(byMonth[i])
				cell.HasValue = true
				cell.Status = a.Rules.Classify(p, cell.Value)
			}
			row.Cells[i] = cell
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}
