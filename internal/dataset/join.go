// Package dataset joins and scopes the cleaned field visits
package dataset

import (
	"time"

	"github.com/abelzeko/stream-report/internal/entities"
)

// DefaultCutoff is the first day included in the overview
var DefaultCutoff = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Join attaches the E. coli series to the measurements by exact date token.
// The result has exactly the rows of records, in the same order. When several
// samples share a date the first one is used.
func Join(records []entities.Measurement, samples []entities.EcoliSample) []entities.Measurement {
	byDate := make(map[string]float64, len(samples))
	for _, s := range samples {
		if _, seen := byDate[s.DateToken]; !seen {
			byDate[s.DateToken] = s.Count
		}
	}

	joined := make([]entities.Measurement, len(records))
	for i, m := range records {
		m.Ecoli = nil
		if count, ok := byDate[m.DateToken]; ok {
			v := count
			m.Ecoli = &v
		}
		joined[i] = m
	}
	return joined
}

// FilterFrom keeps records with a valid date on or after cutoff
func FilterFrom(records []entities.Measurement, cutoff time.Time) []entities.Measurement {
	var kept []entities.Measurement
	for _, m := range records {
		if m.DateValid && !m.EventDate.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	return kept
}
