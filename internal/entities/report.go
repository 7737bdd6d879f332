package entities

import "time"

// ReportRun is one generated report, as persisted in the snapshot database
type ReportRun struct {
	ID           string
	SiteID       string
	SiteName     string
	Source       string
	Policy       string
	Cutoff       time.Time
	GeneratedAt  time.Time
	Stats        LoadStats
	Measurements []Measurement
	Grid         MonthlyGrid
}

// Impaired reports whether any month of the run was classified Bad
func (r *ReportRun) Impaired() bool {
	return len(r.Grid.Impairments()) > 0
}
