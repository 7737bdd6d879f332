// Package entities contains the core domain objects for the stream report application
package entities

import (
	"time"
)

// Parameter identifies a tracked water-quality parameter.
// Values match the column headers of the Adopt-A-Stream export.
type Parameter string

const (
	AirTemp         Parameter = "Air_Temp"
	WaterTemp       Parameter = "Water_Temp"
	Conductivity    Parameter = "Conductivity"
	PH              Parameter = "PH"
	DissolvedOxygen Parameter = "DissolvedOxygen"
	Ecoli           Parameter = "ThreeMEcoli"
)

// TrackedParameters returns the parameters shown in the overview, in row order
func TrackedParameters() []Parameter {
	return []Parameter{AirTemp, WaterTemp, Conductivity, PH, DissolvedOxygen, Ecoli}
}

// Measurement represents a single field visit at a monitored site
type Measurement struct {
	SiteID       string
	SiteName     string
	DateToken    string    // Event date as written in the source, time of day removed
	EventDate    time.Time // Parsed calendar date, zero when DateValid is false
	DateValid    bool
	AirTemp      float64 // °C
	WaterTemp    float64 // °C
	PH           float64
	DO           float64 // mg/L
	DOSaturation float64 // %
	Conductivity float64 // µS/cm
	Ecoli        *float64 // CFU/100mL, nil when no sample was joined
}

// Value returns the reading for the given parameter.
// The second result is false when the measurement carries no value for it.
func (m Measurement) Value(p Parameter) (float64, bool) {
	switch p {
	case AirTemp:
		return m.AirTemp, true
	case WaterTemp:
		return m.WaterTemp, true
	case Conductivity:
		return m.Conductivity, true
	case PH:
		return m.PH, true
	case DissolvedOxygen:
		return m.DO, true
	case Ecoli:
		if m.Ecoli == nil {
			return 0, false
		}
		return *m.Ecoli, true
	}
	return 0, false
}

// EcoliSample is one entry of the E. coli series, validated apart from the core readings
type EcoliSample struct {
	DateToken string
	EventDate time.Time
	DateValid bool
	Count     float64
}

// LoadStats summarizes what the loader kept and dropped
type LoadStats struct {
	Rows            int // data rows after the header
	Incomplete      int // rows dropped from the core set
	EcoliIncomplete int // rows without a usable E. coli sample
	BadDates        int // kept rows whose date could not be parsed
}

// Dataset is the cleaned result of one load
type Dataset struct {
	Source       string
	Measurements []Measurement
	Ecoli        []EcoliSample
	Stats        LoadStats
}

// SiteName returns the site name of the first measurement, as the report title uses it
func (d *Dataset) SiteName() string {
	for _, m := range d.Measurements {
		if m.SiteName != "" {
			return m.SiteName
		}
	}
	return ""
}

// SiteID returns the site identifier of the first measurement
func (d *Dataset) SiteID() string {
	if len(d.Measurements) == 0 {
		return ""
	}
	return d.Measurements[0].SiteID
}
