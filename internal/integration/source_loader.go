// Package integration reads Adopt-A-Stream exports into cleaned datasets
package integration

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/entities"
)

// Source column headers. SIte_ID keeps the spelling of the export.
const (
	ColSiteID       = "SIte_ID"
	ColSiteName     = "Site_Name"
	ColEventDate    = "Event_Date"
	ColAirTemp      = "Air_Temp"
	ColWaterTemp    = "Water_Temp"
	ColPH           = "PH"
	ColDO           = "DissolvedOxygen"
	ColDOSaturation = "DO_Saturation"
	ColConductivity = "Conductivity"
	ColEcoli        = "ThreeMEcoli"
)

// DefaultSkipRows is the number of title and summary rows above the header
const DefaultSkipRows = 8

var requiredColumns = []string{
	ColSiteID, ColSiteName, ColEventDate, ColAirTemp, ColWaterTemp,
	ColPH, ColDO, ColDOSaturation, ColConductivity, ColEcoli,
}

var dateLayouts = []string{"1/2/2006", "2006-01-02", "1/2/06", "01-02-2006"}

var (
	// ErrUnsupportedFormat is returned for files that are not csv, xlsx or html
	ErrUnsupportedFormat = errors.New("unsupported source format")
	// ErrNoHeader is returned when nothing is left after skipping the leading rows
	ErrNoHeader = errors.New("source has no header row")
)

// MissingColumnError reports expected columns absent from the header row
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing expected columns: %s", strings.Join(e.Columns, ", "))
}

// SourceLoader loads tabular exports of field visits
type SourceLoader struct {
	skipRows         int
	sheet            string
	intermediatePath string
}

// NewSourceLoader creates a loader that skips skipRows leading rows.
// When intermediatePath is not empty the rows after the skip are rewritten there as CSV.
func NewSourceLoader(skipRows int, sheet, intermediatePath string) *SourceLoader {
	if skipRows < 0 {
		skipRows = 0
	}
	return &SourceLoader{
		skipRows:         skipRows,
		sheet:            sheet,
		intermediatePath: intermediatePath,
	}
}

// Load reads the file at path and returns the core measurements and the E. coli series.
// The two sets are validated independently and not joined.
func (l *SourceLoader) Load(path string) (*entities.Dataset, error) {
	log.Printf("Loading source %s", path)

	rows, err := l.readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
	}

	if l.intermediatePath != "" {
		if err := WriteIntermediate(l.intermediatePath, rows); err != nil {
			return nil, fmt.Errorf("failed to write intermediate file: %w", err)
		}
		log.Printf("Wrote %d rows to %s", len(rows), l.intermediatePath)
	}

	ds, err := parseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Source = path

	log.WithFields(log.Fields{
		"rows":       ds.Stats.Rows,
		"kept":       len(ds.Measurements),
		"incomplete": ds.Stats.Incomplete,
		"ecoli":      len(ds.Ecoli),
		"bad_dates":  ds.Stats.BadDates,
	}).Info("Source loaded")

	return ds, nil
}

// readRows returns the rows that follow the skipped leading rows
func (l *SourceLoader) readRows(path string) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		// CSV exports are skipped by physical line, blank lines included
		return readCSVRows(path, l.skipRows)
	case ".xlsx":
		rows, err = readXLSXRows(path, l.sheet)
	case ".html", ".htm":
		rows, err = readHTMLRows(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) <= l.skipRows {
		return nil, nil
	}
	return rows[l.skipRows:], nil
}

// parseRows expects the header as the first row
func parseRows(rows [][]string) (*entities.Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	ds := &entities.Dataset{}
	for lineNo, row := range rows[1:] {
		get := func(col string) string {
			if i := index[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		if isBlank(row) {
			continue
		}
		ds.Stats.Rows++

		token := normalizeDate(get(ColEventDate))
		date, dateOK := parseDate(token)

		if sample, ok := parseEcoli(token, date, dateOK, get(ColEcoli)); ok {
			ds.Ecoli = append(ds.Ecoli, sample)
		} else {
			ds.Stats.EcoliIncomplete++
		}

		m, err := parseMeasurement(get, token)
		if err != nil {
			ds.Stats.Incomplete++
			log.Debugf("Dropping row %d: %v", lineNo+2, err)
			continue
		}
		m.EventDate, m.DateValid = date, dateOK
		if !dateOK {
			ds.Stats.BadDates++
			log.Debugf("Row %d has unparseable date %q", lineNo+2, token)
		}
		ds.Measurements = append(ds.Measurements, m)
	}

	return ds, nil
}

// columnIndex matches headers case-insensitively so Site_ID and SIte_ID are equivalent
func columnIndex(header []string) (map[string]int, error) {
	found := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := found[key]; !dup {
			found[key] = i
		}
	}

	index := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, col := range requiredColumns {
		i, ok := found[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}
	return index, nil
}

func parseMeasurement(get func(string) string, dateToken string) (entities.Measurement, error) {
	m := entities.Measurement{
		SiteID:    get(ColSiteID),
		SiteName:  get(ColSiteName),
		DateToken: dateToken,
	}
	if m.SiteID == "" {
		return m, fmt.Errorf("%s is empty", ColSiteID)
	}
	if m.SiteName == "" {
		return m, fmt.Errorf("%s is empty", ColSiteName)
	}
	if dateToken == "" {
		return m, fmt.Errorf("%s is empty", ColEventDate)
	}

	fields := []struct {
		col string
		dst *float64
	}{
		{ColAirTemp, &m.AirTemp},
		{ColWaterTemp, &m.WaterTemp},
		{ColPH, &m.PH},
		{ColDO, &m.DO},
		{ColDOSaturation, &m.DOSaturation},
		{ColConductivity, &m.Conductivity},
	}
	for _, f := range fields {
		v, err := parseNumber(get(f.col))
		if err != nil {
			return m, fmt.Errorf("%s: %v", f.col, err)
		}
		*f.dst = v
	}
	return m, nil
}

func parseEcoli(token string, date time.Time, dateOK bool, raw string) (entities.EcoliSample, bool) {
	if token == "" {
		return entities.EcoliSample{}, false
	}
	v, err := parseNumber(raw)
	if err != nil {
		return entities.EcoliSample{}, false
	}
	return entities.EcoliSample{
		DateToken: token,
		EventDate: date,
		DateValid: dateOK,
		Count:     v,
	}, true
}

// parseNumber treats NaN and infinities as missing, as spreadsheet exports mean them
func parseNumber(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("empty value %q", raw)
	}
	return v, nil
}

// normalizeDate drops the time of day, keeping the first whitespace-separated token
func normalizeDate(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func parseDate(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
