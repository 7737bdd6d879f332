// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/entities"
)

const dateLayout = "2006-01-02"

// MeasurementRepository defines the interface for report snapshot persistence
type MeasurementRepository interface {
	SaveReport(run *entities.ReportRun) error
	GetMeasurementsBySite(siteID string) ([]entities.Measurement, error)
	GetMonthlyGrid(siteID string) (entities.MonthlyGrid, error)
	GetLastRun() (*entities.ReportRun, error)
	GetRun(id string) (*entities.ReportRun, error)
	Close() error
}

// SQLiteMeasurementRepository implements MeasurementRepository using SQLite
type SQLiteMeasurementRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteMeasurementRepository opens the database and creates the schema
func NewSQLiteMeasurementRepository(dbPath string) (*SQLiteMeasurementRepository, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "stream-report.db")
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id TEXT NOT NULL,
		site_name TEXT,
		position INTEGER NOT NULL,
		date_token TEXT NOT NULL,
		event_date TEXT,
		air_temp REAL,
		water_temp REAL,
		ph REAL,
		dissolved_oxygen REAL,
		do_saturation REAL,
		conductivity REAL,
		ecoli REAL
	);
	CREATE INDEX IF NOT EXISTS idx_measurements_site ON measurements(site_id);
	CREATE TABLE IF NOT EXISTS monthly_status (
		site_id TEXT NOT NULL,
		parameter TEXT NOT NULL,
		month INTEGER NOT NULL,
		value REAL,
		status TEXT NOT NULL,
		PRIMARY KEY(site_id, parameter, month)
	);
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		site_name TEXT,
		source TEXT,
		policy TEXT,
		cutoff TEXT,
		generated_at TEXT NOT NULL,
		rows_read INTEGER,
		rows_incomplete INTEGER,
		ecoli_incomplete INTEGER,
		bad_dates INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_generated ON report_runs(generated_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteMeasurementRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteMeasurementRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveReport replaces the stored measurements and monthly statuses of the run's site
// and records the run itself, all in one transaction
func (r *SQLiteMeasurementRepository) SaveReport(run *entities.ReportRun) error {
	if run == nil {
		return errors.New("nil report run")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := saveReport(tx, run); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"run":          run.ID,
		"site":         run.SiteID,
		"measurements": len(run.Measurements),
	}).Info("Saved report snapshot")
	return nil
}

func saveReport(tx *sql.Tx, run *entities.ReportRun) error {
	if _, err := tx.Exec(`DELETE FROM measurements WHERE site_id = ?`, run.SiteID); err != nil {
		return fmt.Errorf("failed to clear measurements for %s: %w", run.SiteID, err)
	}
	if _, err := tx.Exec(`DELETE FROM monthly_status WHERE site_id = ?`, run.SiteID); err != nil {
		return fmt.Errorf("failed to clear monthly status for %s: %w", run.SiteID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO measurements(site_id, site_name, position, date_token, event_date,
			air_temp, water_temp, ph, dissolved_oxygen, do_saturation, conductivity, ecoli)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, m := range run.Measurements {
		var eventDate sql.NullString
		if m.DateValid {
			eventDate = sql.NullString{String: m.EventDate.Format(dateLayout), Valid: true}
		}
		var ecoli sql.NullFloat64
		if m.Ecoli != nil {
			ecoli = sql.NullFloat64{Float64: *m.Ecoli, Valid: true}
		}
		if _, err := stmt.Exec(
			run.SiteID,
			m.SiteName,
			i,
			m.DateToken,
			eventDate,
			m.AirTemp,
			m.WaterTemp,
			m.PH,
			m.DO,
			m.DOSaturation,
			m.Conductivity,
			ecoli,
		); err != nil {
			return fmt.Errorf("failed to insert measurement %s: %w", m.DateToken, err)
		}
	}

	statusStmt, err := tx.Prepare(`
		INSERT INTO monthly_status(site_id, parameter, month, value, status)
		VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statusStmt.Close()

	for _, row := range run.Grid.Rows {
		for _, c := range row.Cells {
			var value sql.NullFloat64
			if c.HasValue {
				value = sql.NullFloat64{Float64: c.Value, Valid: true}
			}
			if _, err := statusStmt.Exec(run.SiteID, string(row.Parameter), int(c.Month), value, c.Status.String()); err != nil {
				return fmt.Errorf("failed to insert status for %s %s: %w", row.Parameter, c.Month, err)
			}
		}
	}

	var cutoff sql.NullString
	if !run.Cutoff.IsZero() {
		cutoff = sql.NullString{String: run.Cutoff.Format(dateLayout), Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO report_runs(id, site_id, site_name, source, policy, cutoff, generated_at,
			rows_read, rows_incomplete, ecoli_incomplete, bad_dates)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SiteID,
		run.SiteName,
		run.Source,
		run.Policy,
		cutoff,
		run.GeneratedAt.UTC().Format(time.RFC3339),
		run.Stats.Rows,
		run.Stats.Incomplete,
		run.Stats.EcoliIncomplete,
		run.Stats.BadDates,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// GetMeasurementsBySite returns the stored measurements of a site in their original order
func (r *SQLiteMeasurementRepository) GetMeasurementsBySite(siteID string) ([]entities.Measurement, error) {
	query := `
		SELECT site_id, site_name, date_token, event_date, air_temp, water_temp, ph,
			dissolved_oxygen, do_saturation, conductivity, ecoli
		FROM measurements
		WHERE site_id = ?
		ORDER BY position`

	rows, err := r.db.Query(query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements for %s: %w", siteID, err)
	}
	defer rows.Close()

	var result []entities.Measurement
	for rows.Next() {
		var (
			m         entities.Measurement
			siteName  sql.NullString
			eventDate sql.NullString
			ecoli     sql.NullFloat64
		)
		if err := rows.Scan(
			&m.SiteID,
			&siteName,
			&m.DateToken,
			&eventDate,
			&m.AirTemp,
			&m.WaterTemp,
			&m.PH,
			&m.DO,
			&m.DOSaturation,
			&m.Conductivity,
			&ecoli,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m.SiteName = siteName.String
		if eventDate.Valid {
			d, err := time.Parse(dateLayout, eventDate.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse event date '%s': %w", eventDate.String, err)
			}
			m.EventDate = d
			m.DateValid = true
		}
		if ecoli.Valid {
			v := ecoli.Float64
			m.Ecoli = &v
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// GetMonthlyGrid rebuilds the stored overview grid of a site.
// Rows follow the tracked parameter order; an unknown site yields an empty grid.
func (r *SQLiteMeasurementRepository) GetMonthlyGrid(siteID string) (entities.MonthlyGrid, error) {
	rows, err := r.db.Query(`
		SELECT parameter, month, value, status
		FROM monthly_status
		WHERE site_id = ?`, siteID)
	if err != nil {
		return entities.MonthlyGrid{}, fmt.Errorf("failed to query monthly status for %s: %w", siteID, err)
	}
	defer rows.Close()

	byParam := make(map[entities.Parameter]*entities.MonthlyRow)
	for rows.Next() {
		var (
			param  string
			month  int
			value  sql.NullFloat64
			status string
		)
		if err := rows.Scan(&param, &month, &value, &status); err != nil {
			return entities.MonthlyGrid{}, fmt.Errorf("failed to scan row: %w", err)
		}
		if month < 1 || month > 12 {
			continue
		}
		p := entities.Parameter(param)
		row, ok := byParam[p]
		if !ok {
			row = newRow(p)
			byParam[p] = row
		}
		row.Cells[month-1] = entities.MonthlyCell{
			Parameter: p,
			Month:     time.Month(month),
			Value:     value.Float64,
			HasValue:  value.Valid,
			Status:    entities.ParseStatus(status),
		}
	}
	if err := rows.Err(); err != nil {
		return entities.MonthlyGrid{}, fmt.Errorf("error during row iteration: %w", err)
	}

	var grid entities.MonthlyGrid
	for _, p := range entities.TrackedParameters() {
		if row, ok := byParam[p]; ok {
			grid.Rows = append(grid.Rows, *row)
		}
	}
	return grid, nil
}

func newRow(p entities.Parameter) *entities.MonthlyRow {
	row := &entities.MonthlyRow{Parameter: p}
	for i := range row.Cells {
		row.Cells[i] = entities.MonthlyCell{Parameter: p, Month: time.Month(i + 1)}
	}
	return row
}

// GetLastRun returns the most recently generated run without its measurements or grid.
// It returns nil when no run was recorded yet.
func (r *SQLiteMeasurementRepository) GetLastRun() (*entities.ReportRun, error) {
	return r.getRun(runSelect + `
		ORDER BY generated_at DESC, rowid DESC
		LIMIT 1`)
}

// GetRun returns the run with the given id without its measurements or grid,
// or nil when there is no such run
func (r *SQLiteMeasurementRepository) GetRun(id string) (*entities.ReportRun, error) {
	return r.getRun(runSelect+`
		WHERE id = ?`, id)
}

const runSelect = `
		SELECT id, site_id, site_name, source, policy, cutoff, generated_at,
			rows_read, rows_incomplete, ecoli_incomplete, bad_dates
		FROM report_runs`

func (r *SQLiteMeasurementRepository) getRun(query string, args ...interface{}) (*entities.ReportRun, error) {
	var (
		run         entities.ReportRun
		siteName    sql.NullString
		source      sql.NullString
		policy      sql.NullString
		cutoff      sql.NullString
		generatedAt string
	)
	err := r.db.QueryRow(query, args...).Scan(
		&run.ID,
		&run.SiteID,
		&siteName,
		&source,
		&policy,
		&cutoff,
		&generatedAt,
		&run.Stats.Rows,
		&run.Stats.Incomplete,
		&run.Stats.EcoliIncomplete,
		&run.Stats.BadDates,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.SiteName = siteName.String
	run.Source = source.String
	run.Policy = policy.String
	if cutoff.Valid {
		if run.Cutoff, err = time.Parse(dateLayout, cutoff.String); err != nil {
			return nil, fmt.Errorf("failed to parse cutoff '%s': %w", cutoff.String, err)
		}
	}
	if run.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse timestamp '%s': %w", generatedAt, err)
	}
	return &run, nil
}
