package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/stream-report/internal/entities"
)

func newTestRepo(t *testing.T) *SQLiteMeasurementRepository {
	t.Helper()
	repo, err := NewSQLiteMeasurementRepository(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRun(id string, generated time.Time) *entities.ReportRun {
	ecoli := 2400.0
	jan := time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC)

	grid := entities.MonthlyGrid{}
	for _, p := range entities.TrackedParameters() {
		row := entities.MonthlyRow{Parameter: p}
		for i := range row.Cells {
			row.Cells[i] = entities.MonthlyCell{Parameter: p, Month: time.Month(i + 1)}
		}
		grid.Rows = append(grid.Rows, row)
	}
	grid.Rows[1].Cells[0] = entities.MonthlyCell{Parameter: entities.WaterTemp, Month: time.January, Value: 8, HasValue: true, Status: entities.Good}
	grid.Rows[5].Cells[0] = entities.MonthlyCell{Parameter: entities.Ecoli, Month: time.January, Value: 2400, HasValue: true, Status: entities.Bad}

	return &entities.ReportRun{
		ID:          id,
		SiteID:      "1234",
		SiteName:    "Hillside Commons",
		Source:      "data.csv",
		Policy:      "first",
		Cutoff:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: generated,
		Stats:       entities.LoadStats{Rows: 5, Incomplete: 2, EcoliIncomplete: 3, BadDates: 1},
		Measurements: []entities.Measurement{
			{SiteID: "1234", SiteName: "Hillside Commons", DateToken: "1/14/2023", EventDate: jan, DateValid: true,
				AirTemp: 5, WaterTemp: 8, PH: 7, DO: 11, DOSaturation: 90, Conductivity: 120, Ecoli: &ecoli},
			{SiteID: "1234", SiteName: "Hillside Commons", DateToken: "someday",
				AirTemp: 6, WaterTemp: 9, PH: 7.1, DO: 10, DOSaturation: 88, Conductivity: 118},
		},
		Grid: grid,
	}
}

func TestSaveAndReadBack(t *testing.T) {
	repo := newTestRepo(t)
	run := testRun("run-1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, repo.SaveReport(run))

	stored, err := repo.GetMeasurementsBySite("1234")
	require.NoError(t, err)
	assert.Equal(t, run.Measurements, stored)

	grid, err := repo.GetMonthlyGrid("1234")
	require.NoError(t, err)
	assert.Equal(t, run.Grid, grid)

	cell, ok := grid.Cell(entities.Ecoli, time.January)
	require.True(t, ok)
	assert.Equal(t, entities.Bad, cell.Status)
	assert.Equal(t, 2400.0, cell.Value)
}

func TestSaveReportReplacesSite(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveReport(testRun("run-1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))))
	second := testRun("run-2", time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	second.Measurements = second.Measurements[:1]
	require.NoError(t, repo.SaveReport(second))

	stored, err := repo.GetMeasurementsBySite("1234")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	grid, err := repo.GetMonthlyGrid("1234")
	require.NoError(t, err)
	assert.Len(t, grid.Rows, len(entities.TrackedParameters()))
}

func TestGetLastRun(t *testing.T) {
	repo := newTestRepo(t)

	last, err := repo.GetLastRun()
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, repo.SaveReport(testRun("run-1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))))
	require.NoError(t, repo.SaveReport(testRun("run-2", time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))))

	last, err = repo.GetLastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, "Hillside Commons", last.SiteName)
	assert.Equal(t, entities.LoadStats{Rows: 5, Incomplete: 2, EcoliIncomplete: 3, BadDates: 1}, last.Stats)
	assert.True(t, last.GeneratedAt.Equal(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), last.Cutoff)
}

func TestUnknownSite(t *testing.T) {
	repo := newTestRepo(t)

	stored, err := repo.GetMeasurementsBySite("missing")
	require.NoError(t, err)
	assert.Empty(t, stored)

	grid, err := repo.GetMonthlyGrid("missing")
	require.NoError(t, err)
	assert.Empty(t, grid.Rows)
}

func TestSaveNilRun(t *testing.T) {
	repo := newTestRepo(t)
	assert.Error(t, repo.SaveReport(nil))
}

func TestGetRun(t *testing.T) {
	repo := newTestRepo(t)
	generated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveReport(testRun("run-1", generated)))
	require.NoError(t, repo.SaveReport(testRun("run-2", generated)))

	run, err := repo.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.ID)

	missing, err := repo.GetRun("run-3")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetLastRunSameSecond(t *testing.T) {
	repo := newTestRepo(t)
	generated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveReport(testRun("run-b", generated)))
	require.NoError(t, repo.SaveReport(testRun("run-a", generated.Add(300*time.Millisecond))))

	last, err := repo.GetLastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-a", last.ID, "ties on the stored second go to the later insert")
}
