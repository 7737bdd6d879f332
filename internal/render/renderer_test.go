package render

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"github.com/abelzeko/stream-report/internal/entities"
	"github.com/abelzeko/stream-report/internal/quality"
)

var testLabels = Labels{
	SiteName:   "Hillside Commons",
	City:       "Grayson",
	County:     "Gwinnett",
	Watershed:  "Upper Ocmulgee River Watershed",
	ReportYear: 2023,
}

func count(v float64) *float64 { return &v }

func testDataset() *entities.Dataset {
	mk := func(token string, date time.Time, water, ph, do float64, e *float64) entities.Measurement {
		return entities.Measurement{
			SiteID: "1234", SiteName: "Hillside Commons", DateToken: token,
			EventDate: date, DateValid: !date.IsZero(),
			AirTemp: 21, WaterTemp: water, PH: ph, DO: do, DOSaturation: 85, Conductivity: 120, Ecoli: e,
		}
	}
	return &entities.Dataset{
		Measurements: []entities.Measurement{
			mk("1/14/2023", time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC), 8, 6.9, 11, count(130)),
			mk("2/11/2023", time.Date(2023, 2, 11, 0, 0, 0, 0, time.UTC), 33, 9.0, 3.5, nil),
			mk("bogus", time.Time{}, 14, 7.2, 8, nil),
		},
		Ecoli: []entities.EcoliSample{
			{DateToken: "1/14/2023", EventDate: time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC), DateValid: true, Count: 130},
			{DateToken: "4/15/2023", EventDate: time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC), DateValid: true, Count: 2400},
		},
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is not a png", path)
}

func TestLabelsLocation(t *testing.T) {
	assert.Equal(t, "Hillside Commons, City: Grayson, County: Gwinnett, Upper Ocmulgee River Watershed", testLabels.Location())
	assert.Equal(t, "City: Grayson", Labels{City: "Grayson"}.Location())
}

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.Equal(t, 89.0, CelsiusToFahrenheit(32.2))
	assert.Equal(t, 32.0, CelsiusToFahrenheit(0))
	assert.Equal(t, 46.0, CelsiusToFahrenheit(8))
}

func TestRenderCharts(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, testLabels, nil)

	paths, err := r.RenderCharts(testDataset())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, name := range []string{TemperatureChart, PHConductivityChart, DissolvedOxygenChart, EcoliChart} {
		assertPNG(t, filepath.Join(dir, name))
	}
}

func TestRenderChartsSinglePoint(t *testing.T) {
	ds := testDataset()
	ds.Measurements = ds.Measurements[:1]
	ds.Ecoli = nil

	r := NewRenderer(t.TempDir(), testLabels, nil)
	paths, err := r.RenderCharts(ds)
	require.NoError(t, err)
	assert.Len(t, paths, 3, "the E. coli view has no data")
}

func TestRenderChartsSingleSample(t *testing.T) {
	ds := testDataset()
	ds.Measurements = ds.Measurements[1:2]
	ds.Ecoli = ds.Ecoli[1:]

	dir := t.TempDir()
	paths, err := NewRenderer(dir, testLabels, nil).RenderCharts(ds)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	for _, path := range paths {
		assertPNG(t, path)
	}
}

func TestFailedRenderLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, testLabels, nil)

	_, err := r.writeChart(TemperatureChart, &chart.Chart{})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, TemperatureChart))

	_, err = r.writeArtifact(OverviewImage, func(w io.Writer) error {
		if _, err := w.Write([]byte("\x89PNG partial")); err != nil {
			return err
		}
		return errors.New("encoder failed")
	})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, OverviewImage))
}

func TestRenderChartsEmpty(t *testing.T) {
	r := NewRenderer(t.TempDir(), testLabels, nil)
	paths, err := r.RenderCharts(&entities.Dataset{})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRenderOverviewColors(t *testing.T) {
	ds := testDataset()
	grid := quality.NewAggregator(nil, quality.PolicyFirst).Aggregate(ds.Measurements)

	dir := t.TempDir()
	path, err := NewRenderer(dir, testLabels, nil).RenderOverview(grid)
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	pixel := func(row, col int) [3]uint32 {
		rect := cellRect(row, col)
		r, g, b, _ := img.At(rect.Min.X+3, rect.Min.Y+3).RGBA()
		return [3]uint32{r >> 8, g >> 8, b >> 8}
	}

	// rows: 1 Air_Temp, 2 Water_Temp; columns: 1 Jan, 2 Feb, 3 Mar
	assert.Equal(t, [3]uint32{0, 128, 0}, pixel(2, 1), "water temp January is good")
	assert.Equal(t, [3]uint32{255, 0, 0}, pixel(2, 2), "water temp February is bad")
	assert.Equal(t, [3]uint32{255, 255, 255}, pixel(2, 3), "no data in March")
	assert.Equal(t, [3]uint32{221, 221, 221}, pixel(0, 1), "header")
}

func TestRenderWorkbook(t *testing.T) {
	ds := testDataset()
	grid := quality.NewAggregator(nil, quality.PolicyFirst).Aggregate(ds.Measurements)

	path, err := NewRenderer(t.TempDir(), testLabels, nil).RenderWorkbook(grid, ds.Measurements)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(OverviewSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Water Quality Overview Report 2023", title)

	header, err := f.GetCellValue(OverviewSheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Parameter", header)

	param, err := f.GetCellValue(OverviewSheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Water_Temp", param)

	jan, err := f.GetCellValue(OverviewSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "8", jan)

	goodStyle, err := f.GetCellStyle(OverviewSheet, "B6")
	require.NoError(t, err)
	badStyle, err := f.GetCellStyle(OverviewSheet, "C6")
	require.NoError(t, err)
	emptyStyle, err := f.GetCellStyle(OverviewSheet, "D6")
	require.NoError(t, err)
	assert.NotEqual(t, goodStyle, badStyle)
	assert.NotEqual(t, goodStyle, emptyStyle)

	rows, err := f.GetRows(MeasurementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(ds.Measurements))
	assert.Equal(t, "2023-01-14", rows[1][2])
	assert.Equal(t, "bogus", rows[3][2])
}
