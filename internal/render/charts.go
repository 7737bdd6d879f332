package render

import (
	"fmt"
	"io"
	"math"

	log "github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/abelzeko/stream-report/internal/entities"
	"github.com/abelzeko/stream-report/internal/quality"
)

// Chart file names
const (
	TemperatureChart     = "air_water_temp.png"
	PHConductivityChart  = "ph_conductivity.png"
	DissolvedOxygenChart = "dissolved_oxygen.png"
	EcoliChart           = "ecoli.png"
)

const (
	chartWidth  = 1400
	chartHeight = 700
)

var (
	colorOrange = drawing.ColorFromHex("ffa500")
	colorRed    = drawing.ColorFromHex("ff0000")
	colorGreen  = drawing.ColorFromHex("008000")
	colorBlue   = drawing.ColorFromHex("0000ff")
)

// point is one plotted reading, x is its position in the series
type point struct {
	label  string
	value  float64
	status entities.Status
}

// CelsiusToFahrenheit truncates like the paper reports do
func CelsiusToFahrenheit(c float64) float64 {
	return float64(int(c*9/5 + 32))
}

// RenderCharts draws the four time-series views. Views without any reading are skipped.
// ds.Measurements are expected joined but not date-filtered.
func (r *Renderer) RenderCharts(ds *entities.Dataset) ([]string, error) {
	views := []struct {
		name  string
		build func(*entities.Dataset) (*chart.Chart, bool)
	}{
		{TemperatureChart, r.temperatureChart},
		{PHConductivityChart, r.phConductivityChart},
		{DissolvedOxygenChart, r.dissolvedOxygenChart},
		{EcoliChart, r.ecoliChart},
	}

	var written []string
	for _, v := range views {
		c, ok := v.build(ds)
		if !ok {
			log.Warnf("No data for %s, skipping chart", v.name)
			continue
		}
		path, err := r.writeChart(v.name, c)
		if err != nil {
			return written, err
		}
		log.Printf("Rendered chart %s", path)
		written = append(written, path)
	}
	return written, nil
}

func (r *Renderer) writeChart(name string, c *chart.Chart) (string, error) {
	return r.writeArtifact(name, func(w io.Writer) error {
		return c.Render(chart.PNG, w)
	})
}

func (r *Renderer) temperatureChart(ds *entities.Dataset) (*chart.Chart, bool) {
	if len(ds.Measurements) == 0 {
		return nil, false
	}
	var air, water []point
	for _, m := range ds.Measurements {
		label := tickLabel(m)
		air = append(air, point{label: label, value: CelsiusToFahrenheit(m.AirTemp), status: entities.Good})
		water = append(water, point{
			label:  label,
			value:  CelsiusToFahrenheit(m.WaterTemp),
			status: r.rules.Classify(entities.WaterTemp, m.WaterTemp),
		})
	}

	limit := CelsiusToFahrenheit(quality.WaterTempMaxC)
	series := []chart.Series{
		lineSeries("Air Temp", air, colorOrange, chart.YAxisPrimary),
		lineSeries("Water Temp", water, colorBlue, chart.YAxisPrimary),
		constantSeries(fmt.Sprintf("Water Temp Threshold - temps above %g is bad", limit), len(water), limit, colorRed),
	}
	series = appendImpaired(series, "Water Temp impaired", water)

	values := append(seriesValues(air), seriesValues(water)...)
	return r.newChart("Air & Water Temp", "Temperature (F)", air, series, values, limit), true
}

func (r *Renderer) phConductivityChart(ds *entities.Dataset) (*chart.Chart, bool) {
	if len(ds.Measurements) == 0 {
		return nil, false
	}
	var ph, conductivity []point
	for _, m := range ds.Measurements {
		label := tickLabel(m)
		ph = append(ph, point{label: label, value: m.PH, status: r.rules.Classify(entities.PH, m.PH)})
		conductivity = append(conductivity, point{label: label, value: m.Conductivity, status: entities.Good})
	}

	rule := r.rules.For(entities.PH)
	series := []chart.Series{lineSeries("PH", ph, colorBlue, chart.YAxisPrimary)}
	for i, line := range rule.Lines() {
		name := "Low-zone PH threshold"
		if i > 0 {
			name = "High-zone PH threshold"
		}
		series = append(series, constantSeries(name, len(ph), line, colorRed))
	}
	series = appendImpaired(series, "PH impaired", ph)
	series = append(series, lineSeries("Conductivity (uS/cm)", conductivity, colorGreen, chart.YAxisSecondary))

	c := r.newChart("pH & Conductivity", "PH", ph, series, seriesValues(ph), rule.Lines()...)
	c.YAxisSecondary = chart.YAxis{
		Name:  "Conductivity (uS/cm)",
		Range: paddedRange(seriesValues(conductivity)),
	}
	return c, true
}

func (r *Renderer) dissolvedOxygenChart(ds *entities.Dataset) (*chart.Chart, bool) {
	if len(ds.Measurements) == 0 {
		return nil, false
	}
	var do []point
	for _, m := range ds.Measurements {
		do = append(do, point{
			label:  tickLabel(m),
			value:  m.DO,
			status: r.rules.Classify(entities.DissolvedOxygen, m.DO),
		})
	}

	rule := r.rules.For(entities.DissolvedOxygen)
	series := []chart.Series{lineSeries("Dissolved Oxygen", do, colorBlue, chart.YAxisPrimary)}
	for _, line := range rule.Lines() {
		series = append(series, constantSeries(fmt.Sprintf("Anything <%g mg/L is bad", line), len(do), line, colorRed))
	}
	series = appendImpaired(series, "DO impaired", do)

	return r.newChart("Dissolved Oxygen (DO)", "Dissolved Oxygen (mg/L)", do, series, seriesValues(do), rule.Lines()...), true
}

func (r *Renderer) ecoliChart(ds *entities.Dataset) (*chart.Chart, bool) {
	if len(ds.Ecoli) == 0 {
		return nil, false
	}
	var counts []point
	for _, s := range ds.Ecoli {
		label := s.DateToken
		if s.DateValid {
			label = s.EventDate.Format("Jan 2006")
		}
		counts = append(counts, point{label: label, value: s.Count, status: r.rules.Classify(entities.Ecoli, s.Count)})
	}

	rule := r.rules.For(entities.Ecoli)
	series := []chart.Series{lineSeries("E. Coli", counts, colorGreen, chart.YAxisPrimary)}
	for _, line := range rule.Lines() {
		series = append(series, constantSeries(fmt.Sprintf("Anything >%g is bad", line), len(counts), line, colorRed))
	}
	series = appendImpaired(series, "E. Coli impaired", counts)

	return r.newChart("Three M Ecoli", "E. Coli (CFU/100mL)", counts, series, seriesValues(counts), rule.Lines()...), true
}

// newChart lays out a chart whose x axis is the position of each reading
func (r *Renderer) newChart(title, yName string, axis []point, series []chart.Series, values []float64, thresholds ...float64) *chart.Chart {
	// go-chart takes the x range from the outermost ticks, so unlabelled ticks at
	// the half positions keep a single reading drawable
	ticks := make([]chart.Tick, 0, len(axis)+2)
	ticks = append(ticks, chart.Tick{Value: -0.5})
	for i, p := range axis {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: p.label})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(axis)) - 0.5})

	c := &chart.Chart{
		Title:      fmt.Sprintf("%s | %s", title, r.labels.Location()),
		TitleStyle: chart.Style{FontSize: 12},
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  "Date",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(axis)) - 0.5},
			Style: chart.Style{TextRotationDegrees: 70, FontSize: 8},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: paddedRange(append(values, thresholds...)),
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(c)}
	return c
}

func tickLabel(m entities.Measurement) string {
	if m.DateValid {
		return m.EventDate.Format("Jan 2006")
	}
	return m.DateToken
}

func lineSeries(name string, points []point, color drawing.Color, axis chart.YAxisType) chart.ContinuousSeries {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.value
	}
	return chart.ContinuousSeries{
		Name:    name,
		YAxis:   axis,
		Style:   chart.Style{StrokeColor: color, StrokeWidth: 2, DotColor: color, DotWidth: 3},
		XValues: xs,
		YValues: ys,
	}
}

// constantSeries draws a threshold across every reading position
func constantSeries(name string, n int, value float64, color drawing.Color) chart.ContinuousSeries {
	if n < 2 {
		n = 2
	}
	xs := []float64{-0.5, float64(n) - 0.5}
	return chart.ContinuousSeries{
		Name:    name,
		Style:   chart.Style{StrokeColor: color, StrokeWidth: 1.5, StrokeDashArray: []float64{6, 4}},
		XValues: xs,
		YValues: []float64{value, value},
	}
}

// appendImpaired adds a marker-only series over the Bad readings, if any
func appendImpaired(series []chart.Series, name string, points []point) []chart.Series {
	var xs, ys []float64
	for i, p := range points {
		if p.status == entities.Bad {
			xs = append(xs, float64(i))
			ys = append(ys, p.value)
		}
	}
	if len(xs) == 0 {
		return series
	}
	return append(series, chart.ContinuousSeries{
		Name:    name,
		Style:   chart.Style{StrokeWidth: chart.Disabled, DotColor: colorRed, DotWidth: 7},
		XValues: xs,
		YValues: ys,
	})
}

func seriesValues(points []point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.value
	}
	return values
}

// paddedRange never returns an empty range, which go-chart refuses to draw
func paddedRange(values []float64) *chart.ContinuousRange {
	if len(values) == 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
