package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/stream-report/internal/entities"
)

func ecoli(v float64) *float64 { return &v }

func visit(date string, water, ph, do float64, e *float64) entities.Measurement {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return entities.Measurement{
		SiteID:       "1234",
		SiteName:     "Hillside Commons",
		DateToken:    date,
		EventDate:    d,
		DateValid:    true,
		AirTemp:      20,
		WaterTemp:    water,
		PH:           ph,
		DO:           do,
		DOSaturation: 90,
		Conductivity: 110,
		Ecoli:        e,
	}
}

func TestAggregateFebruaryOnly(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-02-11", 12, 7, 9, ecoli(200)),
	}

	grid := NewAggregator(nil, PolicyFirst).Aggregate(records)
	require.Len(t, grid.Rows, 6)

	for _, row := range grid.Rows {
		for _, cell := range row.Cells {
			if cell.Month == time.February {
				assert.NotEqual(t, entities.NoData, cell.Status, "%s Feb", row.Parameter)
				assert.True(t, cell.HasValue)
			} else {
				assert.Equal(t, entities.NoData, cell.Status, "%s %s", row.Parameter, cell.Month)
				assert.False(t, cell.HasValue)
			}
		}
	}
}

func TestAggregateRowOrder(t *testing.T) {
	grid := NewAggregator(nil, "").Aggregate(nil)

	var got []entities.Parameter
	for _, row := range grid.Rows {
		got = append(got, row.Parameter)
		for i, cell := range row.Cells {
			assert.Equal(t, time.Month(i+1), cell.Month)
			assert.Equal(t, entities.NoData, cell.Status)
		}
	}
	assert.Equal(t, []entities.Parameter{"Air_Temp", "Water_Temp", "Conductivity", "PH", "DissolvedOxygen", "ThreeMEcoli"}, got)
}

func TestAggregateClassifiesRepresentativeValue(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-07-08", 33.0, 5.5, 3.5, ecoli(1500)),
		visit("2023-07-22", 20.0, 7.0, 8.0, ecoli(10)),
	}

	grid := NewAggregator(nil, PolicyFirst).Aggregate(records)

	for _, p := range []entities.Parameter{entities.WaterTemp, entities.PH, entities.DissolvedOxygen, entities.Ecoli} {
		cell, ok := grid.Cell(p, time.July)
		require.True(t, ok)
		assert.Equal(t, entities.Bad, cell.Status, string(p))
	}
	cell, _ := grid.Cell(entities.AirTemp, time.July)
	assert.Equal(t, entities.Good, cell.Status)
	assert.Len(t, grid.Impairments(), 4)
}

func TestAggregateCollapsesYears(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-03-04", 10, 7, 9, nil),
		visit("2024-03-09", 11, 7, 9, nil),
	}

	grid := NewAggregator(nil, PolicyFirst).Aggregate(records)
	cell, _ := grid.Cell(entities.WaterTemp, time.March)
	assert.Equal(t, 10.0, cell.Value)
}

func TestAggregateMissingEcoliIsNoData(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-05-06", 15, 7, 9, nil),
		visit("2023-06-03", 16, 7, 9, ecoli(300)),
	}

	grid := NewAggregator(nil, PolicyFirst).Aggregate(records)

	may, _ := grid.Cell(entities.Ecoli, time.May)
	assert.Equal(t, entities.NoData, may.Status)
	june, _ := grid.Cell(entities.Ecoli, time.June)
	assert.Equal(t, entities.Good, june.Status)
	assert.Equal(t, 300.0, june.Value)
}

func TestAggregateSkipsInvalidDates(t *testing.T) {
	bad := visit("2023-08-05", 40, 7, 9, nil)
	bad.DateValid = false

	grid := NewAggregator(nil, PolicyFirst).Aggregate([]entities.Measurement{bad})
	assert.Empty(t, grid.Impairments())
}

func TestAggregatePolicies(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-09-16", 30, 7, 9, nil),
		visit("2023-09-02", 20, 7, 9, nil),
		visit("2023-09-30", 34, 7, 9, nil),
	}

	tests := []struct {
		policy Policy
		want   float64
		status entities.Status
	}{
		{PolicyFirst, 30, entities.Good},
		{PolicyLatest, 34, entities.Bad},
		{PolicyMean, 28, entities.Good},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			grid := NewAggregator(nil, tt.policy).Aggregate(records)
			cell, _ := grid.Cell(entities.WaterTemp, time.September)
			assert.InDelta(t, tt.want, cell.Value, 1e-9)
			assert.Equal(t, tt.status, cell.Status)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	p, err = ParsePolicy(" Mean ")
	require.NoError(t, err)
	assert.Equal(t, PolicyMean, p)

	_, err = ParsePolicy("median")
	assert.Error(t, err)
}

func TestAggregateIsIdempotent(t *testing.T) {
	records := []entities.Measurement{
		visit("2023-01-14", 8, 6.5, 11, ecoli(40)),
		visit("2023-04-15", 18, 9.1, 7, nil),
		visit("2023-10-21", 19, 7.2, 3, ecoli(2400)),
	}
	agg := NewAggregator(nil, PolicyFirst)
	assert.Equal(t, agg.Aggregate(records), agg.Aggregate(records))
}
