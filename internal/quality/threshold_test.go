package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abelzeko/stream-report/internal/entities"
)

func TestClassifyBoundaries(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name      string
		parameter entities.Parameter
		value     float64
		want      entities.Status
	}{
		{"water temp at bound", entities.WaterTemp, 32.2, entities.Good},
		{"water temp above bound", entities.WaterTemp, 32.3, entities.Bad},
		{"ph low edge", entities.PH, 6.0, entities.Good},
		{"ph high edge", entities.PH, 8.5, entities.Good},
		{"ph below range", entities.PH, 5.99, entities.Bad},
		{"ph above range", entities.PH, 8.51, entities.Bad},
		{"do at bound", entities.DissolvedOxygen, 4.0, entities.Good},
		{"do below bound", entities.DissolvedOxygen, 3.99, entities.Bad},
		{"ecoli at bound", entities.Ecoli, 1000, entities.Good},
		{"ecoli above bound", entities.Ecoli, 1001, entities.Bad},
		{"air temp has no threshold", entities.AirTemp, 55, entities.Good},
		{"conductivity has no threshold", entities.Conductivity, 99999, entities.Good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.parameter, tt.value, rules.For(tt.parameter))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsTotalAndStable(t *testing.T) {
	rules := []Rule{NoThreshold(), UpperBound(10), LowerBound(-3), Range(1, 2)}
	values := []float64{-1e9, -3, -2.5, 0, 1, 1.5, 2, 10, 10.0001, 1e9}

	for _, rule := range rules {
		for _, v := range values {
			first := Classify(entities.PH, v, rule)
			second := Classify(entities.PH, v, rule)
			assert.Equal(t, first, second, "rule %s value %g", rule, v)
			assert.Contains(t, []entities.Status{entities.Good, entities.Bad}, first)
		}
	}
}

func TestRulesForUnknownParameter(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, NoThreshold(), rules.For("DO_Saturation"))
	assert.Equal(t, entities.Good, rules.Classify("DO_Saturation", -5))
}

func TestRuleLines(t *testing.T) {
	assert.Nil(t, NoThreshold().Lines())
	assert.Equal(t, []float64{32.2}, UpperBound(32.2).Lines())
	assert.Equal(t, []float64{4}, LowerBound(4).Lines())
	assert.Equal(t, []float64{6, 8.5}, Range(6, 8.5).Lines())
}
