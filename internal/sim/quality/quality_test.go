package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

func TestScoreScenario(t *testing.T) {
	q := New(map[string]float64{"Timber": 1}, map[string]float64{"Timber": 0})
	c := world.NewCountry("A", resources.FromMap(map[string]int{"Timber": 10, "Population": 2}))
	assert.Equal(t, 10.0, q.Score(c))
}

func TestScoreUsesPerCapitaBaseline(t *testing.T) {
	q := New(
		map[string]float64{"Timber": 2, "Housing": 0.5, "Population": 0},
		map[string]float64{"Timber": 1, "Housing": 0.25},
	)
	c := world.NewCountry("A", resources.FromMap(map[string]int{"Timber": 10, "Housing": 4, "Population": 4, "Gold": 99}))
	// 2*(10-1*4) + 0.5*(4-0.25*4) + 0*(4-0) = 12 + 1.5
	assert.InDelta(t, 13.5, q.Score(c), 1e-12)
}

func TestScoreClampsPopulation(t *testing.T) {
	q := New(map[string]float64{"Timber": 1}, map[string]float64{"Timber": 3})
	none := world.NewCountry("A", resources.Of("Timber", 5))
	negative := world.NewCountry("B", resources.FromMap(map[string]int{"Timber": 5, "Population": -7}))
	assert.Equal(t, 2.0, q.Score(none))
	assert.Equal(t, 2.0, q.Score(negative))
}

func TestStateQualityAttachesToWorld(t *testing.T) {
	q := New(map[string]float64{"Timber": 1}, nil)
	w, err := world.New([]*world.Country{world.NewCountry("A", resources.Of("Timber", 3))}, q)
	require.NoError(t, err)
	got, err := w.Quality("A")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
	assert.Equal(t, []string{"Timber"}, q.Resources())
	assert.Equal(t, 0.0, q.Baseline("Timber"))
}
