package catalogs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/resources"
)

func TestDisplayNameHeuristic(t *testing.T) {
	cases := []struct {
		name     string
		fallback string
		outputs  []ItemCount
		want     string
	}{
		{"first real output", "Build", []ItemCount{{"Population", 1}, {"HousingWaste", 1}, {"Housing", 1}}, "Housing"},
		{"fallback when only waste", "Build", []ItemCount{{"Population", 1}, {"MetalWaste", 2}}, "Build"},
		{"first output without fallback", "", []ItemCount{{"MetalWaste", 2}, {"Population", 1}}, "MetalWaste"},
		{"no outputs", "", nil, "TRANSFORM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := NewTemplate(tc.fallback, []ItemCount{{"Timber", 1}}, tc.outputs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tpl.Name)
		})
	}
}

func TestNewTemplateRejectsBadInputs(t *testing.T) {
	_, err := NewTemplate("", []ItemCount{{"Timber", 0}}, nil)
	assert.True(t, errors.Is(err, protocol.ErrMalformedTemplate))

	_, err = NewTemplate("", []ItemCount{{"Timber", -1}}, nil)
	assert.True(t, errors.Is(err, protocol.ErrMalformedTemplate))

	_, err = NewTemplate("", []ItemCount{{"Timber", 1}, {"Timber", 2}}, nil)
	assert.True(t, errors.Is(err, protocol.ErrMalformedTemplate))
}

func TestScaledBundles(t *testing.T) {
	tpl, err := NewTemplate("", []ItemCount{{"Timber", 2}, {"Water", 1}}, []ItemCount{{"Housing", 1}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Timber": 6, "Water": 3}, tpl.ScaledInputs(3).Map())
	assert.Equal(t, map[string]int{"Housing": 3}, tpl.ScaledOutputs(3).Map())
	assert.True(t, tpl.ScaledInputs(0).IsEmpty())
}

func TestMaxScale(t *testing.T) {
	tpl, err := NewTemplate("", []ItemCount{{"Timber", 2}, {"Water", 1}}, []ItemCount{{"Housing", 1}})
	require.NoError(t, err)

	assert.Equal(t, 2, tpl.MaxScale(resources.FromMap(map[string]int{"Timber": 5, "Water": 9})))
	assert.Equal(t, 0, tpl.MaxScale(resources.Of("Timber", 100)))
	assert.Equal(t, 0, tpl.MaxScale(resources.FromMap(map[string]int{"Timber": -4, "Water": 9})))

	free, err := NewTemplate("Free", nil, []ItemCount{{"Housing", 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, free.MaxScale(resources.Of("Timber", 100)))
}

func TestMaxScaleIsTight(t *testing.T) {
	tpl, err := NewTemplate("", []ItemCount{{"Timber", 3}, {"Water", 2}}, nil)
	require.NoError(t, err)
	stock := resources.FromMap(map[string]int{"Timber": 10, "Water": 7})

	k := tpl.MaxScale(stock)
	require.Equal(t, 3, k)
	assert.True(t, stock.HasEnough(tpl.ScaledInputs(k)))
	assert.False(t, stock.HasEnough(tpl.ScaledInputs(k+1)))
}

func TestTemplateEqual(t *testing.T) {
	a, _ := NewTemplate("", []ItemCount{{"Timber", 1}}, []ItemCount{{"Housing", 1}})
	b, _ := NewTemplate("", []ItemCount{{"Timber", 1}}, []ItemCount{{"Housing", 1}})
	c, _ := NewTemplate("", []ItemCount{{"Timber", 2}}, []ItemCount{{"Housing", 1}})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
