package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/quality"
	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	q := quality.New(map[string]float64{"Timber": 1, "House": 10}, nil)
	w, err := world.New([]*world.Country{
		world.NewCountry("A", resources.Of("Timber", 10)),
		world.NewCountry("B", resources.Of("Timber", 2)),
	}, q)
	require.NoError(t, err)
	return w
}

func houseTemplate(t *testing.T) *catalogs.Template {
	t.Helper()
	tpl, err := catalogs.NewTemplate("", []catalogs.ItemCount{{Item: "Timber", Count: 5}}, []catalogs.ItemCount{{Item: "House", Count: 1}})
	require.NoError(t, err)
	return tpl
}

func TestLogistic(t *testing.T) {
	assert.Equal(t, 0.5, Logistic(0, 0, 1))
	assert.Equal(t, 0.5, Logistic(3, 3, 7))
	assert.InDelta(t, 1/(1+math.Exp(-2)), Logistic(1, 0, 2), 1e-12)
	assert.Greater(t, Logistic(2, 0, 1), Logistic(1, 0, 1))
	assert.Equal(t, 0.0, Logistic(-1e6, 0, 1), "saturates without overflow")
	assert.Equal(t, 1.0, Logistic(1e6, 0, 1))
}

func TestRewards(t *testing.T) {
	assert.Equal(t, 5.0, UndiscountedReward(2, 7))
	assert.Equal(t, 5.0, DiscountedReward(2, 7, 0, 0.9))
	assert.InDelta(t, 0.81*5, DiscountedReward(2, 7, 2, 0.9), 1e-12)
	assert.Equal(t, 0.0, DiscountedReward(2, 2, 3, 0.9))
}

func TestEmptyScheduleUtility(t *testing.T) {
	w := testWorld(t)
	p := DefaultParams()

	prob, err := SuccessProbability(world.NewSchedule(), w, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, prob)

	eu, err := ExpectedUtility(world.NewSchedule(), w, "A", p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, eu)
}

func TestExpectedUtility(t *testing.T) {
	w := testWorld(t)
	before := w.Signature()
	p := DefaultParams()

	s := world.NewSchedule(world.Transform{Country: "A", Template: houseTemplate(t), Scale: 1})
	// Q(A): 10 -> 5 + 10 = 15, one step.
	dr := 0.9 * 5
	prob := Logistic(dr, 0, 1)
	want := prob*dr + (1-prob)*-10

	got, err := ExpectedUtility(s, w, "A", p)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
	assert.Equal(t, before, w.Signature(), "scoring never mutates the world")

	gotProb, err := SuccessProbability(s, w, p)
	require.NoError(t, err)
	assert.InDelta(t, prob, gotProb, 1e-12)
}

func TestSuccessProbabilityMultipliesCountries(t *testing.T) {
	w := testWorld(t)
	p := DefaultParams()
	s := world.NewSchedule(world.Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 2)})

	// A loses 2, B gains 2, discounted by one step.
	want := Logistic(-1.8, 0, 1) * Logistic(1.8, 0, 1)
	got, err := SuccessProbability(s, w, p)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	eu, err := ExpectedUtility(s, w, "A", p)
	require.NoError(t, err)
	assert.InDelta(t, want*-1.8+(1-want)*-10, eu, 1e-12)
}

func TestUtilityLimits(t *testing.T) {
	w := testWorld(t)
	s := world.NewSchedule(world.Transform{Country: "A", Template: houseTemplate(t), Scale: 1})

	// A steep curve centred far above the reward rejects the schedule.
	rejecting := Params{Gamma: 0.9, FailureCost: -10, K: 50, X0: 100}
	eu, err := ExpectedUtility(s, w, "A", rejecting)
	require.NoError(t, err)
	assert.InDelta(t, -10, eu, 1e-9)

	accepting := Params{Gamma: 0.9, FailureCost: -10, K: 50, X0: -100}
	eu, err = ExpectedUtility(s, w, "A", accepting)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, eu, 1e-9)
}

func TestUnexecutableSchedule(t *testing.T) {
	w := testWorld(t)
	s := world.NewSchedule(world.Transform{Country: "B", Template: houseTemplate(t), Scale: 1})
	_, err := ExpectedUtility(s, w, "B", DefaultParams())
	assert.True(t, errors.Is(err, protocol.ErrInsufficientResources))
}

func TestMissingQualityFunction(t *testing.T) {
	w, err := world.New([]*world.Country{world.NewCountry("A", resources.Bundle{})}, nil)
	require.NoError(t, err)
	_, err = ExpectedUtility(world.NewSchedule(), w, "A", DefaultParams())
	assert.True(t, errors.Is(err, protocol.ErrNoQualityFunction))
}
