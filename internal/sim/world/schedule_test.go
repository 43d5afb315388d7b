package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/resources"
)

func TestScheduleApplyLeavesInputUntouched(t *testing.T) {
	w := newWorld(t, nil, map[string]map[string]int{"A": {"Timber": 10}, "B": {}})
	before := w.Signature()

	s := NewSchedule(
		Transform{Country: "A", Template: buildTemplate(t), Scale: 1},
		Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 1)},
	)
	out, err := s.Apply(w)
	require.NoError(t, err)
	assert.Equal(t, before, w.Signature())
	assert.Equal(t, 4, quantity(t, out, "A", "Timber"))
	assert.Equal(t, 1, quantity(t, out, "B", "Timber"))

	bad := s.Extend(Transform{Country: "A", Template: buildTemplate(t), Scale: 1})
	_, err = bad.Apply(w)
	assert.True(t, errors.Is(err, protocol.ErrInsufficientResources))
	assert.Equal(t, before, w.Signature())
}

func TestScheduleExtendDoesNotAlias(t *testing.T) {
	base := NewSchedule(Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 1)})
	x := base.Extend(Transfer{Src: "A", Dst: "C", Payload: resources.Of("Timber", 1)})
	y := base.Extend(Transfer{Src: "A", Dst: "D", Payload: resources.Of("Timber", 1)})

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, "(TRANSFER A C (Timber 1))", x.At(1).String())
	assert.Equal(t, "(TRANSFER A D (Timber 1))", y.At(1).String())
}

func TestCountriesInvolved(t *testing.T) {
	s := NewSchedule(
		Transfer{Src: "B", Dst: "A", Payload: resources.Of("Timber", 1)},
		Transform{Country: "C", Template: buildTemplate(t), Scale: 1},
		Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 1)},
	)
	assert.Equal(t, []string{"A", "B", "C"}, s.CountriesInvolved())
	assert.Empty(t, NewSchedule().CountriesInvolved())
}

func TestActionEqual(t *testing.T) {
	a := Transform{Country: "A", Template: buildTemplate(t), Scale: 1}
	assert.True(t, a.Equal(Transform{Country: "A", Template: buildTemplate(t), Scale: 1}))
	assert.False(t, a.Equal(Transform{Country: "A", Template: buildTemplate(t), Scale: 2}))

	tr := Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 1)}
	assert.True(t, tr.Equal(Transfer{Src: "A", Dst: "B", Payload: resources.Of("Timber", 1)}))
	assert.False(t, tr.Equal(Transfer{Src: "A", Dst: "B", Payload: resources.Of("Water", 1)}))
	assert.False(t, tr.Equal(a))
}

func TestActionFromSpec(t *testing.T) {
	cat := catalogs.NewCatalog([]*catalogs.Template{buildTemplate(t)})
	for _, s := range []string{"(TRANSFORM A House x2)", "(TRANSFER A B (Timber 1))"} {
		spec, err := protocol.ParseAction(s)
		require.NoError(t, err)
		a, err := ActionFromSpec(spec, cat)
		require.NoError(t, err)
		assert.Equal(t, s, a.String())
	}

	spec, err := protocol.ParseAction("(TRANSFORM A Castle x1)")
	require.NoError(t, err)
	_, err = ActionFromSpec(spec, cat)
	assert.True(t, errors.Is(err, protocol.ErrInvalidArgument))
}
