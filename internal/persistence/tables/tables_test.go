package tables

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

const worldCSV = `Country,Population,Timber,Water,HousingWaste
Atlantis,100,50,,-2
Carpania,20,,30,
`

func TestReadWorld(t *testing.T) {
	w, err := ReadWorld(strings.NewReader(worldCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Atlantis", "Carpania"}, w.Countries())

	a, err := w.Country("Atlantis")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Population": 100, "Timber": 50, "HousingWaste": -2}, a.Resources.Map())

	c, err := w.Country("Carpania")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Resources.Quantity("Timber"))
	assert.Equal(t, 30, c.Resources.Quantity("Water"))
}

func TestReadWorldErrors(t *testing.T) {
	_, err := ReadWorld(strings.NewReader("Country,Timber\nA,lots\n"), nil)
	assert.True(t, errors.Is(err, protocol.ErrInvalidNumericField))

	_, err = ReadWorld(strings.NewReader("Name,Timber\nA,1\n"), nil)
	assert.True(t, errors.Is(err, protocol.ErrInvalidArgument))

	_, err = ReadWorld(strings.NewReader("Country,Timber\nA,1\nA,2\n"), nil)
	assert.True(t, errors.Is(err, protocol.ErrInvalidArgument))

	_, err = ReadWorld(strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestWriteWorldRoundTrip(t *testing.T) {
	w, err := ReadWorld(strings.NewReader(worldCSV), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWorld(&buf, w))
	assert.Equal(t, "Country,HousingWaste,Population,Timber,Water\nAtlantis,-2,100,50,\nCarpania,,20,,30\n", buf.String())

	back, err := ReadWorld(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, w.Signature(), back.Signature())
}

func TestReadWeights(t *testing.T) {
	q, err := ReadWeights(strings.NewReader(`resource,weight,baseline
Timber,1,0
Water,0.5,
Housing,2,0.25
,3,1
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Housing", "Timber"}, q.Resources(), "rows with a blank field are skipped")
	assert.Equal(t, 0.25, q.Baseline("Housing"))

	c := world.NewCountry("A", resources.FromMap(map[string]int{"Timber": 10, "Population": 2}))
	assert.Equal(t, 10.0, q.Score(c))
}

func TestReadWeightsErrors(t *testing.T) {
	_, err := ReadWeights(strings.NewReader("resource,weight,baseline\nTimber,heavy,0\n"))
	assert.True(t, errors.Is(err, protocol.ErrInvalidNumericField))

	_, err = ReadWeights(strings.NewReader("resource,weight,baseline\nTimber,1,\n"))
	assert.True(t, errors.Is(err, protocol.ErrInvalidNumericField), "no usable rows")

	_, err = ReadWeights(strings.NewReader(""))
	assert.True(t, errors.Is(err, protocol.ErrInvalidNumericField))
}

func TestSchedulesRoundTrip(t *testing.T) {
	rows := []protocol.ScheduleRow{
		{
			Actions: []string{"(TRANSFORM Atlantis Housing x1)", "(TRANSFER Atlantis Carpania (Timber 1))"},
			StepEUs: []float64{0, 1.23456, -0.5},
		},
		{StepEUs: []float64{0}},
	}
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, SaveSchedules(path, rows))

	got, err := LoadSchedules(path)
	require.NoError(t, err)
	want := []protocol.ScheduleRow{
		{Actions: rows[0].Actions, StepEUs: []float64{0, 1.2346, -0.5}},
		{StepEUs: []float64{0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("schedules mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSchedulesFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchedules(&buf, []protocol.ScheduleRow{{
		Actions: []string{"(TRANSFORM A House x2)", "(TRANSFER A B (Timber 1))"},
		StepEUs: []float64{0, 8.99771, -1.5},
	}}))
	assert.Equal(t, "Schedule,Step_EUs\n(TRANSFORM A House x2) | (TRANSFER A B (Timber 1)),0.0000;8.9977;-1.5000\n", buf.String())
}

func TestReadSchedulesRejectsForeignHeader(t *testing.T) {
	_, err := ReadSchedules(strings.NewReader("a,b\n"))
	assert.True(t, errors.Is(err, protocol.ErrInvalidArgument))
}
