package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionSpecRendering(t *testing.T) {
	tr := ActionSpec{Kind: ActionTransform, Country: "CountryA", Template: "Timber", Scale: 2}
	assert.Equal(t, "(TRANSFORM CountryA Timber x2)", tr.String())

	tf := ActionSpec{Kind: ActionTransfer, Src: "CountryA", Dst: "CountryB", Payload: []Quantity{{Resource: "Timber", Amount: 1}}}
	assert.Equal(t, "(TRANSFER CountryA CountryB (Timber 1))", tf.String())
}

func TestParseActionRoundTrip(t *testing.T) {
	for _, s := range []string{
		"(TRANSFORM Atlantis Housing x3)",
		"(TRANSFER Atlantis Erewhon (Timber 1))",
		"(TRANSFER Atlantis Erewhon (Timber 1) (Water 2))",
	} {
		spec, err := ParseAction(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, spec.String())
	}
}

func TestParseActionRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"",
		"TRANSFORM A B x1",
		"(TRANSFORM A B 2)",
		"(TRANSFORM A B xx)",
		"(TRANSFER A B (Timber))",
		"(TRANSFER A B (Timber one))",
		"(BUILD A)",
	} {
		_, err := ParseAction(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, ErrInvalidArgument), s)
	}
}

func TestScheduleRowRecord(t *testing.T) {
	row := ScheduleRow{
		Actions: []string{"(TRANSFORM A Housing x1)", "(TRANSFER A B (Timber 1))"},
		StepEUs: []float64{-1.5, 0.25, 0.123456},
	}
	rec := row.Record()
	assert.Equal(t, []string{
		"(TRANSFORM A Housing x1) | (TRANSFER A B (Timber 1))",
		"-1.5000;0.2500;0.1235",
	}, rec)

	back, err := ParseScheduleRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, row.Actions, back.Actions)
	assert.Equal(t, []float64{-1.5, 0.25, 0.1235}, back.StepEUs)
}

func TestParseScheduleRecordEmptySchedule(t *testing.T) {
	row, err := ParseScheduleRecord([]string{"", "-10.0000"})
	require.NoError(t, err)
	assert.Empty(t, row.Actions)
	assert.Equal(t, []float64{-10}, row.StepEUs)

	_, err = ParseScheduleRecord([]string{"", "abc"})
	assert.True(t, errors.Is(err, ErrInvalidNumericField))
}
