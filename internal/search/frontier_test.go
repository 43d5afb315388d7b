package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierOrdersByEUThenInsertion(t *testing.T) {
	var f frontier
	for _, eu := range []float64{1, 3, 3, -2, 2} {
		f.push(&node{eu: eu})
	}
	var got []float64
	var seqs []uint64
	for f.Len() > 0 {
		n := f.pop()
		got = append(got, n.eu)
		seqs = append(seqs, n.seq)
	}
	assert.Equal(t, []float64{3, 3, 2, 1, -2}, got)
	assert.Equal(t, []uint64{1, 2, 4, 0, 3}, seqs)
}

func TestFrontierTrimKeepsBest(t *testing.T) {
	var f frontier
	for _, eu := range []float64{5, 1, 4, 2, 3} {
		f.push(&node{eu: eu})
	}
	assert.Equal(t, 0, f.trim(0))
	assert.Equal(t, 0, f.trim(10))
	require.Equal(t, 3, f.trim(2))
	require.Equal(t, 2, f.Len())

	f.push(&node{eu: 4.5})
	assert.Equal(t, 5.0, f.pop().eu)
	assert.Equal(t, 4.5, f.pop().eu)
	assert.Equal(t, 4.0, f.pop().eu)
	assert.Equal(t, 0, f.Len())
}

func TestVisitedTableAdmit(t *testing.T) {
	v := visitedTable{}
	assert.True(t, v.admit("s", 1, 0.5), "first seen")
	assert.False(t, v.admit("s", 1, 0.3), "worse")
	assert.False(t, v.admit("s", 1, 0.5), "ties keep the earlier entry")
	assert.True(t, v.admit("s", 1, 0.9), "strictly better")
	assert.False(t, v.admit("s", 1, 0.5))
	assert.True(t, v.admit("s", 2, -10), "depth is part of the key")
	assert.True(t, v.admit("t", 1, -10))
}
