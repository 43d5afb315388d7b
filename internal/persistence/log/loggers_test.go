package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
)

func TestEventLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	l.OnEvent(protocol.SearchEvent{Type: protocol.EventStart, Seq: 1, RunID: "r1"})
	l.OnEvent(protocol.SearchEvent{Type: protocol.EventNewBest, Seq: 2, RunID: "r1", EU: 1.5, Schedule: []string{"(TRANSFORM A House x1)"}})
	require.NoError(t, l.Close())

	evs, err := ReadEvents(dir)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, protocol.EventStart, evs[0].Type)
	assert.Equal(t, 1.5, evs[1].EU)
	assert.Equal(t, []string{"(TRANSFORM A House x1)"}, evs[1].Schedule)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.Write(protocol.SearchEvent{Type: protocol.EventStart, Seq: 1}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, w.Write(protocol.SearchEvent{Type: protocol.EventFinished, Seq: 2}))
	require.NoError(t, w.Close())

	for _, name := range []string{"events-2026-03-01-10.jsonl.zst", "events-2026-03-01-11.jsonl.zst"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
	evs, err := ReadEvents(dir)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(1), evs[0].Seq)
	assert.Equal(t, uint64(2), evs[1].Seq)
}

func TestCloseWithoutWrites(t *testing.T) {
	l := NewEventLogger(filepath.Join(t.TempDir(), "never"))
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Err())
}
