package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadOverlaysDefaults(t *testing.T) {
	p := writeFile(t, `
world: data/world.csv
self: Atlantis
metrics:
  gamma: 0.75
search:
  max_depth: 3
schedule:
  dedup: true
  eu_floor: -4.5
output:
  index_db: runs.sqlite
`)
	got, err := Load(p)
	require.NoError(t, err)

	want := Defaults()
	want.World = "data/world.csv"
	want.Self = "Atlantis"
	want.Metrics.Gamma = 0.75
	want.Search.MaxDepth = 3
	want.Schedule.Dedup = true
	want.Schedule.EUFloor = -4.5
	want.Output.IndexDB = "runs.sqlite"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tuning mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyFileIsDefaults(t *testing.T) {
	got, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "colour: blue\n",
		"nested unknown": "search:\n  depth: 3\n",
		"wrong type":     "search:\n  max_depth: deep\n",
		"negative":       "schedule:\n  frontier_max: -1\n",
		"gamma range":    "metrics:\n  gamma: 1.5\n",
		"zero schedules": "schedule:\n  num_schedules: 0\n",
		"not a mapping":  "- a\n- b\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, protocol.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())

	bad := Defaults()
	bad.Search.BeamWidth = -1
	assert.True(t, errors.Is(bad.Validate(), protocol.ErrInvalidConfig))

	bad = Defaults()
	bad.Metrics.Gamma = -0.1
	assert.True(t, errors.Is(bad.Validate(), protocol.ErrInvalidConfig))
}
