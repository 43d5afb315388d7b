package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/quality"
	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

type recorder struct {
	events []protocol.SearchEvent
}

func (r *recorder) OnEvent(ev protocol.SearchEvent) { r.events = append(r.events, ev) }

func (r *recorder) ofType(typ string) []protocol.SearchEvent {
	var out []protocol.SearchEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) types() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newTemplate(t *testing.T, in, out string) *catalogs.Template {
	t.Helper()
	tpl, err := catalogs.NewTemplate("", []catalogs.ItemCount{{Item: in, Count: 1}}, []catalogs.ItemCount{{Item: out, Count: 1}})
	require.NoError(t, err)
	return tpl
}

func newWorld(t *testing.T, q world.QualityFunc, bundles map[string]map[string]int) *world.World {
	t.Helper()
	var cs []*world.Country
	for name, m := range bundles {
		cs = append(cs, world.NewCountry(name, resources.FromMap(m)))
	}
	w, err := world.New(cs, q)
	require.NoError(t, err)
	return w
}

// commutingWorld has two one-step templates whose order matters for
// parent-relative scoring: running Plank first lets the Timber term drop out
// of the quality sum, so [Plank, Ice] outscores [Ice, Plank] while both end
// in the same state.
func commutingWorld(t *testing.T) (*world.World, []*catalogs.Template) {
	t.Helper()
	q := quality.New(map[string]float64{"Timber": 1, "Plank": 1}, map[string]float64{"Timber": 1})
	w := newWorld(t, q, map[string]map[string]int{"A": {"Timber": 2, "Water": 2}})
	return w, []*catalogs.Template{newTemplate(t, "Timber", "Plank"), newTemplate(t, "Water", "Ice")}
}
