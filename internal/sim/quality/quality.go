// Package quality scores a country's resource state against per-resource
// weights and per-capita baselines.
package quality

import (
	"sort"

	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

// StateQuality computes
//
//	Q(c) = Σ weight[r] × (qty_r − baseline[r] × pop)
//
// over the resources c holds, with pop = max(Population, 1). Resources
// missing from the tables contribute nothing.
type StateQuality struct {
	weight   map[string]float64
	baseline map[string]float64
}

func New(weight, baseline map[string]float64) *StateQuality {
	q := &StateQuality{
		weight:   make(map[string]float64, len(weight)),
		baseline: make(map[string]float64, len(baseline)),
	}
	for r, v := range weight {
		q.weight[r] = v
	}
	for r, v := range baseline {
		q.baseline[r] = v
	}
	return q
}

func (q *StateQuality) Score(c *world.Country) float64 {
	pop := c.Resources.Quantity(resources.Population)
	if pop < 1 {
		pop = 1
	}
	score := 0.0
	// Sorted so the float sum does not depend on map order.
	for _, r := range c.Resources.Resources() {
		wt, ok := q.weight[r]
		if !ok {
			continue
		}
		score += wt * (float64(c.Resources.Quantity(r)) - q.baseline[r]*float64(pop))
	}
	return score
}

func (q *StateQuality) Weight(resource string) float64   { return q.weight[resource] }
func (q *StateQuality) Baseline(resource string) float64 { return q.baseline[resource] }

// Resources returns the weighted resource names in sorted order.
func (q *StateQuality) Resources() []string {
	out := make([]string, 0, len(q.weight))
	for r := range q.weight {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

var _ world.QualityFunc = (*StateQuality)(nil)
