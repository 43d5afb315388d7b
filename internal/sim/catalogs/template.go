package catalogs

import (
	"fmt"
	"strings"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/resources"
)

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Template is a transform recipe: per-unit inputs consumed and outputs
// produced. Inputs and Outputs keep declaration order, which decides the
// display name.
type Template struct {
	Name    string
	Inputs  []ItemCount
	Outputs []ItemCount
}

// NewTemplate validates the recipe and derives its display name:
//
//  1. the first output that is not Population and does not end in "Waste";
//  2. otherwise fallback, when non-empty;
//  3. otherwise the first output;
//  4. otherwise "TRANSFORM".
func NewTemplate(fallback string, inputs, outputs []ItemCount) (*Template, error) {
	seen := map[string]bool{}
	for _, in := range inputs {
		if in.Item == "" {
			return nil, fmt.Errorf("%w: empty input resource", protocol.ErrMalformedTemplate)
		}
		if in.Count <= 0 {
			return nil, fmt.Errorf("%w: input %s must have a positive quantity, got %d", protocol.ErrMalformedTemplate, in.Item, in.Count)
		}
		if seen[in.Item] {
			return nil, fmt.Errorf("%w: duplicate input %s", protocol.ErrMalformedTemplate, in.Item)
		}
		seen[in.Item] = true
	}
	seen = map[string]bool{}
	for _, out := range outputs {
		if out.Item == "" {
			return nil, fmt.Errorf("%w: empty output resource", protocol.ErrMalformedTemplate)
		}
		if seen[out.Item] {
			return nil, fmt.Errorf("%w: duplicate output %s", protocol.ErrMalformedTemplate, out.Item)
		}
		seen[out.Item] = true
	}

	return &Template{
		Name:    deriveName(fallback, outputs),
		Inputs:  append([]ItemCount(nil), inputs...),
		Outputs: append([]ItemCount(nil), outputs...),
	}, nil
}

func deriveName(fallback string, outputs []ItemCount) string {
	for _, o := range outputs {
		if o.Item != resources.Population && !strings.HasSuffix(o.Item, "Waste") {
			return o.Item
		}
	}
	if fallback != "" {
		return fallback
	}
	if len(outputs) > 0 {
		return outputs[0].Item
	}
	return protocol.ActionTransform
}

func (t *Template) ScaledInputs(k int) resources.Bundle {
	return scaled(t.Inputs, k)
}

func (t *Template) ScaledOutputs(k int) resources.Bundle {
	return scaled(t.Outputs, k)
}

func scaled(items []ItemCount, k int) resources.Bundle {
	m := make(map[string]int, len(items))
	for _, it := range items {
		m[it.Item] = it.Count * k
	}
	return resources.FromMap(m)
}

// MaxScale returns the largest k with k*inputs <= stock. A template without
// inputs never fires.
func (t *Template) MaxScale(stock resources.Bundle) int {
	if len(t.Inputs) == 0 {
		return 0
	}
	best := stock.Quantity(t.Inputs[0].Item) / t.Inputs[0].Count
	for _, in := range t.Inputs[1:] {
		if k := stock.Quantity(in.Item) / in.Count; k < best {
			best = k
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// Equal compares name, inputs and outputs in order.
func (t *Template) Equal(o *Template) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Name != o.Name {
		return false
	}
	return equalCounts(t.Inputs, o.Inputs) && equalCounts(t.Outputs, o.Outputs)
}

func equalCounts(a, b []ItemCount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
