package world

import (
	"fmt"
	"sort"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/resources"
)

// Action is one step of a schedule. Implementations are immutable values.
type Action interface {
	// Apply mutates w. On error w is unchanged.
	Apply(w *World) error
	// Countries lists the countries the action touches.
	Countries() []string
	Equal(other Action) bool
	Spec() protocol.ActionSpec
	String() string
}

type Transform struct {
	Country  string
	Template *catalogs.Template
	Scale    int
}

func (t Transform) Apply(w *World) error {
	if _, err := w.Country(t.Country); err != nil {
		return err
	}
	c := w.mutable(t.Country)
	return c.ApplyTransform(t.Template, t.Scale)
}

func (t Transform) Countries() []string { return []string{t.Country} }

func (t Transform) Equal(other Action) bool {
	o, ok := other.(Transform)
	return ok && o.Country == t.Country && o.Scale == t.Scale && t.Template.Equal(o.Template)
}

func (t Transform) Spec() protocol.ActionSpec {
	name := ""
	if t.Template != nil {
		name = t.Template.Name
	}
	return protocol.ActionSpec{Kind: protocol.ActionTransform, Country: t.Country, Template: name, Scale: t.Scale}
}

func (t Transform) String() string { return t.Spec().String() }

type Transfer struct {
	Src     string
	Dst     string
	Payload resources.Bundle
}

func (t Transfer) Apply(w *World) error {
	src, err := w.Country(t.Src)
	if err != nil {
		return err
	}
	if _, err := w.Country(t.Dst); err != nil {
		return err
	}
	// Check before cloning so a failed transfer leaves the sharing intact.
	if !src.HasResources(t.Payload) {
		return fmt.Errorf("%w: %s cannot transfer %v to %s", protocol.ErrInsufficientResources, t.Src, t.Payload, t.Dst)
	}
	return w.mutable(t.Src).ApplyTransfer(w.mutable(t.Dst), t.Payload)
}

func (t Transfer) Countries() []string { return []string{t.Src, t.Dst} }

func (t Transfer) Equal(other Action) bool {
	o, ok := other.(Transfer)
	return ok && o.Src == t.Src && o.Dst == t.Dst && o.Payload.Equal(t.Payload)
}

func (t Transfer) Spec() protocol.ActionSpec {
	spec := protocol.ActionSpec{Kind: protocol.ActionTransfer, Src: t.Src, Dst: t.Dst}
	for _, r := range t.Payload.Resources() {
		spec.Payload = append(spec.Payload, protocol.Quantity{Resource: r, Amount: t.Payload.Quantity(r)})
	}
	return spec
}

func (t Transfer) String() string { return t.Spec().String() }

// ActionFromSpec rebuilds an action from its rendering, resolving template
// names against cat.
func ActionFromSpec(spec protocol.ActionSpec, cat *catalogs.Catalog) (Action, error) {
	switch spec.Kind {
	case protocol.ActionTransform:
		if cat == nil {
			return nil, fmt.Errorf("%w: no catalog to resolve %s", protocol.ErrInvalidArgument, spec.Template)
		}
		tpl, ok := cat.Lookup(spec.Template)
		if !ok {
			return nil, fmt.Errorf("%w: unknown template %q", protocol.ErrInvalidArgument, spec.Template)
		}
		return Transform{Country: spec.Country, Template: tpl, Scale: spec.Scale}, nil
	case protocol.ActionTransfer:
		m := make(map[string]int, len(spec.Payload))
		for _, q := range spec.Payload {
			m[q.Resource] += q.Amount
		}
		return Transfer{Src: spec.Src, Dst: spec.Dst, Payload: resources.FromMap(m)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action kind %q", protocol.ErrInvalidArgument, spec.Kind)
	}
}

func sortedUnique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
