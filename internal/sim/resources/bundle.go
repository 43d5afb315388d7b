// Package resources implements the integer resource multiset every country
// owns.
//
// A Bundle never stores a zero quantity: entries are dropped as soon as they
// reach zero. Quantities may be negative (waste and debt resources).
// Plus, Minus and Scale return new bundles; Add is the only in-place
// mutation.
package resources

import (
	"fmt"
	"sort"
	"strings"

	"nations.ai/internal/protocol"
)

// Population is the resource used as the per-capita scaler.
const Population = "Population"

type Bundle struct {
	amounts map[string]int
}

// FromMap copies m into a new bundle, dropping zero entries.
func FromMap(m map[string]int) Bundle {
	b := Bundle{amounts: make(map[string]int, len(m))}
	for r, q := range m {
		if q != 0 {
			b.amounts[r] = q
		}
	}
	return b
}

// Of builds a single-resource bundle.
func Of(resource string, qty int) Bundle {
	return FromMap(map[string]int{resource: qty})
}

func (b Bundle) Quantity(resource string) int {
	return b.amounts[resource]
}

func (b Bundle) Len() int { return len(b.amounts) }

func (b Bundle) IsEmpty() bool { return len(b.amounts) == 0 }

// HasEnough reports whether b covers every quantity in other. Resources
// absent from other are unconstrained.
func (b Bundle) HasEnough(other Bundle) bool {
	for r, q := range other.amounts {
		if b.amounts[r] < q {
			return false
		}
	}
	return true
}

// Add adds (sign=+1) or subtracts (sign=-1) other in place.
func (b *Bundle) Add(other Bundle, sign int) error {
	if sign != 1 && sign != -1 {
		return fmt.Errorf("%w: sign must be +1 or -1, got %d", protocol.ErrInvalidArgument, sign)
	}
	if b.amounts == nil {
		b.amounts = make(map[string]int, len(other.amounts))
	}
	for r, q := range other.amounts {
		n := b.amounts[r] + sign*q
		if n == 0 {
			delete(b.amounts, r)
			continue
		}
		b.amounts[r] = n
	}
	return nil
}

func (b Bundle) Plus(other Bundle) Bundle {
	out := b.Clone()
	_ = out.Add(other, 1)
	return out
}

func (b Bundle) Minus(other Bundle) Bundle {
	out := b.Clone()
	_ = out.Add(other, -1)
	return out
}

// Scale returns a new bundle with every quantity multiplied by k.
func (b Bundle) Scale(k int) (Bundle, error) {
	if k < 0 {
		return Bundle{}, fmt.Errorf("%w: scale factor must be non-negative, got %d", protocol.ErrInvalidArgument, k)
	}
	out := Bundle{amounts: make(map[string]int, len(b.amounts))}
	if k == 0 {
		return out, nil
	}
	for r, q := range b.amounts {
		out.amounts[r] = q * k
	}
	return out, nil
}

func (b Bundle) Clone() Bundle {
	out := Bundle{amounts: make(map[string]int, len(b.amounts))}
	for r, q := range b.amounts {
		out.amounts[r] = q
	}
	return out
}

func (b Bundle) Equal(other Bundle) bool {
	if len(b.amounts) != len(other.amounts) {
		return false
	}
	for r, q := range b.amounts {
		if other.amounts[r] != q {
			return false
		}
	}
	return true
}

// Resources returns the resource names in sorted order.
func (b Bundle) Resources() []string {
	keys := make([]string, 0, len(b.amounts))
	for r := range b.amounts {
		keys = append(keys, r)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying quantities.
func (b Bundle) Map() map[string]int {
	out := make(map[string]int, len(b.amounts))
	for r, q := range b.amounts {
		out[r] = q
	}
	return out
}

func (b Bundle) String() string {
	keys := b.Resources()
	parts := make([]string, len(keys))
	for i, r := range keys {
		parts[i] = fmt.Sprintf("%s: %d", r, b.amounts[r])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
