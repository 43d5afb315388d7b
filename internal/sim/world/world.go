// Package world holds the planner's state model: countries, actions,
// schedules and the World that ties them together.
//
// Worlds share Country values structurally. Copy is O(countries) and the
// first mutation of a shared country clones it, so a copy never observes
// changes made to another copy.
package world

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/digestcodec"
	"nations.ai/internal/sim/resources"
)

// QualityFunc scores a single country's state.
type QualityFunc interface {
	Score(c *Country) float64
}

// World is not safe for concurrent use, including Copy, which resets the
// receiver's ownership of shared countries.
type World struct {
	countries map[string]*Country
	// owned marks countries this World may mutate in place.
	owned   map[string]bool
	quality QualityFunc
}

// New takes ownership of countries. q may be nil; Quality then fails with
// ErrNoQualityFunction.
func New(countries []*Country, q QualityFunc) (*World, error) {
	w := &World{
		countries: make(map[string]*Country, len(countries)),
		owned:     make(map[string]bool, len(countries)),
		quality:   q,
	}
	for _, c := range countries {
		if c == nil || c.Name == "" {
			return nil, fmt.Errorf("%w: country without a name", protocol.ErrInvalidArgument)
		}
		if _, dup := w.countries[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate country %s", protocol.ErrInvalidArgument, c.Name)
		}
		w.countries[c.Name] = c
		w.owned[c.Name] = true
	}
	return w, nil
}

func (w *World) Copy() *World {
	out := &World{
		countries: make(map[string]*Country, len(w.countries)),
		owned:     make(map[string]bool, len(w.countries)),
		quality:   w.quality,
	}
	for name, c := range w.countries {
		out.countries[name] = c
	}
	// Every country is now shared; neither side may write in place.
	w.owned = make(map[string]bool, len(w.countries))
	return out
}

// WithQuality returns a copy of w scored by q.
func (w *World) WithQuality(q QualityFunc) *World {
	out := w.Copy()
	out.quality = q
	return out
}

func (w *World) HasQuality() bool { return w.quality != nil }

// Country returns the named country. The result is read-only; mutate the
// world through ApplyAction.
func (w *World) Country(name string) (*Country, error) {
	c, ok := w.countries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrCountryNotFound, name)
	}
	return c, nil
}

// mutable returns a country this world owns exclusively, cloning a shared
// one first. The name must exist.
func (w *World) mutable(name string) *Country {
	c := w.countries[name]
	if w.owned[name] {
		return c
	}
	c = c.Clone()
	w.countries[name] = c
	w.owned[name] = true
	return c
}

// Countries returns the country names in sorted order.
func (w *World) Countries() []string {
	names := make([]string, 0, len(w.countries))
	for n := range w.countries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (w *World) Len() int { return len(w.countries) }

func (w *World) ApplyAction(a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", protocol.ErrInvalidArgument)
	}
	return a.Apply(w)
}

// Successor returns a copy of w with a applied.
func (w *World) Successor(a Action) (*World, error) {
	out := w.Copy()
	if err := out.ApplyAction(a); err != nil {
		return nil, err
	}
	return out, nil
}

// LegalActions enumerates the actions country can take: every affordable
// scale of every template, in template order then ascending scale, followed
// (when allowTransfers) by a one-unit transfer of each positively held
// resource to each other country, both in name order.
func (w *World) LegalActions(country string, templates []*catalogs.Template, allowTransfers bool) ([]Action, error) {
	src, err := w.Country(country)
	if err != nil {
		return nil, err
	}
	var out []Action
	for _, tpl := range templates {
		limit := tpl.MaxScale(src.Resources)
		for k := 1; k <= limit; k++ {
			out = append(out, Transform{Country: country, Template: tpl, Scale: k})
		}
	}
	if !allowTransfers {
		return out, nil
	}
	held := src.Resources.Resources()
	for _, dst := range w.Countries() {
		if dst == country {
			continue
		}
		for _, r := range held {
			if src.Resources.Quantity(r) > 0 {
				out = append(out, Transfer{Src: country, Dst: dst, Payload: resources.Of(r, 1)})
			}
		}
	}
	return out, nil
}

func (w *World) Quality(country string) (float64, error) {
	if w.quality == nil {
		return 0, protocol.ErrNoQualityFunction
	}
	c, err := w.Country(country)
	if err != nil {
		return 0, err
	}
	return w.quality.Score(c), nil
}

// Signature is a canonical encoding of every country's bundle. Two worlds
// have equal signatures iff all their bundles are equal.
func (w *World) Signature() string {
	var b strings.Builder
	var tmp [8]byte
	for _, name := range w.Countries() {
		digestcodec.WriteString(&b, &tmp, name)
		digestcodec.WriteSortedNonZeroIntMap(&b, &tmp, w.countries[name].Resources.Map())
	}
	return b.String()
}

// Digest is the hex SHA-256 of Signature.
func (w *World) Digest() string {
	sum := sha256.Sum256([]byte(w.Signature()))
	return hex.EncodeToString(sum[:])
}

// Pretty renders up to maxLines countries, one per line. maxLines <= 0
// renders all of them.
func (w *World) Pretty(maxLines int) string {
	var lines []string
	for i, name := range w.Countries() {
		if maxLines > 0 && i >= maxLines {
			lines = append(lines, "  ...")
			break
		}
		lines = append(lines, fmt.Sprintf("  %s: %v", name, w.countries[name].Resources))
	}
	return strings.Join(lines, "\n")
}
