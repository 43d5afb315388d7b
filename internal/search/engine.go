// Package search plans schedules for one country by best-first search over
// world states, scored by expected utility.
//
// Engine returns the single best schedule found within a depth bound,
// optionally as a beam search. Scheduler is the anytime top-K variant that
// collects several complete schedules together with their per-step EUs.
// Both are single-threaded and report progress through an Observer.
package search

import (
	"errors"
	"fmt"
	"math"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/metrics"
	"nations.ai/internal/sim/world"
)

type Config struct {
	SelfCountry string
	Templates   []*catalogs.Template
	Params      metrics.Params

	MaxDepth int
	// BeamWidth > 0 trims the frontier to the best BeamWidth nodes after
	// every expansion.
	BeamWidth int

	AllowTransfers bool
	// ScoreFromRoot scores a successor schedule against the initial world
	// instead of the world it was expanded from.
	ScoreFromRoot bool

	RunID    string
	Observer Observer
}

func (c Config) validate() error {
	if c.SelfCountry == "" {
		return fmt.Errorf("%w: self country is required", protocol.ErrInvalidArgument)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must be >= 0, got %d", protocol.ErrInvalidArgument, c.MaxDepth)
	}
	if c.BeamWidth < 0 {
		return fmt.Errorf("%w: beam width must be >= 0, got %d", protocol.ErrInvalidArgument, c.BeamWidth)
	}
	return nil
}

type Stats struct {
	Popped      int
	Expanded    int
	Generated   int
	Pushed      int
	MaxFrontier int
	// Pruned counts discarded candidates by protocol.Prune* reason.
	Pruned map[string]int
}

func newStats() Stats { return Stats{Pruned: map[string]int{}} }

type Result struct {
	Schedule world.Schedule
	EU       float64
	// World is the initial world with Schedule replayed on it.
	World *world.World
	Stats Stats
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

type visitKey struct {
	signature string
	depth     int
}

// visitedTable keeps the best EU seen per (signature, depth).
type visitedTable map[visitKey]float64

// admit records eu and reports true when the key is new or eu beats the
// recorded value. Ties keep the earlier entry.
func (v visitedTable) admit(signature string, depth int, eu float64) bool {
	key := visitKey{signature: signature, depth: depth}
	if prev, ok := v[key]; ok && prev >= eu {
		return false
	}
	v[key] = eu
	return true
}

// scorer computes successor EUs against either the parent or the root.
type scorer struct {
	self     string
	params   metrics.Params
	fromRoot bool
	root     *world.World
}

func (s scorer) score(sched world.Schedule, parent *world.World) (float64, error) {
	base := parent
	if s.fromRoot {
		base = s.root
	}
	return metrics.ExpectedUtility(sched, base, s.self, s.params)
}

// Run searches from initial, which is never mutated. The best node seen is
// kept regardless of depth, so the result is valid even when no full-depth
// schedule beats doing nothing.
func (e *Engine) Run(initial *world.World) (Result, error) {
	cfg := e.cfg
	em := &emitter{obs: cfg.Observer, runID: cfg.RunID, mode: protocol.ModeSearch}
	stats := newStats()
	sc := scorer{self: cfg.SelfCountry, params: cfg.Params, fromRoot: cfg.ScoreFromRoot, root: initial}

	if _, err := initial.Country(cfg.SelfCountry); err != nil {
		return Result{}, err
	}
	empty := world.NewSchedule()
	rootEU, err := metrics.ExpectedUtility(empty, initial, cfg.SelfCountry, cfg.Params)
	if err != nil {
		return Result{}, err
	}
	em.emit(protocol.SearchEvent{Type: protocol.EventStart, EU: rootEU, Frontier: 1})

	var f frontier
	f.push(&node{eu: rootEU, schedule: empty, world: initial.Copy()})
	stats.Pushed++
	stats.MaxFrontier = 1

	visited := visitedTable{}
	best := empty
	bestEU := math.Inf(-1)

	for f.Len() > 0 {
		n := f.pop()
		stats.Popped++

		if n.eu > bestEU {
			best, bestEU = n.schedule, n.eu
			em.emit(protocol.SearchEvent{
				Type:     protocol.EventNewBest,
				Depth:    n.schedule.Len(),
				EU:       n.eu,
				Frontier: f.Len(),
				Schedule: n.schedule.Strings(),
			})
		}
		if n.schedule.Len() >= cfg.MaxDepth {
			continue
		}

		acts, err := n.world.LegalActions(cfg.SelfCountry, cfg.Templates, cfg.AllowTransfers)
		if err != nil {
			return Result{}, err
		}
		stats.Expanded++
		depth := n.schedule.Len() + 1
		for _, a := range acts {
			stats.Generated++
			succ := n.schedule.Extend(a)

			eu, err := sc.score(succ, n.world)
			if errors.Is(err, protocol.ErrInsufficientResources) {
				prune(em, &stats, protocol.PruneUnaffordable, depth, a, 0)
				continue
			}
			if err != nil {
				return Result{}, err
			}

			next, err := n.world.Successor(a)
			if errors.Is(err, protocol.ErrInsufficientResources) {
				prune(em, &stats, protocol.PruneUnaffordable, depth, a, eu)
				continue
			}
			if err != nil {
				return Result{}, err
			}

			if !visited.admit(next.Signature(), succ.Len(), eu) {
				prune(em, &stats, protocol.PruneDuplicate, depth, a, eu)
				continue
			}
			f.push(&node{eu: eu, schedule: succ, world: next})
			stats.Pushed++
		}
		if f.Len() > stats.MaxFrontier {
			stats.MaxFrontier = f.Len()
		}
		em.emit(protocol.SearchEvent{
			Type:       protocol.EventExpanded,
			Depth:      n.schedule.Len(),
			EU:         n.eu,
			Frontier:   f.Len(),
			Candidates: len(acts),
		})

		if cfg.BeamWidth > 0 {
			if dropped := f.trim(cfg.BeamWidth); dropped > 0 {
				stats.Pruned[protocol.PruneBeam] += dropped
				em.emit(protocol.SearchEvent{
					Type:     protocol.EventPruned,
					Reason:   protocol.PruneBeam,
					Depth:    depth,
					Frontier: f.Len(),
					Count:    dropped,
				})
			}
		}
	}

	final, err := best.Apply(initial)
	if err != nil {
		return Result{}, err
	}
	em.emit(protocol.SearchEvent{
		Type:     protocol.EventFinished,
		Depth:    best.Len(),
		EU:       bestEU,
		Count:    stats.Popped,
		Schedule: best.Strings(),
	})
	return Result{Schedule: best, EU: bestEU, World: final, Stats: stats}, nil
}

func prune(em *emitter, stats *Stats, reason string, depth int, a world.Action, eu float64) {
	stats.Pruned[reason]++
	em.emit(protocol.SearchEvent{
		Type:   protocol.EventPruned,
		Reason: reason,
		Depth:  depth,
		EU:     eu,
		Count:  1,
		Action: a.String(),
	})
}
