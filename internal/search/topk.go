package search

import (
	"errors"
	"fmt"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/metrics"
	"nations.ai/internal/sim/world"
)

const DefaultEUFloor = -2.0

type TopKConfig struct {
	SelfCountry string
	Templates   []*catalogs.Template
	Params      metrics.Params

	NumSchedules int
	DepthBound   int
	// FrontierMax > 0 trims the frontier after every expansion.
	FrontierMax int
	// Candidates scoring below EUFloor are dropped.
	EUFloor float64
	// Dedup enables the (signature, depth) visited table used by Engine.
	Dedup bool

	AllowTransfers bool
	ScoreFromRoot  bool

	RunID    string
	Observer Observer
}

// DefaultTopKConfig returns the scheduler defaults: five schedules of depth
// six, frontier capped at 50, EU floor -2, transfers on, no dedup.
func DefaultTopKConfig() TopKConfig {
	return TopKConfig{
		Params:         metrics.DefaultParams(),
		NumSchedules:   5,
		DepthBound:     6,
		FrontierMax:    50,
		EUFloor:        DefaultEUFloor,
		AllowTransfers: true,
	}
}

func (c TopKConfig) validate() error {
	if c.SelfCountry == "" {
		return fmt.Errorf("%w: self country is required", protocol.ErrInvalidArgument)
	}
	if c.NumSchedules <= 0 {
		return fmt.Errorf("%w: number of schedules must be > 0, got %d", protocol.ErrInvalidArgument, c.NumSchedules)
	}
	if c.DepthBound < 0 {
		return fmt.Errorf("%w: depth bound must be >= 0, got %d", protocol.ErrInvalidArgument, c.DepthBound)
	}
	if c.FrontierMax < 0 {
		return fmt.Errorf("%w: frontier max must be >= 0, got %d", protocol.ErrInvalidArgument, c.FrontierMax)
	}
	return nil
}

// Completed is a schedule that reached the depth bound.
type Completed struct {
	Schedule world.Schedule
	// StepEUs starts with the EU of the empty schedule.
	StepEUs []float64
	World   *world.World
}

// EU is the utility recorded for the full schedule.
func (c Completed) EU() float64 {
	if len(c.StepEUs) == 0 {
		return 0
	}
	return c.StepEUs[len(c.StepEUs)-1]
}

func (c Completed) Row() protocol.ScheduleRow {
	return protocol.ScheduleRow{
		Actions: c.Schedule.Strings(),
		StepEUs: append([]float64(nil), c.StepEUs...),
	}
}

type TopKResult struct {
	Completed []Completed
	Stats     Stats
}

func (r TopKResult) Rows() []protocol.ScheduleRow {
	out := make([]protocol.ScheduleRow, len(r.Completed))
	for i, c := range r.Completed {
		out[i] = c.Row()
	}
	return out
}

type Scheduler struct {
	cfg TopKConfig
}

func NewScheduler(cfg TopKConfig) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg}, nil
}

// Run pops nodes best first and records every node at the depth bound, in
// pop order, until NumSchedules are collected or the frontier is empty.
func (s *Scheduler) Run(initial *world.World) (TopKResult, error) {
	cfg := s.cfg
	em := &emitter{obs: cfg.Observer, runID: cfg.RunID, mode: protocol.ModeSchedule}
	stats := newStats()
	sc := scorer{self: cfg.SelfCountry, params: cfg.Params, fromRoot: cfg.ScoreFromRoot, root: initial}

	if _, err := initial.Country(cfg.SelfCountry); err != nil {
		return TopKResult{}, err
	}
	empty := world.NewSchedule()
	rootEU, err := metrics.ExpectedUtility(empty, initial, cfg.SelfCountry, cfg.Params)
	if err != nil {
		return TopKResult{}, err
	}
	em.emit(protocol.SearchEvent{Type: protocol.EventStart, EU: rootEU, Frontier: 1})

	var f frontier
	f.push(&node{eu: rootEU, schedule: empty, world: initial.Copy(), trace: []float64{rootEU}})
	stats.Pushed++
	stats.MaxFrontier = 1

	var visited visitedTable
	if cfg.Dedup {
		visited = visitedTable{}
	}
	var completed []Completed

	for f.Len() > 0 && len(completed) < cfg.NumSchedules {
		n := f.pop()
		stats.Popped++

		if n.schedule.Len() >= cfg.DepthBound {
			completed = append(completed, Completed{Schedule: n.schedule, StepEUs: n.trace, World: n.world})
			em.emit(protocol.SearchEvent{
				Type:     protocol.EventCompleted,
				Depth:    n.schedule.Len(),
				EU:       n.eu,
				Frontier: f.Len(),
				Count:    len(completed),
				Schedule: n.schedule.Strings(),
				StepEUs:  n.trace,
			})
			continue
		}

		acts, err := n.world.LegalActions(cfg.SelfCountry, cfg.Templates, cfg.AllowTransfers)
		if err != nil {
			return TopKResult{}, err
		}
		stats.Expanded++
		depth := n.schedule.Len() + 1
		last, hasLast := n.schedule.Last()
		for _, a := range acts {
			stats.Generated++
			if hasLast && a.Equal(last) {
				prune(em, &stats, protocol.PruneRepeat, depth, a, 0)
				continue
			}
			succ := n.schedule.Extend(a)

			eu, err := sc.score(succ, n.world)
			if errors.Is(err, protocol.ErrInsufficientResources) {
				prune(em, &stats, protocol.PruneUnaffordable, depth, a, 0)
				continue
			}
			if err != nil {
				return TopKResult{}, err
			}
			if eu < cfg.EUFloor {
				prune(em, &stats, protocol.PruneFloor, depth, a, eu)
				continue
			}

			next, err := n.world.Successor(a)
			if errors.Is(err, protocol.ErrInsufficientResources) {
				prune(em, &stats, protocol.PruneUnaffordable, depth, a, eu)
				continue
			}
			if err != nil {
				return TopKResult{}, err
			}

			if visited != nil && !visited.admit(next.Signature(), succ.Len(), eu) {
				prune(em, &stats, protocol.PruneDuplicate, depth, a, eu)
				continue
			}

			trace := make([]float64, len(n.trace)+1)
			copy(trace, n.trace)
			trace[len(n.trace)] = eu
			f.push(&node{eu: eu, schedule: succ, world: next, trace: trace})
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

		if dropped := f.trim(cfg.FrontierMax); dropped > 0 {
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

	em.emit(protocol.SearchEvent{
		Type:     protocol.EventFinished,
		Frontier: f.Len(),
		Count:    len(completed),
	})
	return TopKResult{Completed: completed, Stats: stats}, nil
}
