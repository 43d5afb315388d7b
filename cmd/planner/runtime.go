package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nations.ai/internal/persistence/indexdb"
	persistlog "nations.ai/internal/persistence/log"
	"nations.ai/internal/persistence/tables"
	"nations.ai/internal/protocol"
	"nations.ai/internal/search"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/tuning"
	"nations.ai/internal/sim/world"
	"nations.ai/internal/telemetry"
	"nations.ai/internal/transport/observer"
)

// runtime holds the inputs and sinks of one planner run.
type runtime struct {
	tune    tuning.Tuning
	log     *zap.Logger
	runID   string
	mode    string
	started time.Time

	world   *world.World
	catalog *catalogs.Catalog

	observer search.Multi
	events   *persistlog.EventLogger
	index    *indexdb.SQLiteIndex
	server   *observer.Server
}

func setup(cmd *cobra.Command, mode string) (*runtime, error) {
	configPath, level, format, err := globalOptions(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := telemetry.NewLogger(level, format)
	if err != nil {
		return nil, err
	}
	t, err := resolveTuning(cmd, configPath)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		tune:    t,
		log:     logger,
		runID:   uuid.NewString(),
		mode:    mode,
		started: time.Now(),
	}
	if err := rt.loadInputs(); err != nil {
		return nil, err
	}
	if err := rt.openSinks(); err != nil {
		rt.close()
		return nil, err
	}
	rt.log.Info("run started",
		zap.String("run_id", rt.runID),
		zap.String("mode", mode),
		zap.String("self", t.Self),
		zap.Int("countries", rt.world.Len()),
		zap.Int("templates", rt.catalog.Len()),
		zap.String("world_digest", rt.world.Digest()))
	return rt, nil
}

func (rt *runtime) loadInputs() error {
	t := rt.tune
	for _, in := range []struct{ flag, path string }{
		{"--world", t.World},
		{"--weights", t.Weights},
		{"--templates", t.Templates},
	} {
		if in.path == "" {
			return fmt.Errorf("%w: %s is required", protocol.ErrInvalidConfig, in.flag)
		}
	}
	q, err := tables.LoadWeights(t.Weights)
	if err != nil {
		return err
	}
	w, err := tables.LoadWorld(t.World, q)
	if err != nil {
		return err
	}
	if _, err := w.Country(t.Self); err != nil {
		return err
	}
	cat, err := catalogs.Load(t.Templates)
	if err != nil {
		return err
	}
	rt.world, rt.catalog = w, cat
	return nil
}

func (rt *runtime) params() protocol.SearchParams {
	t := rt.tune
	p := protocol.SearchParams{
		Gamma:       t.Metrics.Gamma,
		FailureCost: t.Metrics.FailureCost,
		K:           t.Metrics.K,
		X0:          t.Metrics.X0,
		MaxDepth:    t.Search.MaxDepth,
		BeamWidth:   t.Search.BeamWidth,
	}
	if rt.mode == protocol.ModeSchedule {
		p.MaxDepth = t.Schedule.DepthBound
		p.BeamWidth = t.Schedule.FrontierMax
	}
	return p
}

func (rt *runtime) openSinks() error {
	t := rt.tune

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.observer = search.Multi{telemetry.NewLogObserver(rt.log), telemetry.NewMetrics(reg)}

	if t.Output.EventsDir != "" {
		rt.events = persistlog.NewEventLogger(t.Output.EventsDir)
		rt.observer = append(rt.observer, rt.events)
	}

	if t.Output.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(t.Output.IndexDB)
		if err != nil {
			return err
		}
		rt.index = idx
		idx.RecordRunStart(indexdb.RunStart{
			RunID:       rt.runID,
			Mode:        rt.mode,
			SelfCountry: t.Self,
			StartedAt:   rt.started,
			WorldDigest: rt.world.Digest(),
			Params:      rt.params(),
		})
	}

	if t.Output.ObserverAddr != "" {
		hub := observer.NewHub()
		srv := observer.NewServer(hub, protocol.BootstrapResponse{
			RunID:       rt.runID,
			Mode:        rt.mode,
			SelfCountry: t.Self,
			WorldDigest: rt.world.Digest(),
			Params:      rt.params(),
		}, reg, rt.log)
		if _, err := srv.Start(t.Output.ObserverAddr); err != nil {
			return err
		}
		rt.server = srv
		rt.observer = append(rt.observer, hub)
	}
	return nil
}

func (rt *runtime) finish(bestEU float64, st search.Stats) {
	rt.index.RecordRunFinish(indexdb.RunFinish{
		RunID:      rt.runID,
		FinishedAt: time.Now(),
		BestEU:     bestEU,
		Popped:     st.Popped,
		Expanded:   st.Expanded,
	})
}

// close stops the observer server and flushes the event log and index.
func (rt *runtime) close() {
	var errs []error
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, rt.server.Shutdown(ctx))
		cancel()
	}
	if rt.events != nil {
		errs = append(errs, rt.events.Close())
	}
	if rt.index != nil {
		errs = append(errs, rt.index.Close())
	}
	if err := errors.Join(errs...); err != nil {
		rt.log.Warn("closing sinks", zap.Error(err))
	}
	_ = rt.log.Sync()
}
