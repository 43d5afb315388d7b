package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	persistlog "nations.ai/internal/persistence/log"
	"nations.ai/internal/persistence/snapshot"
	"nations.ai/internal/persistence/tables"
	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/metrics"
	"nations.ai/internal/sim/world"
	"nations.ai/internal/telemetry"
)

type options struct {
	world     string
	snapshot  string
	weights   string
	templates string
	self      string
	schedules string
	events    string
	params    metrics.Params
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{params: metrics.DefaultParams()}
	cmd := &cobra.Command{
		Use:           "replay",
		Short:         "Re-execute rendered schedules against a world and report EU and final digest",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := telemetry.NewLogger(opts.logLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(opts, cmd.OutOrStdout(), logger)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.world, "world", "", "world table CSV")
	fs.StringVar(&opts.snapshot, "snapshot", "", "start from this .snap.zst instead of --world")
	fs.StringVar(&opts.weights, "weights", "", "weights table CSV")
	fs.StringVar(&opts.templates, "templates", "", "template file or directory")
	fs.StringVar(&opts.self, "self", "self", "country the schedules were planned for")
	fs.StringVar(&opts.schedules, "schedules", "", "schedules CSV written by planner schedule")
	fs.StringVar(&opts.events, "events", "", "events dir; COMPLETED and FINISHED schedules are replayed too")
	fs.Float64Var(&opts.params.Gamma, "gamma", opts.params.Gamma, "discount factor")
	fs.Float64Var(&opts.params.FailureCost, "failure-cost", opts.params.FailureCost, "utility of a rejected schedule")
	fs.Float64Var(&opts.params.K, "k", opts.params.K, "logistic steepness")
	fs.Float64Var(&opts.params.X0, "x0", opts.params.X0, "logistic midpoint")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

// recorded is one schedule to verify, with the EU its producer reported.
type recorded struct {
	source  string
	actions []string
	eu      float64
}

func run(opts options, out io.Writer, logger *zap.Logger) error {
	switch {
	case opts.weights == "":
		return fmt.Errorf("%w: --weights is required", protocol.ErrInvalidConfig)
	case opts.templates == "":
		return fmt.Errorf("%w: --templates is required", protocol.ErrInvalidConfig)
	case (opts.world == "") == (opts.snapshot == ""):
		return fmt.Errorf("%w: exactly one of --world and --snapshot is required", protocol.ErrInvalidConfig)
	case opts.schedules == "" && opts.events == "":
		return fmt.Errorf("%w: --schedules or --events is required", protocol.ErrInvalidConfig)
	}

	q, err := tables.LoadWeights(opts.weights)
	if err != nil {
		return err
	}
	var w *world.World
	if opts.snapshot != "" {
		snap, err := snapshot.ReadSnapshot(opts.snapshot)
		if err != nil {
			return err
		}
		if w, err = snap.World(q); err != nil {
			return err
		}
		logger.Info("loaded snapshot", zap.String("path", opts.snapshot), zap.String("run_id", snap.Header.RunID))
	} else if w, err = tables.LoadWorld(opts.world, q); err != nil {
		return err
	}
	cat, err := catalogs.Load(opts.templates)
	if err != nil {
		return err
	}

	var todo []recorded
	if opts.schedules != "" {
		rows, err := tables.LoadSchedules(opts.schedules)
		if err != nil {
			return err
		}
		for i, r := range rows {
			rec := recorded{source: fmt.Sprintf("row %d", i+1), actions: r.Actions}
			if n := len(r.StepEUs); n > 0 {
				rec.eu = r.StepEUs[n-1]
			}
			todo = append(todo, rec)
		}
	}
	if opts.events != "" {
		evs, err := persistlog.ReadEvents(opts.events)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if ev.Type != protocol.EventCompleted && ev.Type != protocol.EventFinished {
				continue
			}
			todo = append(todo, recorded{
				source:  fmt.Sprintf("%s seq %d", ev.Type, ev.Seq),
				actions: ev.Schedule,
				eu:      ev.EU,
			})
		}
	}

	fmt.Fprintf(out, "start digest %s\n", w.Digest())
	var failed []error
	for i, rec := range todo {
		eu, digest, err := replay(w, cat, opts.self, opts.params, rec.actions)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", rec.source, err))
			fmt.Fprintf(out, "%d. %s FAILED: %v\n", i+1, rec.source, err)
			continue
		}
		fmt.Fprintf(out, "%d. %s actions=%d eu=%.4f recorded=%.4f digest=%s\n", i+1, rec.source, len(rec.actions), eu, rec.eu, digest)
	}
	logger.Info("replay done", zap.Int("schedules", len(todo)), zap.Int("failed", len(failed)))
	return errors.Join(failed...)
}

// replay applies the rendered actions to a copy of w and scores the schedule
// against w.
func replay(w *world.World, cat *catalogs.Catalog, self string, p metrics.Params, rendered []string) (float64, string, error) {
	acts := make([]world.Action, 0, len(rendered))
	for _, s := range rendered {
		spec, err := protocol.ParseAction(s)
		if err != nil {
			return 0, "", err
		}
		a, err := world.ActionFromSpec(spec, cat)
		if err != nil {
			return 0, "", err
		}
		acts = append(acts, a)
	}
	sched := world.NewSchedule(acts...)
	final, err := sched.Apply(w)
	if err != nil {
		return 0, "", err
	}
	eu, err := metrics.ExpectedUtility(sched, w, self, p)
	if err != nil {
		return 0, "", err
	}
	return eu, final.Digest(), nil
}
