package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nations.ai/internal/persistence/indexdb"
	"nations.ai/internal/persistence/snapshot"
	"nations.ai/internal/persistence/tables"
	"nations.ai/internal/protocol"
	"nations.ai/internal/search"
	"nations.ai/internal/sim/catalogs"
	"nations.ai/internal/sim/tuning"
)

// prettyLines bounds the final world printed by search.
const prettyLines = 20

func newRootCmd() *cobra.Command {
	d := tuning.Defaults()
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Plan resource transforms and transfers for one country",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addInputFlags(root.PersistentFlags(), d)
	root.AddCommand(newSearchCmd(d), newScheduleCmd(d), newTemplatesCmd())
	return root
}

func newSearchCmd(d tuning.Tuning) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the best schedule with best-first beam search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, protocol.ModeSearch)
			if err != nil {
				return err
			}
			defer rt.close()
			return runSearch(rt, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.Int("max-depth", d.Search.MaxDepth, "maximum schedule length")
	fs.Int("beam-width", d.Search.BeamWidth, "frontier size kept after each expansion (0 = unbounded)")
	fs.String("snapshot", d.Output.Snapshot, "write the final world of the best schedule to this .snap.zst file")
	return cmd
}

func newScheduleCmd(d tuning.Tuning) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Collect the top schedules that reach the depth bound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, protocol.ModeSchedule)
			if err != nil {
				return err
			}
			defer rt.close()
			return runSchedule(rt, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.Int("n", d.Schedule.NumSchedules, "number of schedules to collect")
	fs.Int("depth", d.Schedule.DepthBound, "schedule length to collect")
	fs.Int("frontier-max", d.Schedule.FrontierMax, "frontier size kept after each expansion (0 = unbounded)")
	fs.Float64("eu-floor", d.Schedule.EUFloor, "drop candidates whose EU is below this value")
	fs.Bool("dedup", d.Schedule.Dedup, "suppress revisits of the same world state at the same depth")
	fs.String("output", d.Output.Schedules, "schedules CSV to write")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the loaded transform templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _, _, err := globalOptions(cmd)
			if err != nil {
				return err
			}
			t, err := resolveTuning(cmd, configPath)
			if err != nil {
				return err
			}
			if t.Templates == "" {
				return fmt.Errorf("%w: --templates is required", protocol.ErrInvalidConfig)
			}
			cat, err := catalogs.Load(t.Templates)
			if err != nil {
				return err
			}
			printTemplates(cmd.OutOrStdout(), cat)
			return nil
		},
	}
}

func printTemplates(out io.Writer, cat *catalogs.Catalog) {
	fmt.Fprintf(out, "%d templates (digest %s)\n", cat.Len(), cat.Digest)
	for i, t := range cat.Templates {
		fmt.Fprintf(out, "%d. %s: %s -> %s\n", i+1, t.Name, formatCounts(t.Inputs), formatCounts(t.Outputs))
	}
}

func formatCounts(items []catalogs.ItemCount) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s %d", it.Item, it.Count)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func runSearch(rt *runtime, out io.Writer) error {
	t := rt.tune
	eng, err := search.NewEngine(search.Config{
		SelfCountry:    t.Self,
		Templates:      rt.catalog.Templates,
		Params:         t.Metrics,
		MaxDepth:       t.Search.MaxDepth,
		BeamWidth:      t.Search.BeamWidth,
		AllowTransfers: t.AllowTransfers,
		ScoreFromRoot:  t.ScoreFromRoot,
		RunID:          rt.runID,
		Observer:       rt.observer,
	})
	if err != nil {
		return err
	}
	res, err := eng.Run(rt.world)
	if err != nil {
		return err
	}
	rt.log.Info("search done",
		zap.Float64("eu", res.EU),
		zap.Int("popped", res.Stats.Popped),
		zap.Int("expanded", res.Stats.Expanded),
		zap.Int("generated", res.Stats.Generated),
		zap.Any("pruned", res.Stats.Pruned))

	fmt.Fprintf(out, "Best schedule (%d actions):\n", res.Schedule.Len())
	for i, a := range res.Schedule.Strings() {
		fmt.Fprintf(out, "%d. %s\n", i+1, a)
	}
	fmt.Fprintf(out, "EU: %.4f\n", res.EU)
	fmt.Fprintf(out, "Final world:\n%s\n", res.World.Pretty(prettyLines))

	digest := res.World.Digest()
	rt.index.RecordSchedule(indexdb.ScheduleRecord{
		RunID:       rt.runID,
		Rank:        1,
		Actions:     res.Schedule.Strings(),
		StepEUs:     []float64{res.EU},
		FinalEU:     res.EU,
		FinalDigest: digest,
	})
	rt.finish(res.EU, res.Stats)

	if t.Output.Snapshot != "" {
		snap := snapshot.FromWorld(res.World)
		snap.Header.RunID = rt.runID
		snap.SelfCountry = t.Self
		snap.Params = t.Metrics
		snap.Schedule = res.Schedule.Strings()
		snap.EU = res.EU
		if err := snapshot.WriteSnapshot(t.Output.Snapshot, snap); err != nil {
			return err
		}
		rt.log.Info("snapshot written", zap.String("path", t.Output.Snapshot), zap.String("digest", digest))
	}
	return nil
}

func runSchedule(rt *runtime, out io.Writer) error {
	t := rt.tune
	sch, err := search.NewScheduler(search.TopKConfig{
		SelfCountry:    t.Self,
		Templates:      rt.catalog.Templates,
		Params:         t.Metrics,
		NumSchedules:   t.Schedule.NumSchedules,
		DepthBound:     t.Schedule.DepthBound,
		FrontierMax:    t.Schedule.FrontierMax,
		EUFloor:        t.Schedule.EUFloor,
		Dedup:          t.Schedule.Dedup,
		AllowTransfers: t.AllowTransfers,
		ScoreFromRoot:  t.ScoreFromRoot,
		RunID:          rt.runID,
		Observer:       rt.observer,
	})
	if err != nil {
		return err
	}
	res, err := sch.Run(rt.world)
	if err != nil {
		return err
	}

	best := 0.0
	for i, c := range res.Completed {
		if i == 0 || c.EU() > best {
			best = c.EU()
		}
		rt.index.RecordSchedule(indexdb.ScheduleRecord{
			RunID:       rt.runID,
			Rank:        i + 1,
			Actions:     c.Schedule.Strings(),
			StepEUs:     c.StepEUs,
			FinalEU:     c.EU(),
			FinalDigest: c.World.Digest(),
		})
	}
	rt.finish(best, res.Stats)

	if err := tables.SaveSchedules(t.Output.Schedules, res.Rows()); err != nil {
		return err
	}
	rt.log.Info("schedules written",
		zap.String("path", t.Output.Schedules),
		zap.Int("count", len(res.Completed)),
		zap.Int("popped", res.Stats.Popped))
	fmt.Fprintf(out, "Wrote %d schedules to %s\n", len(res.Completed), t.Output.Schedules)
	return nil
}
