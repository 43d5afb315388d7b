package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nations.ai/internal/sim/tuning"
)

const envPrefix = "NATIONS"

// setting maps a config key to its flag. Precedence: flag, then
// NATIONS_<KEY> from the environment, then the config file, then defaults.
type setting struct {
	key   string
	flag  string
	apply func(v *viper.Viper, key string, t *tuning.Tuning)
}

func str(key, flag string, set func(t *tuning.Tuning, s string)) setting {
	return setting{key: key, flag: flag, apply: func(v *viper.Viper, k string, t *tuning.Tuning) { set(t, v.GetString(k)) }}
}

func integer(key, flag string, set func(t *tuning.Tuning, n int)) setting {
	return setting{key: key, flag: flag, apply: func(v *viper.Viper, k string, t *tuning.Tuning) { set(t, v.GetInt(k)) }}
}

func number(key, flag string, set func(t *tuning.Tuning, f float64)) setting {
	return setting{key: key, flag: flag, apply: func(v *viper.Viper, k string, t *tuning.Tuning) { set(t, v.GetFloat64(k)) }}
}

func boolean(key, flag string, set func(t *tuning.Tuning, b bool)) setting {
	return setting{key: key, flag: flag, apply: func(v *viper.Viper, k string, t *tuning.Tuning) { set(t, v.GetBool(k)) }}
}

var settings = []setting{
	str("world", "world", func(t *tuning.Tuning, s string) { t.World = s }),
	str("weights", "weights", func(t *tuning.Tuning, s string) { t.Weights = s }),
	str("templates", "templates", func(t *tuning.Tuning, s string) { t.Templates = s }),
	str("self", "self", func(t *tuning.Tuning, s string) { t.Self = s }),
	boolean("allow_transfers", "allow-transfers", func(t *tuning.Tuning, b bool) { t.AllowTransfers = b }),
	boolean("score_from_root", "score-from-root", func(t *tuning.Tuning, b bool) { t.ScoreFromRoot = b }),

	number("metrics.gamma", "gamma", func(t *tuning.Tuning, f float64) { t.Metrics.Gamma = f }),
	number("metrics.failure_cost", "failure-cost", func(t *tuning.Tuning, f float64) { t.Metrics.FailureCost = f }),
	number("metrics.k", "k", func(t *tuning.Tuning, f float64) { t.Metrics.K = f }),
	number("metrics.x0", "x0", func(t *tuning.Tuning, f float64) { t.Metrics.X0 = f }),

	integer("search.max_depth", "max-depth", func(t *tuning.Tuning, n int) { t.Search.MaxDepth = n }),
	integer("search.beam_width", "beam-width", func(t *tuning.Tuning, n int) { t.Search.BeamWidth = n }),

	integer("schedule.num_schedules", "n", func(t *tuning.Tuning, n int) { t.Schedule.NumSchedules = n }),
	integer("schedule.depth_bound", "depth", func(t *tuning.Tuning, n int) { t.Schedule.DepthBound = n }),
	integer("schedule.frontier_max", "frontier-max", func(t *tuning.Tuning, n int) { t.Schedule.FrontierMax = n }),
	number("schedule.eu_floor", "eu-floor", func(t *tuning.Tuning, f float64) { t.Schedule.EUFloor = f }),
	boolean("schedule.dedup", "dedup", func(t *tuning.Tuning, b bool) { t.Schedule.Dedup = b }),

	str("output.schedules", "output", func(t *tuning.Tuning, s string) { t.Output.Schedules = s }),
	str("output.snapshot", "snapshot", func(t *tuning.Tuning, s string) { t.Output.Snapshot = s }),
	str("output.events_dir", "events-dir", func(t *tuning.Tuning, s string) { t.Output.EventsDir = s }),
	str("output.index_db", "index-db", func(t *tuning.Tuning, s string) { t.Output.IndexDB = s }),
	str("output.observer_addr", "observer-addr", func(t *tuning.Tuning, s string) { t.Output.ObserverAddr = s }),
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func bind(v *viper.Viper, fs *pflag.FlagSet, key, flag string) error {
	f := fs.Lookup(flag)
	if f == nil {
		return nil
	}
	return v.BindPFlag(key, f)
}

// globalOptions resolves the root-level options that are not part of the
// planner file.
func globalOptions(cmd *cobra.Command) (configPath, logLevel, logFormat string, err error) {
	v := newViper()
	for key, flag := range map[string]string{"config": "config", "log.level": "log-level", "log.format": "log-format"} {
		if err := bind(v, cmd.Flags(), key, flag); err != nil {
			return "", "", "", err
		}
	}
	return v.GetString("config"), v.GetString("log.level"), v.GetString("log.format"), nil
}

// resolveTuning loads the planner file, if any, and overlays environment
// variables and explicitly set flags.
func resolveTuning(cmd *cobra.Command, configPath string) (tuning.Tuning, error) {
	t := tuning.Defaults()
	if configPath != "" {
		loaded, err := tuning.Load(configPath)
		if err != nil {
			return t, err
		}
		t = loaded
	}

	v := newViper()
	for _, s := range settings {
		if err := bind(v, cmd.Flags(), s.key, s.flag); err != nil {
			return t, err
		}
		if v.IsSet(s.key) {
			s.apply(v, s.key, &t)
		}
	}
	return t, t.Validate()
}

func addInputFlags(fs *pflag.FlagSet, d tuning.Tuning) {
	fs.String("config", "", "planner YAML file")
	fs.String("log-level", "info", "log level (debug|info|warn|error)")
	fs.String("log-format", "console", "log encoding (console|json)")

	fs.String("world", d.World, "world table CSV (Country,<resource>...)")
	fs.String("weights", d.Weights, "weights table CSV (resource,weight,baseline)")
	fs.String("templates", d.Templates, "template file (.tpl or .json) or directory")
	fs.String("self", d.Self, "country the planner acts for")
	fs.Bool("allow-transfers", d.AllowTransfers, "generate 1-unit transfers to other countries")
	fs.Bool("score-from-root", d.ScoreFromRoot, "score successor schedules against the initial world")

	fs.Float64("gamma", d.Metrics.Gamma, "discount factor")
	fs.Float64("failure-cost", d.Metrics.FailureCost, "utility of a rejected schedule")
	fs.Float64("k", d.Metrics.K, "logistic steepness")
	fs.Float64("x0", d.Metrics.X0, "logistic midpoint")

	fs.String("events-dir", d.Output.EventsDir, "write search events as JSONL.zst into this directory")
	fs.String("index-db", d.Output.IndexDB, "record runs and schedules in this SQLite file")
	fs.String("observer-addr", d.Output.ObserverAddr, "serve bootstrap, event stream and metrics on this loopback address")
}
