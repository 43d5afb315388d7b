package telemetry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nations.ai/internal/protocol"
)

// NewLogger builds the process logger. format is "json" or "console".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", protocol.ErrInvalidConfig, level)
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("%w: log format %q", protocol.ErrInvalidConfig, format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// LogObserver writes search events to a zap logger. Progress events are
// logged at debug.
type LogObserver struct {
	log *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{log: logger}
}

func (o *LogObserver) OnEvent(ev protocol.SearchEvent) {
	switch ev.Type {
	case protocol.EventStart:
		o.log.Info("search started",
			zap.String("run_id", ev.RunID),
			zap.String("mode", ev.Mode),
			zap.Float64("eu", ev.EU))
	case protocol.EventNewBest:
		o.log.Info("new best schedule",
			zap.Int("depth", ev.Depth),
			zap.Float64("eu", ev.EU),
			zap.Strings("schedule", ev.Schedule))
	case protocol.EventCompleted:
		o.log.Info("schedule completed",
			zap.Int("depth", ev.Depth),
			zap.Float64("eu", ev.EU),
			zap.Strings("schedule", ev.Schedule))
	case protocol.EventFinished:
		o.log.Info("search finished",
			zap.Int("depth", ev.Depth),
			zap.Float64("eu", ev.EU),
			zap.Int("frontier", ev.Frontier))
	case protocol.EventExpanded:
		if ce := o.log.Check(zap.DebugLevel, "expanded"); ce != nil {
			ce.Write(
				zap.Int("depth", ev.Depth),
				zap.Float64("eu", ev.EU),
				zap.Int("candidates", ev.Candidates),
				zap.Int("frontier", ev.Frontier))
		}
	case protocol.EventPruned:
		if ce := o.log.Check(zap.DebugLevel, "pruned"); ce != nil {
			ce.Write(
				zap.String("reason", ev.Reason),
				zap.String("action", ev.Action),
				zap.Float64("eu", ev.EU),
				zap.Int("count", ev.Count))
		}
	default:
		o.log.Warn("unknown search event", zap.String("type", ev.Type))
	}
}
