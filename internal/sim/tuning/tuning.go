// Package tuning loads the planner's YAML configuration.
//
// Values are layered: Defaults, then the YAML file, then whatever the CLI
// applies on top. Files are checked against an embedded JSON Schema before
// they are decoded.
package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/metrics"
)

//go:embed planner.schema.json
var schemaJSON []byte

const schemaURL = "planner.schema.json"

type Tuning struct {
	World     string `yaml:"world"`
	Weights   string `yaml:"weights"`
	Templates string `yaml:"templates"`
	Self      string `yaml:"self"`

	AllowTransfers bool `yaml:"allow_transfers"`
	ScoreFromRoot  bool `yaml:"score_from_root"`

	Metrics  metrics.Params `yaml:"metrics"`
	Search   Search         `yaml:"search"`
	Schedule Schedule       `yaml:"schedule"`
	Output   Output         `yaml:"output"`
}

type Search struct {
	MaxDepth  int `yaml:"max_depth"`
	BeamWidth int `yaml:"beam_width"`
}

type Schedule struct {
	NumSchedules int     `yaml:"num_schedules"`
	DepthBound   int     `yaml:"depth_bound"`
	FrontierMax  int     `yaml:"frontier_max"`
	EUFloor      float64 `yaml:"eu_floor"`
	Dedup        bool    `yaml:"dedup"`
}

type Output struct {
	Schedules    string `yaml:"schedules"`
	Snapshot     string `yaml:"snapshot"`
	EventsDir    string `yaml:"events_dir"`
	IndexDB      string `yaml:"index_db"`
	ObserverAddr string `yaml:"observer_addr"`
}

func Defaults() Tuning {
	return Tuning{
		Self:           "self",
		AllowTransfers: true,
		Metrics:        metrics.DefaultParams(),
		Search:         Search{MaxDepth: 6, BeamWidth: 50},
		Schedule: Schedule{
			NumSchedules: 5,
			DepthBound:   6,
			FrontierMax:  50,
			EUFloor:      -2.0,
		},
		Output: Output{Schedules: "schedules.csv"},
	}
}

// Load overlays the YAML file at path onto Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := validateDocument(raw); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate checks the cross-field constraints the schema cannot express and
// re-checks ranges for values that came from flags or the environment.
func (t Tuning) Validate() error {
	switch {
	case t.Metrics.Gamma < 0 || t.Metrics.Gamma > 1:
		return fmt.Errorf("%w: gamma must be in [0,1], got %v", protocol.ErrInvalidConfig, t.Metrics.Gamma)
	case t.Search.MaxDepth < 0:
		return fmt.Errorf("%w: search.max_depth must be >= 0", protocol.ErrInvalidConfig)
	case t.Search.BeamWidth < 0:
		return fmt.Errorf("%w: search.beam_width must be >= 0", protocol.ErrInvalidConfig)
	case t.Schedule.NumSchedules <= 0:
		return fmt.Errorf("%w: schedule.num_schedules must be > 0", protocol.ErrInvalidConfig)
	case t.Schedule.DepthBound < 0:
		return fmt.Errorf("%w: schedule.depth_bound must be >= 0", protocol.ErrInvalidConfig)
	case t.Schedule.FrontierMax < 0:
		return fmt.Errorf("%w: schedule.frontier_max must be >= 0", protocol.ErrInvalidConfig)
	}
	return nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateDocument checks a raw YAML document against the schema. YAML is
// first round-tripped through JSON so the validator sees JSON types.
func validateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	return nil
}
