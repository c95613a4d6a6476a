package model

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	KindTransmitter = "transmitter"
	KindReceiver    = "receiver"

	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"

	LogFormatText = "text"
	LogFormatJSON = "json"

	DefaultTick        = time.Second
	DefaultGracePeriod = 2 * time.Second
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

// Config is the radarsim configuration file, usually radarsim.yaml.
type Config struct {
	Version    int               `json:"version" yaml:"version"` // fixed 0 for now
	Simulation Simulation        `json:"simulation,omitempty" yaml:"simulation,omitempty"`
	Components []ComponentConfig `json:"components,omitempty" yaml:"components,omitempty"`
	Output     string            `json:"output,omitempty" yaml:"output,omitempty"` // "stdout"|"stderr"|"discard"|path
	Service    Service           `json:"service,omitempty" yaml:"service,omitempty"`
}

// Simulation holds the cadence and the run bounds. Durations use Go
// syntax (1s, 250ms); an empty or zero duration runs until interrupted.
type Simulation struct {
	Tick        string `json:"tick,omitempty" yaml:"tick,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Iterations  int    `json:"iterations,omitempty" yaml:"iterations,omitempty"` // 0 is unbounded
	GracePeriod string `json:"grace_period,omitempty" yaml:"grace_period,omitempty"`
}

// ComponentConfig is a tagged union on Kind: transmitter settings use
// FrequencyGHz, receiver settings use InitialDelay.
type ComponentConfig struct {
	Kind         string   `json:"kind" yaml:"kind"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	FrequencyGHz *float64 `json:"frequency_ghz,omitempty" yaml:"frequency_ghz,omitempty"`
	InitialDelay string   `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

func (c ComponentConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type Service struct {
	Verbose   *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	LogFormat string   `json:"log_format,omitempty" yaml:"log_format,omitempty"` // "text"|"json"
	Metrics   *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Status    *Status  `json:"status,omitempty" yaml:"status,omitempty"`
	Tracing   *Tracing `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// Metrics exposes Prometheus metrics over HTTP.
type Metrics struct {
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Status configures the periodic supervisor status report. Exactly one of
// Cron (5 fields or a macro) and Duration (ISO8601, eg PT30S) is used,
// Cron wins when both are set.
type Status struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

type Tracing struct {
	Enabled     *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

// Timing is the parsed form of Simulation.
type Timing struct {
	Tick       time.Duration
	Duration   time.Duration
	Iterations int
	Grace      time.Duration
}

// Timing parses the textual durations. Missing values fall back to
// DefaultTick and DefaultGracePeriod.
func (s Simulation) Timing() (Timing, error) {
	var t Timing
	var err error
	if t.Tick, err = parseDuration("simulation.tick", s.Tick, DefaultTick); err != nil {
		return Timing{}, err
	}
	if t.Tick <= 0 {
		return Timing{}, fmt.Errorf("%w: got %s", ErrInvalidTick, t.Tick)
	}
	if t.Duration, err = parseDuration("simulation.duration", s.Duration, 0); err != nil {
		return Timing{}, err
	}
	if t.Grace, err = parseDuration("simulation.grace_period", s.GracePeriod, DefaultGracePeriod); err != nil {
		return Timing{}, err
	}
	if t.Grace <= 0 {
		t.Grace = DefaultGracePeriod
	}
	if s.Iterations < 0 {
		return Timing{}, fmt.Errorf("simulation.iterations must not be negative: got %d", s.Iterations)
	}
	t.Iterations = s.Iterations
	return t, nil
}

func parseDuration(key, value string, dflt time.Duration) (time.Duration, error) {
	if value == "" {
		return dflt, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

// DefaultConfig returns the configuration used when no file is found: one
// transmitter and one receiver ticking every second, printing to stdout.
func DefaultConfig() Config {
	cfg := Config{Version: 0}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field which has a default.
func (c *Config) ApplyDefaults() {
	if c.Simulation.Tick == "" {
		c.Simulation.Tick = DefaultTick.String()
	}
	if c.Simulation.GracePeriod == "" {
		c.Simulation.GracePeriod = DefaultGracePeriod.String()
	}
	if len(c.Components) == 0 {
		c.Components = []ComponentConfig{
			{Kind: KindTransmitter},
			{Kind: KindReceiver},
		}
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	if c.Service.LogFormat == "" {
		c.Service.LogFormat = LogFormatText
	}
}

// LoadConfig validates YAML from r against CUE schema, decodes it to Config
// and applies defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("radarsim.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)
	if yamlValue.Err() != nil {
		return nil, yamlValue.Err()
	}

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}
	if out.Version != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, out.Version)
	}
	out.ApplyDefaults()

	return &out, nil
}
