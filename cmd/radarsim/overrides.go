package main

import (
	"fmt"
	"strings"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// override maps a configuration key to the run flag changing it. Every key
// can be set from the environment too, eg RADARSIM_SIMULATION_TICK.
type override struct {
	key  string
	flag string
}

var overrideKeys = []override{
	{key: "simulation.tick", flag: "tick"},
	{key: "simulation.duration", flag: "duration"},
	{key: "simulation.iterations", flag: "iterations"},
	{key: "simulation.grace_period", flag: "grace"},
	{key: "output", flag: "output"},
	{key: "service.metrics.addr", flag: "metrics-addr"},
	{key: "service.log_format"},
	{key: "service.verbose"},
}

func bindOverrides(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("RADARSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrideKeys {
		if err := v.BindEnv(o.key); err != nil {
			return fmt.Errorf("binding env for %s: %w", o.key, err)
		}
		if o.flag == "" || flags == nil {
			continue
		}
		if err := v.BindPFlag(o.key, flags.Lookup(o.flag)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", o.flag, err)
		}
	}
	return nil
}

// applyOverrides copies values explicitly set by a flag or an environment
// variable over cfg. Defaults of unchanged flags never override the config
// file.
func applyOverrides(v *viper.Viper, cfg *model.Config) error {
	if v.IsSet("simulation.tick") {
		cfg.Simulation.Tick = v.GetString("simulation.tick")
	}
	if v.IsSet("simulation.duration") {
		cfg.Simulation.Duration = v.GetString("simulation.duration")
	}
	if v.IsSet("simulation.iterations") {
		n, err := cast.ToIntE(v.Get("simulation.iterations"))
		if err != nil {
			return fmt.Errorf("invalid simulation.iterations override: %w", err)
		}
		cfg.Simulation.Iterations = n
	}
	if v.IsSet("simulation.grace_period") {
		cfg.Simulation.GracePeriod = v.GetString("simulation.grace_period")
	}
	if v.IsSet("output") {
		cfg.Output = v.GetString("output")
	}
	if v.IsSet("service.metrics.addr") {
		if cfg.Service.Metrics == nil {
			cfg.Service.Metrics = &model.Metrics{}
		}
		cfg.Service.Metrics.Addr = v.GetString("service.metrics.addr")
	}
	if v.IsSet("service.log_format") {
		cfg.Service.LogFormat = v.GetString("service.log_format")
	}
	if v.IsSet("service.verbose") {
		verbose := v.GetBool("service.verbose")
		cfg.Service.Verbose = &verbose
	}

	if _, err := cfg.Simulation.Timing(); err != nil {
		return fmt.Errorf("invalid simulation override: %w", err)
	}
	return nil
}
