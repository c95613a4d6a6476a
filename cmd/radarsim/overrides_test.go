package main

import (
	"testing"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newOverrides(t *testing.T) (*viper.Viper, *cobra.Command) {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	runFlags(cmd)
	v := viper.New()
	require.NoError(t, bindOverrides(v, cmd.Flags()))
	return v, cmd
}

// can't be parallel as it uses t.Setenv
func TestApplyOverrides(t *testing.T) {
	v, cmd := newOverrides(t)
	require.NoError(t, cmd.Flags().Set("tick", "250ms"))
	require.NoError(t, cmd.Flags().Set("iterations", "3"))
	require.NoError(t, cmd.Flags().Set("metrics-addr", ":9090"))
	t.Setenv("RADARSIM_OUTPUT", "discard")
	t.Setenv("RADARSIM_SERVICE_VERBOSE", "true")

	cfg := model.DefaultConfig()
	cfg.Simulation.GracePeriod = "5s"
	require.NoError(t, applyOverrides(v, &cfg))

	require.Equal(t, "250ms", cfg.Simulation.Tick)
	require.Equal(t, 3, cfg.Simulation.Iterations)
	require.Equal(t, "5s", cfg.Simulation.GracePeriod, "unchanged flag default must not win")
	require.Equal(t, "", cfg.Simulation.Duration)
	require.Equal(t, model.OutputDiscard, cfg.Output)
	require.NotNil(t, cfg.Service.Metrics)
	require.Equal(t, ":9090", cfg.Service.Metrics.Addr)
	require.NotNil(t, cfg.Service.Verbose)
	require.True(t, *cfg.Service.Verbose)
}

func TestApplyOverrides_Invalid(t *testing.T) {
	v, cmd := newOverrides(t)
	require.NoError(t, cmd.Flags().Set("tick", "0s"))

	cfg := model.DefaultConfig()
	err := applyOverrides(v, &cfg)
	require.ErrorIs(t, err, model.ErrInvalidTick)
}

func TestApplyOverrides_InvalidIterations(t *testing.T) {
	v, _ := newOverrides(t)
	t.Setenv("RADARSIM_SIMULATION_ITERATIONS", "abc")

	cfg := model.DefaultConfig()
	cfg.Simulation.Iterations = 5
	err := applyOverrides(v, &cfg)
	require.ErrorContains(t, err, "simulation.iterations")
	require.Equal(t, 5, cfg.Simulation.Iterations)
}
