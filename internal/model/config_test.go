package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	yml := `
version: 0
simulation:
  tick: 250ms
  duration: 10s
  iterations: 3
components:
  - kind: transmitter
    name: tx-1
    frequency_ghz: 9.4
  - kind: receiver
    initial_delay: 500ms
  - kind: receiver
    name: spare
    enabled: false
output: discard
service:
  verbose: true
  log_format: json
  metrics:
    enabled: true
    addr: ":9100"
  status:
    duration: PT30S
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, "250ms", cfg.Simulation.Tick)
	require.Equal(t, 3, cfg.Simulation.Iterations)
	require.Len(t, cfg.Components, 3)
	require.Equal(t, model.KindTransmitter, cfg.Components[0].Kind)
	require.Equal(t, "tx-1", cfg.Components[0].Name)
	require.NotNil(t, cfg.Components[0].FrequencyGHz)
	require.InDelta(t, 9.4, *cfg.Components[0].FrequencyGHz, 1e-9)
	require.Equal(t, "500ms", cfg.Components[1].InitialDelay)
	require.True(t, cfg.Components[1].IsEnabled())
	require.False(t, cfg.Components[2].IsEnabled())
	require.Equal(t, model.OutputDiscard, cfg.Output)
	require.Equal(t, model.LogFormatJSON, cfg.Service.LogFormat)
	require.NotNil(t, cfg.Service.Metrics)
	require.Equal(t, ":9100", cfg.Service.Metrics.Addr)
	require.NotNil(t, cfg.Service.Status)
	require.Equal(t, "PT30S", cfg.Service.Status.Duration)

	timing, err := cfg.Simulation.Timing()
	require.NoError(t, err)
	require.Equal(t, model.Timing{
		Tick:       250 * time.Millisecond,
		Duration:   10 * time.Second,
		Iterations: 3,
		Grace:      model.DefaultGracePeriod,
	}, timing)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := model.LoadConfig(strings.NewReader("version: 0\n"))
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(), *cfg)

	require.Len(t, cfg.Components, 2)
	require.Equal(t, model.KindTransmitter, cfg.Components[0].Kind)
	require.Equal(t, model.KindReceiver, cfg.Components[1].Kind)
	require.Equal(t, model.OutputStdout, cfg.Output)
}

func TestLoadConfig_Fail(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    string
	}{
		{"unknown kind", "version: 0\ncomponents:\n  - kind: antenna\n"},
		{"unknown field", "version: 0\nsimulation:\n  speed: 2\n"},
		{"negative frequency", "version: 0\ncomponents:\n  - kind: transmitter\n    frequency_ghz: -1.5\n"},
		{"frequency on receiver", "version: 0\ncomponents:\n  - kind: receiver\n    frequency_ghz: 2.45\n"},
		{"bad tick", "version: 0\nsimulation:\n  tick: soon\n"},
		{"bad log format", "version: 0\nservice:\n  log_format: xml\n"},
		{"wrong version", "version: 1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadConfig(strings.NewReader(tc.given))
			require.Error(t, err)
			details := model.CueErrDetails(err)
			require.NotEmpty(t, details)
			for _, d := range details {
				require.NotEmpty(t, d.Code)
				require.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestTiming(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    model.Simulation
		then     model.Timing
		err      bool
	}{
		{"defaults", model.Simulation{}, model.Timing{Tick: time.Second, Grace: 2 * time.Second}, false},
		{"explicit", model.Simulation{Tick: "10ms", Duration: "35ms", Iterations: 2, GracePeriod: "5ms"}, model.Timing{Tick: 10 * time.Millisecond, Duration: 35 * time.Millisecond, Iterations: 2, Grace: 5 * time.Millisecond}, false},
		{"zero grace falls back", model.Simulation{GracePeriod: "0s"}, model.Timing{Tick: time.Second, Grace: 2 * time.Second}, false},
		{"zero tick", model.Simulation{Tick: "0s"}, model.Timing{}, true},
		{"garbage duration", model.Simulation{Duration: "forever"}, model.Timing{}, true},
		{"negative iterations", model.Simulation{Iterations: -1}, model.Timing{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			got, err := tc.given.Timing()
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then, got)
		})
	}
}

func TestCueErrDetails_NonCue(t *testing.T) {
	t.Parallel()
	require.Nil(t, model.CueErrDetails(nil))
	details := model.CueErrDetails(model.ErrUnsupportedVersion)
	require.Len(t, details, 1)
	require.Equal(t, "validation_error", details[0].Code)
}
