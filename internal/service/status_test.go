package service_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/service"
)

type syncBuffer struct {
	mx  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.String()
}

func TestStatusReporter(t *testing.T) {
	t.Parallel()
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	supervisor := service.NewSupervisor(t.Context(), &recordSink{}).
		WithLogger(logger).
		WithStatus(&model.Status{Duration: "PT0.05S"})
	require.NoError(t, supervisor.AddComponent(t.Context(), emitting{name: "chatty", count: 2}))
	require.NoError(t, supervisor.AddComponent(t.Context(), blocking{name: "quiet"}))
	require.NoError(t, supervisor.Start(t.Context()))

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "msg=\"supervisor status\"")
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, supervisor.Stop(t.Context()))

	out := logs.String()
	require.Contains(t, out, "state=started")
	require.Contains(t, out, "chatty.lines=2")
	require.Contains(t, out, "quiet.failures=0")

	// no report after stop
	reports := strings.Count(out, "supervisor status")
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, reports, strings.Count(logs.String(), "supervisor status"))
}

func TestStatusReporter_Invalid(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		scenario string
		given    model.Status
		then     string
	}{
		{"empty", model.Status{}, "both cron and duration are empty"},
		{"bad cron", model.Status{Cron: "61 * * * *"}, "parsing service.status.cron"},
		{"bad duration", model.Status{Duration: "30S"}, "parsing service.status.duration"},
		{"zero duration", model.Status{Duration: "PT0S"}, "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			supervisor := service.NewSupervisor(t.Context(), &recordSink{}).WithStatus(&tt.given)
			require.NoError(t, supervisor.AddComponent(t.Context(), blocking{name: "a"}))
			err := supervisor.Start(t.Context())
			require.ErrorContains(t, err, tt.then)
			_, periodErr := tt.given.Period(time.Now())
			require.EqualError(t, err, periodErr.Error())
			require.Equal(t, service.StateCreated, supervisor.State())
			require.Zero(t, supervisor.Running())
			require.NoError(t, supervisor.Close())
		})
	}
}

func TestStatusReporter_Cron(t *testing.T) {
	t.Parallel()
	supervisor := service.NewSupervisor(t.Context(), &recordSink{}).
		WithStatus(&model.Status{Cron: "@every 1h"})
	require.NoError(t, supervisor.AddComponent(t.Context(), blocking{name: "a"}))
	require.NoError(t, supervisor.Start(t.Context()))
	require.Equal(t, service.StateStarted, supervisor.State())
	require.NoError(t, supervisor.Stop(t.Context()))
}
