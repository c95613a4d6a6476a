package periodic_test

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/periodic"
	"github.com/stretchr/testify/require"
)

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("elapses", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			start := time.Now()
			err := periodic.Sleep(context.Background(), time.Second)
			require.NoError(t, err)
			require.Equal(t, time.Second, time.Since(start))
		})
	})

	t.Run("interrupted", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			start := time.Now()
			err := periodic.Sleep(ctx, time.Hour)
			require.ErrorIs(t, err, context.DeadlineExceeded)
			require.Equal(t, 100*time.Millisecond, time.Since(start))
		})
	})

	t.Run("already cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, periodic.Sleep(ctx, 0), context.Canceled)
	})

	t.Run("non positive", func(t *testing.T) {
		require.NoError(t, periodic.Sleep(context.Background(), -time.Second))
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	type given struct {
		limit   int
		timeout time.Duration
	}
	type then struct {
		calls   int
		elapsed time.Duration
	}
	var testCases = []struct {
		scenario string
		given    given
		then     then
	}{
		{"unbounded, cancel 3.5s", given{0, 3500 * time.Millisecond}, then{4, 3500 * time.Millisecond}},
		{"limit 2", given{2, time.Hour}, then{2, time.Second}},
		{"limit 1", given{1, time.Hour}, then{1, 0}},
		{"limit 10, cancel 2.5s", given{10, 2500 * time.Millisecond}, then{3, 2500 * time.Millisecond}},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), tc.given.timeout)
				defer cancel()

				var calls int
				start := time.Now()
				err := periodic.Run(ctx, time.Second, tc.given.limit, func(context.Context) {
					calls++
				})
				require.NoError(t, err)
				require.Equal(t, tc.then.calls, calls)
				require.Equal(t, tc.then.elapsed, time.Since(start))
			})
		})
	}
}

func TestRun_InvalidInterval(t *testing.T) {
	t.Parallel()
	err := periodic.Run(t.Context(), 0, 0, func(context.Context) {
		t.Fatal("must not be called")
	})
	require.ErrorIs(t, err, periodic.ErrInvalidInterval)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	var calls int
	err := periodic.Run(ctx, time.Second, 0, func(context.Context) { calls++ })
	require.NoError(t, err)
	require.Zero(t, calls)
}
