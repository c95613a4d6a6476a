package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/CZERTAINLY/radarsim/internal/model"
)

func newStatusScheduler(ctx context.Context, cfg model.Status, task func()) (gocron.Scheduler, error) {
	d, err := cfg.Period(time.Now())
	if err != nil {
		return nil, err
	}
	var job gocron.JobDefinition
	if cfg.Cron != "" {
		job = gocron.CronJob(cfg.Cron, false)
		slog.DebugContext(ctx, "successfully parsed", "cron", cfg.Cron, "period", d.String())
	} else {
		job = gocron.DurationJob(d)
		slog.DebugContext(ctx, "successfully parsed", "duration", d.String())
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(task),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}

func (s *Supervisor) reportStatus(ctx context.Context) {
	args := []any{
		"state", s.State().String(),
		"running", s.Running(),
	}
	for _, st := range s.Stats() {
		args = append(args, slog.Group(st.Name,
			"lines", st.Lines,
			"failures", st.Failures,
		))
	}
	s.logger.InfoContext(ctx, "supervisor status", args...)
}
