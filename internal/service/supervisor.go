package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/CZERTAINLY/radarsim/internal/log"
	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/observability"
	"github.com/CZERTAINLY/radarsim/internal/radar"
)

const tracerName = "github.com/CZERTAINLY/radarsim/internal/service"

type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sink    model.Sink
	grace   time.Duration
	logger  *slog.Logger
	metrics *observability.Collector
	status  *model.Status

	mx         sync.Mutex
	state      State
	components []model.Component
	handles    []*handle
	scheduler  gocron.Scheduler

	// output is a one slot lock serializing writes to sink, acquirable
	// with a timeout
	output chan struct{}
	writer atomic.Pointer[string]
	muted  atomic.Bool

	running  atomic.Int64
	idle     chan struct{}
	idleOnce sync.Once

	stopped chan struct{}
	stopErr error
}

type handle struct {
	component model.Component
	emitter   *emitter
	done      chan struct{}
	err       error
}

// ComponentStats are the output counters of a launched component.
type ComponentStats struct {
	Name     string
	Lines    int64
	Failures int64
}

// NewSupervisor returns a Supervisor in the Created state. The cancellation
// token shared by all components is derived from ctx.
func NewSupervisor(ctx context.Context, sink model.Sink) *Supervisor {
	ctx, cancel := context.WithCancel(ctx)
	return &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		sink:    sink,
		grace:   model.DefaultGracePeriod,
		logger:  slog.Default(),
		output:  make(chan struct{}, 1),
		idle:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// SupervisorFromConfig builds a supervisor with every enabled component of
// cfg registered.
func SupervisorFromConfig(ctx context.Context, cfg model.Config, sink model.Sink) (*Supervisor, error) {
	cfg.ApplyDefaults()
	timing, err := cfg.Simulation.Timing()
	if err != nil {
		return nil, err
	}

	supervisor := NewSupervisor(ctx, sink).WithGracePeriod(timing.Grace)
	if st := cfg.Service.Status; st != nil {
		if _, err := st.Period(time.Now()); err != nil {
			return nil, fmt.Errorf("service.status: %w", err)
		}
		supervisor = supervisor.WithStatus(st)
	}

	for _, cc := range cfg.Components {
		if !cc.IsEnabled() {
			slog.DebugContext(ctx, "component disabled: skipping", "kind", cc.Kind, "name", cc.Name)
			continue
		}
		component, err := radar.FromConfig(cc, timing)
		if err != nil {
			return nil, fmt.Errorf("initializing component: %w", err)
		}
		if err := supervisor.AddComponent(ctx, component); err != nil {
			return nil, err
		}
	}
	return supervisor, nil
}

// WithGracePeriod sets how long Stop waits for components. Non-positive
// values are ignored.
func (s *Supervisor) WithGracePeriod(d time.Duration) *Supervisor {
	if d > 0 {
		s.grace = d
	}
	return s
}

func (s *Supervisor) WithLogger(logger *slog.Logger) *Supervisor {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Supervisor) WithMetrics(c *observability.Collector) *Supervisor {
	s.metrics = c
	return s
}

// WithStatus enables the periodic status report. It is scheduled by Start.
func (s *Supervisor) WithStatus(st *model.Status) *Supervisor {
	s.status = st
	return s
}

// AddComponent registers c. It is legal only before Start.
func (s *Supervisor) AddComponent(ctx context.Context, c model.Component) error {
	if c == nil {
		return ErrNilComponent
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	switch s.state {
	case StateCreated:
	case StateStopped:
		s.logger.WarnContext(ctx, "supervisor stopped: ignoring component", "component", c.Name())
		return ErrStopped
	default:
		s.logger.WarnContext(ctx, "supervisor already started: ignoring component", "component", c.Name())
		return ErrRegistrationClosed
	}
	s.components = append(s.components, c)
	s.logger.DebugContext(ctx, "component registered", "component", c.Name(), "components", len(s.components))
	return nil
}

// Start launches one goroutine per registered component and returns
// immediately. A second call returns ErrAlreadyStarted and launches nothing.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "supervisor.start")
	defer span.End()

	s.mx.Lock()
	defer s.mx.Unlock()
	switch s.state {
	case StateCreated:
	case StateStopped:
		return ErrStopped
	default:
		s.logger.WarnContext(ctx, "supervisor already started: ignoring start")
		return ErrAlreadyStarted
	}

	if s.status != nil {
		scheduler, err := newStatusScheduler(ctx, *s.status, func() { s.reportStatus(s.ctx) })
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		s.scheduler = scheduler
	}

	n := len(s.components)
	s.state = StateStarted
	s.running.Store(int64(n))
	s.metrics.SetRunning(n)
	if n == 0 {
		s.markIdle()
	}

	s.handles = make([]*handle, 0, n)
	for _, c := range s.components {
		h := &handle{
			component: c,
			emitter:   &emitter{supervisor: s, name: c.Name()},
			done:      make(chan struct{}),
		}
		s.handles = append(s.handles, h)
		go s.run(h)
	}
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	span.SetAttributes(attribute.Int("components", n))
	s.logger.InfoContext(ctx, "supervisor started", "components", n, "grace_period", s.grace.String())
	return nil
}

func (s *Supervisor) run(h *handle) {
	name := h.component.Name()
	ctx := log.ContextAttrs(s.ctx, slog.String("component", name))

	defer close(h.done)
	defer func() {
		n := s.running.Add(-1)
		s.metrics.SetRunning(int(n))
		if n == 0 {
			s.markIdle()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			h.err = fmt.Errorf("%w: %s: %v", ErrComponentPanic, name, r)
			s.logger.ErrorContext(ctx, "component panicked", "error", h.err)
		}
	}()

	s.logger.DebugContext(ctx, "component started")
	err := h.component.Run(ctx, h.emitter)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.logger.DebugContext(ctx, "component finished")
	default:
		h.err = fmt.Errorf("component %s: %w", name, err)
		s.logger.ErrorContext(ctx, "component failed", "error", err)
	}
}

// Stop cancels every component and waits for them until the grace period
// or ctx expires. Stop before Start does nothing. Repeated and concurrent
// calls wait for the first one and return its result.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mx.Lock()
	switch s.state {
	case StateCreated:
		s.mx.Unlock()
		return nil
	case StateStopping, StateStopped:
		s.mx.Unlock()
		select {
		case <-s.stopped:
			return s.stopErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.state = StateStopping
	handles := s.handles
	scheduler := s.scheduler
	s.mx.Unlock()

	return s.shutdown(ctx, handles, scheduler)
}

// Close tears the supervisor down. From Created it moves straight to
// Stopped so nothing can be started afterwards.
func (s *Supervisor) Close() error {
	s.mx.Lock()
	if s.state == StateCreated {
		s.state = StateStopped
		s.mx.Unlock()
		s.cancel()
		s.markIdle()
		close(s.stopped)
		return nil
	}
	s.mx.Unlock()
	return s.Stop(context.Background())
}

func (s *Supervisor) shutdown(ctx context.Context, handles []*handle, scheduler gocron.Scheduler) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "supervisor.stop")
	defer span.End()

	begin := time.Now()
	s.muted.Store(true)
	s.cancel()

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			s.logger.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
		}
	}

	// wait for an in-flight write, nothing is written once it is done
	expired := false
	select {
	case s.output <- struct{}{}:
		<-s.output
	case <-timer.C:
		expired = true
	case <-ctx.Done():
		expired = true
	}
	if expired {
		var writer string
		if name := s.writer.Load(); name != nil {
			writer = *name
		}
		s.logger.ErrorContext(ctx, "output stalled: line write still in progress", "component", writer)
	}

	var errs []error
	var stuck []string
	for _, h := range handles {
		if !expired {
			select {
			case <-h.done:
				if h.err != nil {
					errs = append(errs, h.err)
				}
				continue
			case <-timer.C:
				expired = true
			case <-ctx.Done():
				expired = true
			}
		}
		select {
		case <-h.done:
			if h.err != nil {
				errs = append(errs, h.err)
			}
		default:
			stuck = append(stuck, h.component.Name())
		}
	}

	elapsed := time.Since(begin)
	s.metrics.ObserveShutdown(elapsed, len(stuck))
	span.SetAttributes(
		attribute.Int("components", len(handles)),
		attribute.Int("stuck", len(stuck)),
	)
	if len(stuck) > 0 {
		err := fmt.Errorf("%w: %s", ErrShutdownTimeout, strings.Join(stuck, ", "))
		s.logger.ErrorContext(ctx, "supervisor stop timed out", "error", err, "grace_period", s.grace.String())
		span.SetStatus(codes.Error, err.Error())
		errs = append(errs, err)
	}
	err := errors.Join(errs...)

	s.mx.Lock()
	s.state = StateStopped
	s.stopErr = err
	s.mx.Unlock()
	s.markIdle()
	close(s.stopped)

	s.logger.InfoContext(ctx, "supervisor stopped", "elapsed", elapsed.String(), "stuck", len(stuck))
	return err
}

// Done is closed once every launched component has returned, or the
// supervisor has been stopped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.idle
}

func (s *Supervisor) markIdle() {
	s.idleOnce.Do(func() { close(s.idle) })
}

func (s *Supervisor) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Len returns the number of registered components.
func (s *Supervisor) Len() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.components)
}

// Running returns the number of component goroutines which have not
// returned yet.
func (s *Supervisor) Running() int {
	return int(s.running.Load())
}

// Stats returns counters of launched components in registration order.
func (s *Supervisor) Stats() []ComponentStats {
	s.mx.Lock()
	handles := s.handles
	s.mx.Unlock()

	stats := make([]ComponentStats, 0, len(handles))
	for _, h := range handles {
		stats = append(stats, ComponentStats{
			Name:     h.emitter.name,
			Lines:    h.emitter.lines.Load(),
			Failures: h.emitter.failures.Load(),
		})
	}
	return stats
}

// emitter forwards lines of a single component to the shared sink.
type emitter struct {
	supervisor *Supervisor
	name       string
	lines      atomic.Int64
	failures   atomic.Int64
}

func (e *emitter) Emit(ctx context.Context, line string) {
	s := e.supervisor
	if s.muted.Load() {
		return
	}
	select {
	case s.output <- struct{}{}:
	case <-s.ctx.Done():
		return
	}
	if s.muted.Load() {
		<-s.output
		return
	}
	s.writer.Store(&e.name)
	err := s.sink.WriteLine(line)
	s.writer.Store(nil)
	<-s.output

	if err != nil {
		e.failures.Add(1)
		s.metrics.IncWriteFailures(e.name)
		s.logger.WarnContext(ctx, "writing status line has failed", "error", err)
		return
	}
	e.lines.Add(1)
	s.metrics.IncLines(e.name)
}
