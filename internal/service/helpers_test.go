package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/CZERTAINLY/radarsim/internal/model"
)

// recordSink keeps every line it was given.
type recordSink struct {
	mx    sync.Mutex
	lines []string
	fail  func(n int) bool
	calls int
}

func (s *recordSink) WriteLine(line string) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.calls++
	if s.fail != nil && s.fail(s.calls) {
		return errors.New("disk full")
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *recordSink) Lines() []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *recordSink) Count(line string) int {
	var n int
	for _, l := range s.Lines() {
		if l == line {
			n++
		}
	}
	return n
}

// blocking runs until its context is cancelled.
type blocking struct {
	name    string
	started *atomic.Int32
}

func (b blocking) Name() string { return b.name }

func (b blocking) Run(ctx context.Context, _ model.Emitter) error {
	if b.started != nil {
		b.started.Add(1)
	}
	<-ctx.Done()
	return ctx.Err()
}

// stubborn ignores cancellation until release is closed.
type stubborn struct {
	name    string
	release chan struct{}
}

func (s stubborn) Name() string { return s.name }

func (s stubborn) Run(_ context.Context, _ model.Emitter) error {
	<-s.release
	return nil
}

type panicking struct{}

func (panicking) Name() string { return "panicking" }

func (panicking) Run(context.Context, model.Emitter) error {
	panic("antenna fell off")
}

// emitting writes count lines and returns.
type emitting struct {
	name  string
	count int
}

func (e emitting) Name() string { return e.name }

func (e emitting) Run(ctx context.Context, out model.Emitter) error {
	for range e.count {
		out.Emit(ctx, e.name)
	}
	return nil
}

// stallSink blocks every write until release is closed.
type stallSink struct {
	release chan struct{}
	lines   atomic.Int32
}

func (s *stallSink) WriteLine(string) error {
	<-s.release
	s.lines.Add(1)
	return nil
}
