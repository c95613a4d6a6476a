package service

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/CZERTAINLY/radarsim/internal/model"
)

// WriteSink writes newline terminated lines to an io.Writer. Each line is
// passed to the writer in a single Write call.
type WriteSink struct {
	mx     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewWriteSink(w io.Writer) *WriteSink {
	if w == nil {
		w = os.Stdout
	}
	return &WriteSink{w: w}
}

func (s *WriteSink) WriteLine(line string) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	if !strings.HasSuffix(line, "\n") {
		buf = append(buf, '\n')
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	if s.w == nil {
		return ErrSinkClosed
	}
	_, err := s.w.Write(buf)
	return err
}

// Close closes the underlying file, if the sink owns one. Standard streams
// are never closed.
func (s *WriteSink) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.w == nil {
		return ErrSinkClosed
	}
	s.w = nil
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenSink opens the output named by target: stdout, stderr, discard or a
// file path, which is created or appended to.
func OpenSink(target string) (model.SinkCloser, error) {
	switch target {
	case "", model.OutputStdout:
		return NewWriteSink(os.Stdout), nil
	case model.OutputStderr:
		return NewWriteSink(os.Stderr), nil
	case model.OutputDiscard:
		return NewWriteSink(io.Discard), nil
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", target, err)
	}
	return &WriteSink{w: f, closer: f}, nil
}
