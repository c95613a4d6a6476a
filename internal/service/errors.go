package service

import "errors"

var (
	ErrRegistrationClosed = errors.New("registration closed: supervisor already started")
	ErrAlreadyStarted     = errors.New("supervisor already started")
	ErrStopped            = errors.New("supervisor stopped")
	ErrNilComponent       = errors.New("component is nil")
	ErrShutdownTimeout    = errors.New("components did not stop within grace period")
	ErrComponentPanic     = errors.New("component panicked")
	ErrSinkClosed         = errors.New("sink closed")
)

// State is a lifecycle phase of a Supervisor.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
