package model

import "context"

// Component is a unit of periodic work owned by a supervisor. Run blocks
// until ctx is cancelled or the component has no more work, and must
// return promptly once ctx is done.
type Component interface {
	Name() string
	Run(ctx context.Context, out Emitter) error
}

// Emitter receives the status lines a Component produces. Delivery
// failures are handled by the Emitter's owner, never by the component.
type Emitter interface {
	Emit(ctx context.Context, line string)
}

// EmitterFunc adapts an ordinary function to the Emitter interface.
type EmitterFunc func(ctx context.Context, line string)

func (f EmitterFunc) Emit(ctx context.Context, line string) {
	f(ctx, line)
}
