package radar

import (
	"context"
	"fmt"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/periodic"
)

const receiverLine = "Receiving signals."

// Receiver waits once before listening, then reports once per interval.
// The initial delay stands for the wave's travel time, but it is cosmetic:
// nothing ties it to what any transmitter does.
type Receiver struct {
	name     string
	delay    time.Duration
	interval time.Duration
	limit    int
}

func NewReceiver(name string, delay, interval time.Duration, limit int) (*Receiver, error) {
	if delay < 0 {
		return nil, fmt.Errorf("initial delay must not be negative: got %s", delay)
	}
	if err := validInterval(interval); err != nil {
		return nil, err
	}
	return &Receiver{
		name:     name,
		delay:    delay,
		interval: interval,
		limit:    limit,
	}, nil
}

func (r *Receiver) Name() string { return r.name }

func (r *Receiver) InitialDelay() time.Duration { return r.delay }

func (r *Receiver) Run(ctx context.Context, out model.Emitter) error {
	if periodic.Sleep(ctx, r.delay) != nil {
		return nil
	}
	return periodic.Run(ctx, r.interval, r.limit, func(ctx context.Context) {
		out.Emit(ctx, receiverLine)
	})
}
