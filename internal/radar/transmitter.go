package radar

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/periodic"
)

// Transmitter announces its carrier frequency and wavelength once per
// interval. All derived values are computed at construction.
type Transmitter struct {
	name       string
	frequency  float64 // Hz
	wavelength float64 // m
	interval   time.Duration
	limit      int
	line       string
}

// NewTransmitter returns a transmitter on frequency hz. A positive limit
// bounds the number of status lines.
func NewTransmitter(name string, hz float64, interval time.Duration, limit int) (*Transmitter, error) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return nil, fmt.Errorf("%w: got %g Hz", ErrInvalidFrequency, hz)
	}
	if err := validInterval(interval); err != nil {
		return nil, err
	}
	wavelength := Wavelength(hz)
	return &Transmitter{
		name:       name,
		frequency:  hz,
		wavelength: wavelength,
		interval:   interval,
		limit:      limit,
		line: fmt.Sprintf("Transmitting at %.6g GHz with a wavelength of %.6g millimeters.",
			hz/1e9, wavelength*1e3),
	}, nil
}

func (t *Transmitter) Name() string { return t.name }

// Frequency in Hz.
func (t *Transmitter) Frequency() float64 { return t.frequency }

// Wavelength in meters.
func (t *Transmitter) Wavelength() float64 { return t.wavelength }

// StatusLine is the line emitted on every iteration.
func (t *Transmitter) StatusLine() string { return t.line }

func (t *Transmitter) Run(ctx context.Context, out model.Emitter) error {
	return periodic.Run(ctx, t.interval, t.limit, func(ctx context.Context) {
		out.Emit(ctx, t.line)
	})
}
