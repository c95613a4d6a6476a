// Package radar contains the simulated radar components: a Transmitter
// announcing its carrier and a Receiver listening for echoes. Neither models
// a signal; they print status lines on a fixed cadence.
package radar

import (
	"errors"
	"fmt"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/periodic"
)

const (
	// SpeedOfLight in m/s, rounded the way the status lines expect.
	SpeedOfLight = 3.0e8
	// DefaultFrequency is the 2.45 GHz ISM band carrier, in Hz.
	DefaultFrequency = 2.45e9
)

var (
	ErrInvalidFrequency = errors.New("frequency must be positive and finite")
	ErrUnknownKind      = errors.New("unknown component kind")
)

// Wavelength returns the wavelength in meters of a carrier of frequency hz.
func Wavelength(hz float64) float64 {
	return SpeedOfLight / hz
}

// FromConfig builds the component described by c. The receiver's initial
// delay defaults to one tick.
func FromConfig(c model.ComponentConfig, t model.Timing) (model.Component, error) {
	name := c.Name
	if name == "" {
		name = c.Kind
	}

	switch c.Kind {
	case model.KindTransmitter:
		hz := DefaultFrequency
		if c.FrequencyGHz != nil {
			hz = *c.FrequencyGHz * 1e9
		}
		return NewTransmitter(name, hz, t.Tick, t.Iterations)
	case model.KindReceiver:
		delay := t.Tick
		if c.InitialDelay != "" {
			d, err := time.ParseDuration(c.InitialDelay)
			if err != nil {
				return nil, fmt.Errorf("parsing initial_delay of %s: %w", name, err)
			}
			delay = d
		}
		return NewReceiver(name, delay, t.Tick, t.Iterations)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
}

func validInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: got %s", periodic.ErrInvalidInterval, interval)
	}
	return nil
}
