// Package relay drives the device's output relay.
//
// A Pulser switches a Relay on for a fixed time, optionally after a delay.
// Timers fire on their own goroutines, so a Pulser is safe to use from the
// serve loop and from its own callbacks at the same time.
package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

// ErrInvalidDuration is returned for a non-positive pulse length or a
// negative delay.
var ErrInvalidDuration = errors.New("relay: invalid duration")

// Relay is a two-state output.
type Relay interface {
	On()
	Off()
}

// LogRelay is a Relay with no hardware behind it. It records its state and
// logs every change.
type LogRelay struct {
	Name string

	mu sync.Mutex
	on bool
}

// On switches the relay on.
func (r *LogRelay) On() { r.set(true) }

// Off switches the relay off.
func (r *LogRelay) Off() { r.set(false) }

// IsOn reports the current state.
func (r *LogRelay) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

func (r *LogRelay) set(on bool) {
	r.mu.Lock()
	changed := r.on != on
	r.on = on
	r.mu.Unlock()

	if changed {
		logging.Info("Relay state changed", zap.String("relay", r.Name), zap.Bool("on", on))
	}
}

// Pulser turns a relay on and schedules it off again.
type Pulser struct {
	relay Relay

	mu      sync.Mutex
	pending *time.Timer // delayed start
	ending  *time.Timer // switches the relay off
	pulses  int
}

// NewPulser returns a Pulser driving r.
func NewPulser(r Relay) *Pulser {
	return &Pulser{relay: r}
}

// Pulse switches the relay on now and off after length. A pulse that is
// already running is extended to end length from now.
func (p *Pulser) Pulse(length time.Duration) error {
	if length <= 0 {
		return ErrInvalidDuration
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked(length)
	return nil
}

// PulseAfter schedules a pulse of the given length to start after delay.
// Scheduling replaces any pulse that has not started yet.
func (p *Pulser) PulseAfter(delay, length time.Duration) error {
	if delay < 0 || length <= 0 {
		return ErrInvalidDuration
	}
	if delay == 0 {
		return p.Pulse(length)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.pending.Stop()
	}
	logging.Debug("Relay pulse scheduled", zap.Duration("delay", delay), zap.Duration("length", length))

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// A newer schedule or Stop replaced this timer.
		if p.pending != t {
			return
		}
		p.pending = nil
		p.startLocked(length)
	})
	p.pending = t
	return nil
}

func (p *Pulser) startLocked(length time.Duration) {
	if p.ending != nil {
		p.ending.Stop()
	}
	p.pulses++
	p.relay.On()

	var t *time.Timer
	t = time.AfterFunc(length, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.ending != t {
			return
		}
		p.ending = nil
		p.relay.Off()
	})
	p.ending = t
}

// Pulses returns the number of pulses started so far.
func (p *Pulser) Pulses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses
}

// Stop cancels pending work and switches the relay off.
func (p *Pulser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	if p.ending != nil {
		p.ending.Stop()
		p.ending = nil
	}
	p.relay.Off()
}
