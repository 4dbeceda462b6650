// Package settings holds the audio settings shared by the whole
// screen-reader engine: enabled, paused, volume, rate and the controls lock,
// plus the headphone-presence signal that gates them.
package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Output is the part of the audio output graph the settings drive.
type Output interface {
	SetVolume(v audio.Volume)
	Suspend() error
	Resume() error
}

// State is a snapshot of the audio settings.
type State struct {
	Enabled        bool
	Paused         bool
	Volume         audio.Volume
	Rate           audio.Rate
	ControlsLocked bool
	DevicePresent  bool
}

func (s State) String() string {
	return fmt.Sprintf("State{Enabled: %v, Paused: %v, Volume: %s, Rate: %s, Locked: %v, Device: %v}",
		s.Enabled, s.Paused, s.Volume, s.Rate, s.ControlsLocked, s.DevicePresent)
}

// Options are the defaults a voter session starts from and returns to on
// Reset.
type Options struct {
	DefaultEnabled bool
	DefaultVolume  audio.Volume
	DefaultRate    audio.Rate
	ControlsLocked bool
	// DevicePresent is the headphone state before the first signal arrives.
	DevicePresent bool
}

// DefaultOptions returns enabled audio at the default volume and rate with
// headphones assumed present.
func DefaultOptions() Options {
	return Options{
		DefaultEnabled: true,
		DefaultVolume:  audio.DefaultVolume,
		DefaultRate:    audio.DefaultRate,
		DevicePresent:  true,
	}
}

// Listener is called after every change with the previous and new state.
// It runs outside the controls' lock and may read the controls.
type Listener func(prev, next State)

// Controls is the audio settings context. Every mutator except
// SetControlsLocked is a no-op while the controls are locked.
type Controls struct {
	output Output
	opts   Options

	mu    sync.Mutex
	state State
	// enabledOnReturn is restored when the device comes back.
	enabledOnReturn bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New creates the settings context and brings output in line with it.
func New(output Output, opts Options) *Controls {
	c := &Controls{
		output:          output,
		opts:            opts,
		enabledOnReturn: opts.DefaultEnabled,
		listeners:       make(map[int]Listener),
	}

	enabled := opts.DefaultEnabled && opts.DevicePresent
	c.state = State{
		Enabled:        enabled,
		Paused:         !enabled,
		Volume:         opts.DefaultVolume,
		Rate:           opts.DefaultRate,
		ControlsLocked: opts.ControlsLocked,
		DevicePresent:  opts.DevicePresent,
	}

	output.SetVolume(c.state.Volume)
	if c.state.Paused {
		if err := output.Suspend(); err != nil {
			log.Warn("Failed to suspend audio output", "error", err)
		}
	}
	return c
}

// State returns a snapshot of the settings.
func (c *Controls) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controls) Enabled() bool { return c.State().Enabled }

func (c *Controls) Paused() bool { return c.State().Paused }

// Volume returns the current volume.
func (c *Controls) Volume() audio.Volume { return c.State().Volume }

// Rate returns the current rate.
func (c *Controls) Rate() audio.Rate { return c.State().Rate }

func (c *Controls) ControlsLocked() bool { return c.State().ControlsLocked }

// Subscribe registers fn for change notifications. The returned function
// unregisters it.
func (c *Controls) Subscribe(fn Listener) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// update applies fn to the state under the lock, pushes the difference to
// the output and notifies listeners. When honorLock is set a locked context
// rejects the change.
func (c *Controls) update(op string, honorLock bool, fn func(s *State)) {
	c.mu.Lock()
	prev := c.state
	if honorLock && prev.ControlsLocked {
		c.mu.Unlock()
		log.Debug("Audio controls locked, ignoring change", "op", op)
		return
	}

	next := prev
	fn(&next)
	if !next.Enabled {
		next.Paused = true
	}
	c.state = next
	c.sync(prev, next)
	c.mu.Unlock()

	if prev == next {
		return
	}
	log.Debug("Audio settings changed", "op", op, "state", next.String())
	c.notify(prev, next)
}

// sync pushes volume and pause transitions to the output. Called with c.mu
// held so suspend and resume reach the graph in order.
func (c *Controls) sync(prev, next State) {
	if prev.Volume != next.Volume {
		c.output.SetVolume(next.Volume)
	}
	switch {
	case !prev.Paused && next.Paused:
		if err := c.output.Suspend(); err != nil {
			log.Warn("Failed to suspend audio output", "error", err)
		}
	case prev.Paused && !next.Paused:
		if err := c.output.Resume(); err != nil {
			log.Warn("Failed to resume audio output", "error", err)
		}
	}
}

func (c *Controls) notify(prev, next State) {
	c.listenersMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
}

// SetEnabled turns audio on or off. It does nothing while the headphones
// are unplugged. Enabling unpauses; disabling pauses.
func (c *Controls) SetEnabled(enabled bool) {
	c.update("SetEnabled", true, func(s *State) {
		if !s.DevicePresent {
			return
		}
		s.Enabled = enabled
		s.Paused = !enabled
	})
}

// ToggleEnabled flips SetEnabled.
func (c *Controls) ToggleEnabled() {
	c.update("ToggleEnabled", true, func(s *State) {
		if !s.DevicePresent {
			return
		}
		s.Enabled = !s.Enabled
		s.Paused = !s.Enabled
	})
}

// SetPaused suspends or resumes the output graph. Disabled audio stays
// paused.
func (c *Controls) SetPaused(paused bool) {
	c.update("SetPaused", true, func(s *State) {
		s.Paused = paused
	})
}

// TogglePaused flips SetPaused.
func (c *Controls) TogglePaused() {
	c.update("TogglePaused", true, func(s *State) {
		s.Paused = !s.Paused
	})
}

// SetVolume sets the volume; the shared gain follows immediately.
func (c *Controls) SetVolume(v audio.Volume) {
	// Validate before taking the lock; off-scale levels panic.
	audio.GainForVolume(v)
	c.update("SetVolume", true, func(s *State) {
		s.Volume = v
	})
}

// IncreaseVolume steps the volume up, stopping at MAXIMUM.
func (c *Controls) IncreaseVolume() {
	c.update("IncreaseVolume", true, func(s *State) {
		s.Volume = audio.IncreasedVolume(s.Volume)
	})
}

// DecreaseVolume steps the volume down, stopping at MINIMUM.
func (c *Controls) DecreaseVolume() {
	c.update("DecreaseVolume", true, func(s *State) {
		s.Volume = audio.DecreasedVolume(s.Volume)
	})
}

// SetRate sets the rate used for clips started from now on.
func (c *Controls) SetRate(r audio.Rate) {
	// Validate before taking the lock; off-scale levels panic.
	r.Multiplier()
	c.update("SetRate", true, func(s *State) {
		s.Rate = r
	})
}

// IncreaseRate steps the rate up, stopping at MAXIMUM.
func (c *Controls) IncreaseRate() {
	c.update("IncreaseRate", true, func(s *State) {
		s.Rate = audio.IncreasedRate(s.Rate)
	})
}

// DecreaseRate steps the rate down, stopping at MINIMUM.
func (c *Controls) DecreaseRate() {
	c.update("DecreaseRate", true, func(s *State) {
		s.Rate = audio.DecreasedRate(s.Rate)
	})
}

// Reset returns volume, rate, enabled and paused to the session defaults.
// The controls lock is left as it is.
func (c *Controls) Reset() {
	c.update("Reset", true, func(s *State) {
		s.Volume = c.opts.DefaultVolume
		s.Rate = c.opts.DefaultRate
		s.Enabled = c.opts.DefaultEnabled && s.DevicePresent
		s.Paused = !s.Enabled
		c.enabledOnReturn = c.opts.DefaultEnabled
	})
}

// SetControlsLocked locks or unlocks every other mutator.
func (c *Controls) SetControlsLocked(locked bool) {
	c.update("SetControlsLocked", false, func(s *State) {
		s.ControlsLocked = locked
	})
}

// SetDevicePresent reports the headphone state. Unplugging forces audio
// off; plugging back in restores the enabled value from before. The lock
// does not apply: the voter cannot override a missing device.
func (c *Controls) SetDevicePresent(present bool) {
	c.update("SetDevicePresent", false, func(s *State) {
		if s.DevicePresent == present {
			return
		}
		s.DevicePresent = present
		if !present {
			c.enabledOnReturn = s.Enabled
			s.Enabled = false
			s.Paused = true
			return
		}
		s.Enabled = c.enabledOnReturn
		s.Paused = !s.Enabled
	})
}

// TrackDevice applies every value from signal until it closes or ctx ends.
func (c *Controls) TrackDevice(ctx context.Context, signal <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case present, ok := <-signal:
			if !ok {
				return
			}
			c.SetDevicePresent(present)
		}
	}
}
