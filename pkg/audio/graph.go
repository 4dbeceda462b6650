package audio

import (
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// GainStage is the single gain node every clip passes through. It is read
// by the PCM encoders on the audio thread and written by SetVolume, so the
// linear factor lives in an atomic.
type GainStage struct {
	bits atomic.Uint64
	db   atomic.Uint64
}

func newGainStage(db float64) *GainStage {
	g := &GainStage{}
	g.SetDB(db)
	return g
}

// SetDB sets the gain in dB relative to the calibrated maximum.
func (g *GainStage) SetDB(db float64) {
	g.db.Store(math.Float64bits(db))
	g.bits.Store(math.Float64bits(math.Pow(10, db/20)))
}

// DB returns the current gain in dB.
func (g *GainStage) DB() float64 {
	return math.Float64frombits(g.db.Load())
}

// Factor returns the current linear amplitude factor.
func (g *GainStage) Factor() float64 {
	return math.Float64frombits(g.bits.Load())
}

// BackendOpener opens the hardware pipeline on first use.
type BackendOpener func() (Backend, error)

// OutputGraph is the process-wide audio output: one backend feeding the
// device and one gain stage shared by every clip. The backend is opened
// lazily on the first call that needs it.
type OutputGraph struct {
	open BackendOpener
	gain *GainStage

	once    sync.Once
	backend Backend

	mu        sync.Mutex
	suspended bool
	attached  int
}

// NewOutputGraph creates a graph that opens its backend with open. The
// gain starts at DefaultVolume.
func NewOutputGraph(open BackendOpener) *OutputGraph {
	return &OutputGraph{
		open: open,
		gain: newGainStage(GainForVolume(DefaultVolume)),
	}
}

// NewOutputGraphWithBackend creates a graph around an already open backend.
func NewOutputGraphWithBackend(b Backend) *OutputGraph {
	return NewOutputGraph(func() (Backend, error) { return b, nil })
}

// ensure opens the backend exactly once. A failed open degrades to the
// silent backend so narration keeps its state machine running.
func (g *OutputGraph) ensure() Backend {
	b, _ := g.ensureOpened()
	return b
}

// ensureOpened is ensure that also reports whether this call opened the
// backend, in which case the current suspension state is already applied.
func (g *OutputGraph) ensureOpened() (Backend, bool) {
	opened := false
	g.once.Do(func() {
		opened = true
		b, err := g.open()
		if err != nil || b == nil {
			log.Warn("Audio output unavailable, narration will be silent", "error", err)
			b = NewNullBackend(SampleRate)
		}

		g.mu.Lock()
		suspended := g.suspended
		g.mu.Unlock()
		if suspended {
			if err := b.Suspend(); err != nil {
				log.Warn("Failed to suspend new audio backend", "error", err)
			}
		}

		g.backend = b
		log.Debug("Audio output graph initialized", "sample_rate", b.SampleRate())
	})
	if g.backend == nil {
		return NewNullBackend(SampleRate), false
	}
	return g.backend, opened
}

// SampleRate is the rate clips must be resampled to.
func (g *OutputGraph) SampleRate() int {
	return g.ensure().SampleRate()
}

// SetVolume updates the shared gain. It applies to clips already playing.
func (g *OutputGraph) SetVolume(v Volume) {
	db := GainForVolume(v)
	g.gain.SetDB(db)
	log.Debug("Output gain updated", "volume", v, "gain_db", db)
}

// Gain returns the shared gain stage.
func (g *OutputGraph) Gain() *GainStage {
	return g.gain
}

// Suspend halts all output. Attached clips keep their position.
func (g *OutputGraph) Suspend() error {
	g.mu.Lock()
	if g.suspended {
		g.mu.Unlock()
		return nil
	}
	g.suspended = true
	g.mu.Unlock()

	b, opened := g.ensureOpened()
	if opened {
		return nil
	}
	return b.Suspend()
}

// Resume restarts output after Suspend.
func (g *OutputGraph) Resume() error {
	g.mu.Lock()
	if !g.suspended {
		g.mu.Unlock()
		return nil
	}
	g.suspended = false
	g.mu.Unlock()

	b, opened := g.ensureOpened()
	if opened {
		return nil
	}
	return b.Resume()
}

// Suspended reports whether output is halted.
func (g *OutputGraph) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspended
}

// Attached returns the number of streams currently attached.
func (g *OutputGraph) Attached() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attached
}

// attach connects a PCM stream to the backend. The returned detach closes
// the backend player and may be called more than once.
func (g *OutputGraph) attach(r io.Reader) (BackendPlayer, func() error, error) {
	player, err := g.ensure().NewPlayer(r)
	if err != nil {
		return nil, nil, err
	}

	g.mu.Lock()
	g.attached++
	g.mu.Unlock()

	var once sync.Once
	detach := func() error {
		var err error
		once.Do(func() {
			err = player.Close()
			g.mu.Lock()
			g.attached--
			g.mu.Unlock()
		})
		return err
	}
	return player, detach, nil
}

// Close releases the backend if it was opened.
func (g *OutputGraph) Close() error {
	// Prevent a later ensure from opening a backend nobody will close.
	g.once.Do(func() {})
	if g.backend == nil {
		return nil
	}
	return g.backend.Close()
}
