package audio

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// MockBackend is an in-memory Backend for tests. Players never finish on
// their own: a test ends a clip with MockPlayer.Finish, and a finished
// player keeps reporting IsPlaying while the backend is suspended, the way
// a suspended hardware pipeline stops draining.
type MockBackend struct {
	mu        sync.Mutex
	players   []*MockPlayer
	suspended bool
	closed    bool

	// Test helpers
	PlayersCreated int
	PlayersClosed  int
	SuspendCount   int
	ResumeCount    int

	// NewPlayerErr, when set, is returned by NewPlayer.
	NewPlayerErr error

	// NewPlayerGate, when set, holds NewPlayer until it receives or closes.
	// NewPlayerEntered, when set, is signalled as NewPlayer starts waiting.
	NewPlayerGate    chan struct{}
	NewPlayerEntered chan struct{}
}

// NewMockBackend creates a running mock backend.
func NewMockBackend() *MockBackend {
	log.Debug("Creating mock audio backend")
	return &MockBackend{}
}

// NewPlayer records a new mock player reading from r.
func (m *MockBackend) NewPlayer(r io.Reader) (BackendPlayer, error) {
	m.mu.Lock()
	gate, entered := m.NewPlayerGate, m.NewPlayerEntered
	m.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.NewPlayerErr != nil {
		return nil, m.NewPlayerErr
	}
	if m.closed {
		return nil, ErrBackendNotReady
	}

	p := &MockPlayer{backend: m, reader: r}
	m.players = append(m.players, p)
	m.PlayersCreated++
	return p, nil
}

func (m *MockBackend) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
	m.SuspendCount++
	return nil
}

func (m *MockBackend) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = false
	m.ResumeCount++
	return nil
}

// Suspended reports whether output is currently halted.
func (m *MockBackend) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

func (m *MockBackend) SampleRate() int {
	return SampleRate
}

func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Players returns every player created so far, oldest first.
func (m *MockBackend) Players() []*MockPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockPlayer(nil), m.players...)
}

// Counts returns the created and closed player counts.
func (m *MockBackend) Counts() (created, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlayersCreated, m.PlayersClosed
}

// MockPlayer is a BackendPlayer created by MockBackend.
type MockPlayer struct {
	backend *MockBackend
	reader  io.Reader

	mu       sync.Mutex
	playing  bool
	finished bool
	closed   bool
	consumed int64
	err      error

	// Test helpers
	PlayCount  int
	PauseCount int
}

func (p *MockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.playing = true
	p.PlayCount++
}

func (p *MockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.PauseCount++
}

// IsPlaying reports false once the player was paused, closed, or finished
// while the backend is running.
func (p *MockPlayer) IsPlaying() bool {
	suspended := p.backend.Suspended()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.closed {
		return false
	}
	if p.finished && !suspended {
		p.playing = false
		return false
	}
	return true
}

// Finish drains the player's stream, as the hardware would at the end of a
// clip.
func (p *MockPlayer) Finish() {
	n, err := io.Copy(io.Discard, p.reader)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumed += n
	p.err = err
	p.finished = true
}

// Fail ends playback with err.
func (p *MockPlayer) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	p.finished = true
}

// Playing reports whether Play was called and playback has not ended.
func (p *MockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.closed
}

// Closed reports whether Close was called.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Consumed is the number of PCM bytes read by Finish.
func (p *MockPlayer) Consumed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consumed
}

func (p *MockPlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.playing = false
	p.mu.Unlock()

	p.backend.mu.Lock()
	p.backend.PlayersClosed++
	p.backend.mu.Unlock()
	return nil
}
