package audio

import "io"

// nullBackend stands in when the host has no audio capability. Its players
// finish as soon as they start, so narration runs to completion silently.
type nullBackend struct {
	sampleRate int
}

// NewNullBackend returns a Backend that discards everything.
func NewNullBackend(sampleRate int) Backend {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return &nullBackend{sampleRate: sampleRate}
}

func (b *nullBackend) NewPlayer(r io.Reader) (BackendPlayer, error) {
	return nullPlayer{}, nil
}

func (b *nullBackend) Suspend() error  { return nil }
func (b *nullBackend) Resume() error   { return nil }
func (b *nullBackend) SampleRate() int { return b.sampleRate }
func (b *nullBackend) Close() error    { return nil }

type nullPlayer struct{}

func (nullPlayer) Play()           {}
func (nullPlayer) Pause()          {}
func (nullPlayer) IsPlaying() bool { return false }
func (nullPlayer) Err() error      { return nil }
func (nullPlayer) Close() error    { return nil }
