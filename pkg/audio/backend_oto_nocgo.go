//go:build nocgo
// +build nocgo

package audio

import (
	"fmt"
	"io"
)

// OtoBackend stub for builds without CGO.
type OtoBackend struct{}

// NewOtoBackend always fails in nocgo builds.
func NewOtoBackend(platform *PlatformInfo, opts BackendOptions) (*OtoBackend, error) {
	return nil, fmt.Errorf("%w: audio not available in nocgo build", ErrBackendUnavailable)
}

func (b *OtoBackend) NewPlayer(r io.Reader) (BackendPlayer, error) {
	return nil, ErrBackendUnavailable
}

func (b *OtoBackend) Suspend() error { return ErrBackendUnavailable }

func (b *OtoBackend) Resume() error { return ErrBackendUnavailable }

func (b *OtoBackend) SampleRate() int { return SampleRate }

func (b *OtoBackend) Close() error { return nil }
