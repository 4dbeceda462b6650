//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// OtoBackend drives the host audio hardware through a single oto.Context.
// oto permits one context per process, which is why the output graph owns
// at most one backend.
type OtoBackend struct {
	mu         sync.Mutex
	context    *oto.Context
	sampleRate int
}

// NewOtoBackend opens the hardware pipeline, retrying where the platform's
// audio daemon is known to be slow to come up.
func NewOtoBackend(platform *PlatformInfo, opts BackendOptions) (*OtoBackend, error) {
	maxRetries := 1
	retryDelay := 100 * time.Millisecond

	switch platform.OS {
	case PlatformDarwin:
		// CoreAudio can race during initialization
		maxRetries = 3
		retryDelay = 200 * time.Millisecond
	case PlatformLinux:
		if platform.AudioSubsystem == AudioSubsystemPulseAudio {
			maxRetries = 2
		}
	case PlatformWindows:
		maxRetries = 2
		retryDelay = 150 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			log.Debug("Retrying audio backend initialization", "attempt", i+1, "of", maxRetries)
			time.Sleep(retryDelay)
		}

		b, err := openOto(platform, opts)
		if err != nil {
			lastErr = err
			log.Debug("Audio backend initialization failed", "attempt", i+1, "error", err)
			continue
		}

		log.Info("Hardware audio backend ready", "attempt", i+1, "platform", platform.OS)
		return b, nil
	}

	return nil, fmt.Errorf("%w: failed after %d attempts: %v", ErrBackendUnavailable, maxRetries, lastErr)
}

func openOto(platform *PlatformInfo, opts BackendOptions) (*OtoBackend, error) {
	bufferMillis := opts.BufferMillis
	if bufferMillis <= 0 {
		bufferMillis = platform.BufferMillis()
	}

	options := &oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferMillis) * time.Millisecond,
	}

	log.Debug("Initializing hardware audio backend",
		"platform", platform.OS,
		"audio_subsystem", platform.AudioSubsystem,
		"sample_rate", options.SampleRate,
		"buffer_size", options.BufferSize)

	context, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}

	readyTimeout := 5 * time.Second
	if platform.OS == PlatformDarwin {
		readyTimeout = 10 * time.Second
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return nil, fmt.Errorf("%w: context not ready after %v", ErrBackendNotReady, readyTimeout)
	}

	return &OtoBackend{context: context, sampleRate: opts.SampleRate}, nil
}

// NewPlayer attaches r to the hardware mixer.
func (b *OtoBackend) NewPlayer(r io.Reader) (BackendPlayer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context == nil {
		return nil, ErrBackendNotReady
	}
	return b.context.NewPlayer(r), nil
}

// Suspend halts the hardware pipeline. Attached players keep their position.
func (b *OtoBackend) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context == nil {
		return ErrBackendNotReady
	}
	return b.context.Suspend()
}

// Resume restarts the hardware pipeline.
func (b *OtoBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context == nil {
		return ErrBackendNotReady
	}
	return b.context.Resume()
}

func (b *OtoBackend) SampleRate() int {
	return b.sampleRate
}

// Close drops the context. oto v3 has no Context.Close; the pipeline is
// released with the process.
func (b *OtoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context != nil {
		_ = b.context.Suspend()
		b.context = nil
	}
	return nil
}
