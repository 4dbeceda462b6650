package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Output format shared by every backend. Clips are decoded and resampled to
// this format before they reach the hardware.
const (
	// SampleRate is the output sample rate in Hz.
	SampleRate = 44100
	// Channels is the number of output channels (stereo).
	Channels = 2
	// BitDepth is the bit depth per sample.
	BitDepth = 16
	// BytesPerFrame is the size of one interleaved stereo frame.
	BytesPerFrame = Channels * BitDepth / 8
)

// Backend is the hardware audio pipeline behind the output graph. There is
// at most one per process.
type Backend interface {
	// NewPlayer attaches a new PCM stream to the pipeline.
	NewPlayer(r io.Reader) (BackendPlayer, error)

	// Suspend halts all output without detaching players.
	Suspend() error

	// Resume restarts output after Suspend.
	Resume() error

	// SampleRate returns the sample rate the pipeline was opened with.
	SampleRate() int

	// Close releases the pipeline.
	Close() error
}

// BackendPlayer is one stream attached to a Backend. The method set matches
// oto.Player.
type BackendPlayer interface {
	Play()
	Pause()
	IsPlaying() bool
	Err() error
	Close() error
}

// BackendType selects how the output pipeline is opened.
type BackendType string

const (
	// BackendAuto opens the hardware pipeline when an output device is
	// present and falls back to the silent backend otherwise.
	BackendAuto BackendType = "auto"
	// BackendOto always opens the hardware pipeline.
	BackendOto BackendType = "oto"
	// BackendNull discards all audio.
	BackendNull BackendType = "null"
)

// ParseBackendType validates a backend name from configuration.
func ParseBackendType(s string) (BackendType, error) {
	switch t := BackendType(s); t {
	case BackendAuto, BackendOto, BackendNull:
		return t, nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// BackendOptions tune the hardware pipeline.
type BackendOptions struct {
	SampleRate int
	// BufferMillis overrides the platform buffer size when positive.
	BufferMillis int
}

// DefaultBackendOptions returns the options used when none are configured.
func DefaultBackendOptions() BackendOptions {
	return BackendOptions{SampleRate: SampleRate}
}

// OpenBackend creates the backend of the requested type.
func OpenBackend(kind BackendType, opts BackendOptions) (Backend, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = SampleRate
	}

	switch kind {
	case BackendOto:
		log.Debug("Opening hardware audio backend")
		return NewOtoBackend(DetectPlatform(), opts)

	case BackendNull:
		log.Debug("Opening silent audio backend")
		return NewNullBackend(opts.SampleRate), nil

	case BackendAuto, "":
		platform := DetectPlatform()
		log.Debug("Platform detection complete", "info", platform.String())

		if platform.ShouldUseSilentAudio() || os.Getenv("NARRATOR_SILENT_AUDIO") == "true" {
			reason := "requested"
			switch {
			case platform.IsCI:
				reason = "CI environment"
			case !platform.HasAudioDevice:
				reason = "no audio devices"
			case platform.AudioSubsystem == AudioSubsystemNone:
				reason = "no audio subsystem"
			}
			log.Info("Using silent audio backend", "reason", reason)
			return NewNullBackend(opts.SampleRate), nil
		}

		backend, err := NewOtoBackend(platform, opts)
		if err != nil {
			log.Warn("Failed to open hardware audio backend, falling back to silent output",
				"error", err,
				"platform", platform.OS)
			return NewNullBackend(opts.SampleRate), nil
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
