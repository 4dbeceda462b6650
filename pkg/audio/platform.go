package audio

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// Platform is the operating system the engine runs on.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// AudioSubsystem is the host audio stack oto will talk to.
type AudioSubsystem string

const (
	AudioSubsystemALSA       AudioSubsystem = "alsa"
	AudioSubsystemPulseAudio AudioSubsystem = "pulseaudio"
	AudioSubsystemCoreAudio  AudioSubsystem = "coreaudio"
	AudioSubsystemWASAPI     AudioSubsystem = "wasapi"
	AudioSubsystemNone       AudioSubsystem = "none"
)

// PlatformInfo describes the audio capabilities of the host.
type PlatformInfo struct {
	OS             Platform
	AudioSubsystem AudioSubsystem
	HasAudioDevice bool
	IsCI           bool
}

// ciVars are environment variables set by common CI runners.
var ciVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
}

// IsCI reports whether the process runs under a CI system, where no audio
// hardware should be assumed.
func IsCI() bool {
	for _, envVar := range ciVars {
		if val := os.Getenv(envVar); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", envVar)
			return true
		}
	}
	return false
}

// DetectPlatform probes the host for an audio subsystem and output devices.
func DetectPlatform() *PlatformInfo {
	info := &PlatformInfo{
		OS:   getPlatform(),
		IsCI: IsCI(),
	}

	switch info.OS {
	case PlatformLinux:
		info.AudioSubsystem = detectLinuxAudio()
		info.HasAudioDevice = checkLinuxAudioDevices()
	case PlatformDarwin:
		info.AudioSubsystem = AudioSubsystemCoreAudio
		info.HasAudioDevice = true
	case PlatformWindows:
		info.AudioSubsystem = AudioSubsystemWASAPI
		info.HasAudioDevice = true
	default:
		info.AudioSubsystem = AudioSubsystemNone
	}

	log.Debug("Platform detected",
		"os", info.OS,
		"audio", info.AudioSubsystem,
		"has_device", info.HasAudioDevice,
		"is_ci", info.IsCI)

	return info
}

func getPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

func detectLinuxAudio() AudioSubsystem {
	if _, err := exec.LookPath("pactl"); err == nil {
		if output, err := exec.Command("pactl", "info").Output(); err == nil &&
			strings.Contains(string(output), "Server Name") {
			return AudioSubsystemPulseAudio
		}
	}

	if _, err := os.Stat("/proc/asound"); err == nil {
		return AudioSubsystemALSA
	}

	return AudioSubsystemNone
}

// checkLinuxAudioDevices looks for ALSA playback nodes or registered sound
// cards. Voting machines run ALSA directly, so this is the common path.
func checkLinuxAudioDevices() bool {
	if entries, err := os.ReadDir("/dev/snd"); err == nil {
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), "pcm") && strings.HasSuffix(entry.Name(), "p") {
				return true
			}
		}
	}

	content, err := os.ReadFile("/proc/asound/cards")
	if err == nil && len(content) > 0 && !strings.Contains(string(content), "no soundcards") {
		return true
	}

	return false
}

// ShouldUseSilentAudio reports whether opening the hardware pipeline is
// pointless on this host.
func (p *PlatformInfo) ShouldUseSilentAudio() bool {
	return p.IsCI || p.AudioSubsystem == AudioSubsystemNone || !p.HasAudioDevice
}

// BufferMillis returns the recommended hardware buffer size.
func (p *PlatformInfo) BufferMillis() int {
	switch p.OS {
	case PlatformDarwin:
		return 100
	case PlatformWindows:
		return 80
	case PlatformLinux:
		if p.AudioSubsystem == AudioSubsystemPulseAudio {
			return 60
		}
		return 50
	default:
		return 50
	}
}

func (p *PlatformInfo) String() string {
	return fmt.Sprintf("Platform{OS: %s, Audio: %s, HasDevice: %v, IsCI: %v}",
		p.OS, p.AudioSubsystem, p.HasAudioDevice, p.IsCI)
}
