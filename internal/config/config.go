// Package config holds the narrator configuration: defaults, validation
// and loading from viper.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/narration"
	"github.com/dgnsrekt/narrator/pkg/settings"
)

// Config contains all narrator configuration options.
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Settings SettingsConfig `yaml:"settings"`
	Clips    ClipsConfig    `yaml:"clips"`
	Device   DeviceConfig   `yaml:"device"`
	Language LanguageConfig `yaml:"language"`
}

// AudioConfig selects and tunes the hardware pipeline.
type AudioConfig struct {
	Backend      string `yaml:"backend" env:"NARRATOR_AUDIO_BACKEND" envDefault:"auto"`
	SampleRate   int    `yaml:"sample_rate" env:"NARRATOR_AUDIO_SAMPLE_RATE" envDefault:"44100"`
	BufferMillis int    `yaml:"buffer_ms" env:"NARRATOR_AUDIO_BUFFER_MS" envDefault:"0"`
}

// SettingsConfig is what a voter session starts from and returns to.
type SettingsConfig struct {
	Enabled        bool   `yaml:"enabled" env:"NARRATOR_SETTINGS_ENABLED" envDefault:"true"`
	Volume         string `yaml:"volume" env:"NARRATOR_SETTINGS_VOLUME" envDefault:"50"`
	Rate           string `yaml:"rate" env:"NARRATOR_SETTINGS_RATE" envDefault:"100"`
	ControlsLocked bool   `yaml:"controls_locked" env:"NARRATOR_SETTINGS_CONTROLS_LOCKED" envDefault:"false"`
	Announce       bool   `yaml:"announce_changes" env:"NARRATOR_SETTINGS_ANNOUNCE_CHANGES" envDefault:"true"`
}

// ClipsConfig locates the audio-id catalog and the clip payloads.
type ClipsConfig struct {
	Dir               string        `yaml:"dir" env:"NARRATOR_CLIPS_DIR"`
	Catalog           string        `yaml:"catalog" env:"NARRATOR_CLIPS_CATALOG"`
	BackendURL        string        `yaml:"backend_url" env:"NARRATOR_CLIPS_BACKEND_URL"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"NARRATOR_CLIPS_REQUESTS_PER_SECOND" envDefault:"10"`
	Timeout           time.Duration `yaml:"timeout" env:"NARRATOR_CLIPS_TIMEOUT" envDefault:"10s"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig sizes the two-level clip cache.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled" env:"NARRATOR_CACHE_ENABLED" envDefault:"true"`
	Dir         string `yaml:"dir" env:"NARRATOR_CACHE_DIR"`
	MemoryMB    int    `yaml:"memory_mb" env:"NARRATOR_CACHE_MEMORY_MB" envDefault:"32"`
	DiskMB      int    `yaml:"disk_mb" env:"NARRATOR_CACHE_DISK_MB" envDefault:"256"`
	Compression int    `yaml:"compression" env:"NARRATOR_CACHE_COMPRESSION" envDefault:"3"`
}

// DeviceConfig chooses where headphone presence comes from.
type DeviceConfig struct {
	// JackPath is a file whose content ("1"/"0") or existence reports
	// headphone presence. Empty means probe the platform once.
	JackPath      string        `yaml:"jack_path" env:"NARRATOR_DEVICE_JACK_PATH"`
	PollInterval  time.Duration `yaml:"poll_interval" env:"NARRATOR_DEVICE_POLL_INTERVAL" envDefault:"0s"`
	AssumePresent bool          `yaml:"assume_present" env:"NARRATOR_DEVICE_ASSUME_PRESENT" envDefault:"false"`
}

// LanguageConfig sets the session language.
type LanguageConfig struct {
	Default   string   `yaml:"default" env:"NARRATOR_LANGUAGE_DEFAULT" envDefault:"en"`
	Available []string `yaml:"available" env:"NARRATOR_LANGUAGE_AVAILABLE" envSeparator:","`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Audio:    DefaultAudioConfig(),
		Settings: DefaultSettingsConfig(),
		Clips:    DefaultClipsConfig(),
		Device:   DeviceConfig{},
		Language: LanguageConfig{Default: "en", Available: []string{"en", "es-US"}},
	}
}

// DefaultAudioConfig returns the default backend selection.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Backend:    string(audio.BackendAuto),
		SampleRate: audio.SampleRate,
	}
}

// DefaultSettingsConfig mirrors settings.DefaultOptions.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Enabled:  true,
		Volume:   "50",
		Rate:     "100",
		Announce: true,
	}
}

// DefaultClipsConfig returns clip source defaults. No source is set.
func DefaultClipsConfig() ClipsConfig {
	return ClipsConfig{
		RequestsPerSecond: 10,
		Timeout:           10 * time.Second,
		Cache: CacheConfig{
			Enabled:     true,
			MemoryMB:    32,
			DiskMB:      256,
			Compression: 3,
		},
	}
}

var validSampleRates = []int{22050, 44100, 48000}

// Validate checks if the configuration is valid and normalizes names and
// language tags in place.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings config: %w", err)
	}
	if err := c.Clips.Validate(); err != nil {
		return fmt.Errorf("clips config: %w", err)
	}
	if c.Device.PollInterval < 0 {
		return fmt.Errorf("device config: poll_interval must not be negative, got %v", c.Device.PollInterval)
	}
	if err := c.Language.Validate(); err != nil {
		return fmt.Errorf("language config: %w", err)
	}
	return nil
}

// Validate checks the backend name, sample rate and buffer.
func (c *AudioConfig) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if _, err := audio.ParseBackendType(c.Backend); err != nil {
		return err
	}
	if !slices.Contains(validSampleRates, c.SampleRate) {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.SampleRate, validSampleRates)
	}
	if c.BufferMillis < 0 || c.BufferMillis > 1000 {
		return fmt.Errorf("buffer_ms must be between 0 and 1000, got %d", c.BufferMillis)
	}
	return nil
}

// Validate checks that volume and rate are points on their scales.
func (c *SettingsConfig) Validate() error {
	c.Volume = strings.ToLower(strings.TrimSpace(c.Volume))
	if _, err := audio.ParseVolume(c.Volume); err != nil {
		return err
	}
	c.Rate = strings.ToLower(strings.TrimSpace(c.Rate))
	if _, err := audio.ParseRate(c.Rate); err != nil {
		return err
	}
	return nil
}

// Validate checks the clip source and cache sizes.
func (c *ClipsConfig) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %g", c.RequestsPerSecond)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.BackendURL != "" && !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend_url must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.Cache.MemoryMB < 1 || c.Cache.MemoryMB > 1024 {
		return fmt.Errorf("cache memory_mb must be between 1 and 1024, got %d", c.Cache.MemoryMB)
	}
	if c.Cache.DiskMB < 1 || c.Cache.DiskMB > 10000 {
		return fmt.Errorf("cache disk_mb must be between 1 and 10000, got %d", c.Cache.DiskMB)
	}
	if c.Cache.Compression < 1 || c.Cache.Compression > 4 {
		return fmt.Errorf("cache compression must be between 1 and 4, got %d", c.Cache.Compression)
	}
	return nil
}

// Validate canonicalizes the language tags and checks the default is
// among the available ones.
func (c *LanguageConfig) Validate() error {
	def, err := narration.CanonicalLanguage(c.Default)
	if err != nil {
		return err
	}
	c.Default = def

	if len(c.Available) == 0 {
		c.Available = []string{def}
		return nil
	}
	for i, code := range c.Available {
		tag, err := narration.CanonicalLanguage(code)
		if err != nil {
			return err
		}
		c.Available[i] = tag
	}
	if !slices.Contains(c.Available, def) {
		return fmt.Errorf("default language %s is not in available languages %v", def, c.Available)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory. Paths that
// cannot be expanded are returned unchanged.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// expandPaths resolves a leading ~ in every path option.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Clips.Dir, &c.Clips.Catalog, &c.Clips.Cache.Dir, &c.Device.JackPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// SettingsOptions converts the settings section. Call Validate first.
func (c *Config) SettingsOptions() settings.Options {
	opts := settings.DefaultOptions()
	opts.DefaultEnabled = c.Settings.Enabled
	opts.ControlsLocked = c.Settings.ControlsLocked
	if v, err := audio.ParseVolume(c.Settings.Volume); err == nil {
		opts.DefaultVolume = v
	}
	if r, err := audio.ParseRate(c.Settings.Rate); err == nil {
		opts.DefaultRate = r
	}
	opts.DevicePresent = c.Device.AssumePresent || c.Device.JackPath == ""
	return opts
}

// BackendOptions converts the audio section.
func (c *Config) BackendOptions() (audio.BackendType, audio.BackendOptions) {
	kind, err := audio.ParseBackendType(c.Audio.Backend)
	if err != nil {
		kind = audio.BackendAuto
	}
	return kind, audio.BackendOptions{
		SampleRate:   c.Audio.SampleRate,
		BufferMillis: c.Audio.BufferMillis,
	}
}
