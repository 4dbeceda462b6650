package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// AppName names the config file, the env prefix and the app directories.
const AppName = "narrator"

// Process holds knobs that only come from the environment.
type Process struct {
	Debug       bool   `env:"NARRATOR_DEBUG"`
	LogFile     string `env:"NARRATOR_LOG_FILE"`
	ConfigHome  string `env:"NARRATOR_CONFIG_HOME"`
	SilentAudio bool   `env:"NARRATOR_SILENT_AUDIO"`
}

// LoadProcess parses the process environment.
func LoadProcess() (Process, error) {
	p, err := env.ParseAs[Process]()
	if err != nil {
		return p, fmt.Errorf("error parsing environment: %w", err)
	}
	return p, nil
}

// ConfigDirs returns the directories searched for narrator.yml, most
// specific first.
func ConfigDirs(configHome string) ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if configHome != "" {
		dirs = append([]string{configHome}, dirs...)
	}
	return dirs, nil
}

// DataDir returns the per-user data directory for caches and logs.
func DataDir() (string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.DataDirs()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no data directory for %s", AppName)
	}
	return dirs[0], nil
}

// Prepare points v at the config search path and the NARRATOR_ environment
// and reads the config file if there is one. It returns the file used, or
// the default location a new file should be written to.
func Prepare(v *viper.Viper, dirs []string) string {
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return used
	}
	if len(dirs) == 0 {
		return ""
	}
	return filepath.Join(dirs[0], AppName+".yml")
}

// LoadFromViper loads the configuration from v on top of the defaults and
// validates it.
func LoadFromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("audio.backend") {
		cfg.Audio.Backend = v.GetString("audio.backend")
	}
	if v.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.buffer_ms") {
		cfg.Audio.BufferMillis = v.GetInt("audio.buffer_ms")
	}

	if v.IsSet("settings.enabled") {
		cfg.Settings.Enabled = v.GetBool("settings.enabled")
	}
	if v.IsSet("settings.volume") {
		cfg.Settings.Volume = v.GetString("settings.volume")
	}
	if v.IsSet("settings.rate") {
		cfg.Settings.Rate = v.GetString("settings.rate")
	}
	if v.IsSet("settings.controls_locked") {
		cfg.Settings.ControlsLocked = v.GetBool("settings.controls_locked")
	}
	if v.IsSet("settings.announce_changes") {
		cfg.Settings.Announce = v.GetBool("settings.announce_changes")
	}

	cfg.Clips = loadClipsConfig(v)

	if v.IsSet("device.jack_path") {
		cfg.Device.JackPath = v.GetString("device.jack_path")
	}
	if v.IsSet("device.poll_interval") {
		cfg.Device.PollInterval = v.GetDuration("device.poll_interval")
	}
	if v.IsSet("device.assume_present") {
		cfg.Device.AssumePresent = v.GetBool("device.assume_present")
	}

	if v.IsSet("language.default") {
		cfg.Language.Default = v.GetString("language.default")
	}
	if v.IsSet("language.available") {
		cfg.Language.Available = v.GetStringSlice("language.available")
	}

	if err := cfg.expandPaths(); err != nil {
		return cfg, fmt.Errorf("invalid narrator configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid narrator configuration: %w", err)
	}
	return cfg, nil
}

func loadClipsConfig(v *viper.Viper) ClipsConfig {
	cfg := DefaultClipsConfig()

	if v.IsSet("clips.dir") {
		cfg.Dir = v.GetString("clips.dir")
	}
	if v.IsSet("clips.catalog") {
		cfg.Catalog = v.GetString("clips.catalog")
	}
	if v.IsSet("clips.backend_url") {
		cfg.BackendURL = v.GetString("clips.backend_url")
	}
	if v.IsSet("clips.requests_per_second") {
		cfg.RequestsPerSecond = v.GetFloat64("clips.requests_per_second")
	}
	if v.IsSet("clips.timeout") {
		cfg.Timeout = v.GetDuration("clips.timeout")
	}

	if v.IsSet("clips.cache.enabled") {
		cfg.Cache.Enabled = v.GetBool("clips.cache.enabled")
	}
	if v.IsSet("clips.cache.dir") {
		cfg.Cache.Dir = v.GetString("clips.cache.dir")
	}
	if v.IsSet("clips.cache.memory_mb") {
		cfg.Cache.MemoryMB = v.GetInt("clips.cache.memory_mb")
	}
	if v.IsSet("clips.cache.disk_mb") {
		cfg.Cache.DiskMB = v.GetInt("clips.cache.disk_mb")
	}
	if v.IsSet("clips.cache.compression") {
		cfg.Cache.Compression = v.GetInt("clips.cache.compression")
	}

	return cfg
}

// SetDefaults sets default values in v for every config key.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.buffer_ms", d.Audio.BufferMillis)

	v.SetDefault("settings.enabled", d.Settings.Enabled)
	v.SetDefault("settings.volume", d.Settings.Volume)
	v.SetDefault("settings.rate", d.Settings.Rate)
	v.SetDefault("settings.controls_locked", d.Settings.ControlsLocked)
	v.SetDefault("settings.announce_changes", d.Settings.Announce)

	v.SetDefault("clips.dir", d.Clips.Dir)
	v.SetDefault("clips.catalog", d.Clips.Catalog)
	v.SetDefault("clips.backend_url", d.Clips.BackendURL)
	v.SetDefault("clips.requests_per_second", d.Clips.RequestsPerSecond)
	v.SetDefault("clips.timeout", d.Clips.Timeout.String())
	v.SetDefault("clips.cache.enabled", d.Clips.Cache.Enabled)
	v.SetDefault("clips.cache.dir", d.Clips.Cache.Dir)
	v.SetDefault("clips.cache.memory_mb", d.Clips.Cache.MemoryMB)
	v.SetDefault("clips.cache.disk_mb", d.Clips.Cache.DiskMB)
	v.SetDefault("clips.cache.compression", d.Clips.Cache.Compression)

	v.SetDefault("device.jack_path", d.Device.JackPath)
	v.SetDefault("device.poll_interval", d.Device.PollInterval.String())
	v.SetDefault("device.assume_present", d.Device.AssumePresent)

	v.SetDefault("language.default", d.Language.Default)
	v.SetDefault("language.available", d.Language.Available)
}
