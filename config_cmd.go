package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Hardware pipeline: auto, oto or null (silent)
audio:
  backend: "auto"
  # 22050, 44100 or 48000
  sample_rate: 44100
  # platform buffer override in milliseconds (0 = platform default)
  buffer_ms: 0

# What every voter session starts from and returns to on reset
settings:
  enabled: true
  # min, 10 .. 90, max
  volume: "50"
  # min, 50 .. 200 in steps of 25, max
  rate: "100"
  controls_locked: false
  # speak the new level after volume and rate changes
  announce_changes: true

# Where clips come from
clips:
  # audio-id catalog (YAML or JSON): {language: {key: [clip ids]}}
  catalog: ""
  # directory laid out as <dir>/<language>/<clip id>.wav|.mp3
  dir: ""
  # or a clip backend serving GET <backend_url>/clips
  backend_url: ""
  requests_per_second: 10
  timeout: "10s"
  cache:
    enabled: true
    # defaults to the user data directory
    dir: ""
    memory_mb: 32
    disk_mb: 256
    # zstd level: 1 fastest .. 4 best
    compression: 3

# Headphone presence
device:
  # file holding 1 or 0; empty probes the platform once
  jack_path: ""
  # poll the jack file as well as watching it (0 = watch only)
  poll_interval: "0s"
  assume_present: false

language:
  default: "en"
  available: ["en", "es-US"]
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if configFile == "" {
			return errors.New("no config file location")
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
