package ui

import "time"

// Config contains harness-specific configuration.
type Config struct {
	Title string
	// Languages cycled by the language key, first is the initial one.
	Languages []string

	ShowHelp    bool `env:"NARRATOR_SHOW_HELP" envDefault:"true"`
	EnableMouse bool

	// How often the status line polls the engine.
	RefreshInterval time.Duration `env:"NARRATOR_UI_REFRESH" envDefault:"100ms"`
}
