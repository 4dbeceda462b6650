// Package main provides the entry point for the narrator CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/config"
	"github.com/dgnsrekt/narrator/internal/device"
	"github.com/dgnsrekt/narrator/internal/uitree"
	"github.com/dgnsrekt/narrator/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	proc       config.Process
	configFile string
	treeFile   string
	mouse      bool

	rootCmd = &cobra.Command{
		Use:     "narrator",
		Short:   "Screen-reader audio for accessible voting",
		Example: paragraph("narrator --catalog catalog.yml --clips ./clips --tree screen.yml"),
		Long: paragraph(
			fmt.Sprintf("\nNarrate ballot screens from %s, with volume, rate and headphone handling.", keyword("prerecorded clips")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}
	if treeFile != "" {
		treeFile = config.ExpandPath(treeFile)
		if _, err := os.Stat(treeFile); err != nil {
			return fmt.Errorf("unable to open tree: %w", err)
		}
	}
	return nil
}

func execute(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the harness needs a terminal; use 'narrator say' to play announcements")
	}

	var tree *uitree.Tree
	if treeFile != "" {
		if tree, err = uitree.Load(treeFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{
		tree:          tree,
		catalogScreen: true,
		presence:      device.FromConfig(cfg.Device.JackPath, cfg.Device.PollInterval, cfg.Device.AssumePresent),
		silent:        proc.SilentAudio,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	prefetched := make(chan struct{})
	go func() {
		defer close(prefetched)
		rt.prefetch(ctx, cfg.Language.Available)
	}()

	engineDone := make(chan error, 1)
	go func() { engineDone <- rt.engine.Run(ctx) }()

	uiErr := runTUI(cfg, rt)

	stop()
	<-prefetched
	if err := <-engineDone; err != nil {
		log.Error("Narration engine stopped", "error", err)
	}
	return uiErr
}

func runTUI(cfg config.Config, rt *runtime) error {
	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	uiCfg.Title = "narrator"
	if treeFile != "" {
		uiCfg.Title += " · " + strings.TrimSuffix(filepath.Base(treeFile), filepath.Ext(treeFile))
	}
	uiCfg.Languages = cfg.Language.Available
	uiCfg.EnableMouse = mouse

	if _, err := ui.NewProgram(uiCfg, rt.engine.Session, rt.engine.Controls, rt.tree).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	var err error
	if proc, err = config.LoadProcess(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	closer, err := setupLog(proc)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "config file")
	rootCmd.PersistentFlags().String("catalog", "", "audio-id catalog (YAML or JSON)")
	rootCmd.PersistentFlags().String("clips", "", "clip directory laid out as <dir>/<language>/<id>.wav")
	rootCmd.PersistentFlags().String("backend-url", "", "clip backend base URL")
	rootCmd.PersistentFlags().String("backend", "", "audio backend: auto, oto or null")
	rootCmd.PersistentFlags().String("language", "", "initial narration language")
	rootCmd.Flags().StringVarP(&treeFile, "tree", "t", "", "screen tree (YAML); defaults to one element per catalog key")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("clips.catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("clips.dir", rootCmd.PersistentFlags().Lookup("clips"))
	_ = viper.BindPFlag("clips.backend_url", rootCmd.PersistentFlags().Lookup("backend-url"))
	_ = viper.BindPFlag("audio.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("language.default", rootCmd.PersistentFlags().Lookup("language"))

	rootCmd.AddCommand(configCmd, manCmd, sayCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.ConfigDirs(os.Getenv("NARRATOR_CONFIG_HOME"))
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}
	configFile = config.Prepare(viper.GetViper(), dirs)
}
