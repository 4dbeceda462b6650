package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/config"
	"github.com/dgnsrekt/narrator/internal/device"
	"github.com/dgnsrekt/narrator/pkg/audio"
)

var sayCmd = &cobra.Command{
	Use:     "say KEY...",
	Short:   "Play announcement keys without the harness",
	Example: paragraph("narrator say labelRateOfSpeech label150Percent\nnarrator say --language es-US labelYes"),
	Long:    paragraph(fmt.Sprintf("\n%s the clips of one or more catalog keys through the narration queue and exit when they finish.", keyword("Play"))),
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromViper(viper.GetViper())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Headphones are assumed present: a one-shot command has no voter
		// to protect.
		rt, err := newRuntime(ctx, cfg, runtimeOptions{
			presence: device.Static(true),
			silent:   proc.SilentAudio,
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		return say(ctx, rt, args)
	},
}

func say(ctx context.Context, rt *runtime, keys []string) error {
	ctx, cancel := context.WithCancel(ctx)
	engineDone := make(chan error, 1)
	go func() { engineDone <- rt.engine.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-engineDone; err != nil {
			log.Error("Narration engine stopped", "error", err)
		}
	}()

	session := rt.engine.Session
	if err := session.Announce(keys...); err != nil {
		return err
	}
	if err := session.Flush(ctx); err != nil {
		return err
	}

	refs := session.Published()
	if len(refs) == 0 {
		return fmt.Errorf("no audio for %s in %s", strings.Join(keys, " "), session.Language())
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("Playing %d clips for %s\n", len(refs), keyword(strings.Join(keys, " ")))
	}
	return waitForQueue(ctx, rt.engine.Queue)
}

// waitForQueue blocks until the queue player leaves the playing state.
func waitForQueue(ctx context.Context, q *audio.QueuePlayer) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if state, _ := q.State(); state != audio.QueuePlaying {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
