package narration

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/settings"
)

// EngineConfig is everything needed to assemble a screen-reader engine.
type EngineConfig struct {
	// OpenBackend opens the hardware pipeline on first playback.
	OpenBackend audio.BackendOpener
	Source      audio.ClipSource
	Lookup      Lookup
	Tree        Tree
	Settings    settings.Options
	Language    string

	// Device, if set, streams headphone presence into the settings.
	Device <-chan bool

	// AnnounceChanges speaks the new level after volume and rate changes.
	AnnounceChanges bool

	OnQueueDone func(target NodeID)
}

// Engine owns one output graph, the settings context that drives it, the
// queue player and the narration session.
type Engine struct {
	Graph    *audio.OutputGraph
	Controls *settings.Controls
	Queue    *audio.QueuePlayer
	Session  *Session

	device      <-chan bool
	unsubscribe func()
}

// NewEngine assembles an engine. Nothing touches the audio hardware until
// the first clip plays.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.OpenBackend == nil {
		return nil, errors.New("narration: backend opener is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("narration: clip source is required")
	}

	graph := audio.NewOutputGraph(cfg.OpenBackend)
	controls := settings.New(graph, cfg.Settings)
	// Controls own the gain stage; the queue only reads volume and rate.
	queue := audio.NewQueuePlayer(controls, nil, audio.NewClipPlayerFactory(graph, cfg.Source))

	session, err := New(Config{
		Tree:        cfg.Tree,
		Lookup:      cfg.Lookup,
		Queue:       queue,
		Settings:    controls,
		Language:    cfg.Language,
		OnQueueDone: cfg.OnQueueDone,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Graph:    graph,
		Controls: controls,
		Queue:    queue,
		Session:  session,
		device:   cfg.Device,
	}
	e.unsubscribe = controls.Subscribe(func(prev, next settings.State) {
		e.settingsChanged(prev, next, cfg.AnnounceChanges)
	})
	return e, nil
}

func (e *Engine) settingsChanged(prev, next settings.State, announce bool) {
	if prev.Enabled != next.Enabled {
		if err := e.Session.SetAudioEnabled(next.Enabled); err != nil {
			log.Debug("Session not running", "error", err)
		}
	}

	if prev.Rate != next.Rate {
		e.Queue.ApplySettings()
	}

	if !announce || !next.Enabled {
		return
	}
	var keys []string
	switch {
	case prev.Volume != next.Volume:
		keys = []string{next.Volume.FeedbackKey()}
	case prev.Rate != next.Rate:
		keys = next.Rate.FeedbackKeys()
	default:
		return
	}
	if err := e.Session.Announce(keys...); err != nil {
		log.Debug("Session not running", "error", err)
	}
}

// Run drives the session and the device signal until ctx is cancelled,
// then stops playback and releases the output.
func (e *Engine) Run(ctx context.Context) error {
	if e.device != nil {
		go e.Controls.TrackDevice(ctx, e.device)
	}

	err := e.Session.Run(ctx)

	e.unsubscribe()
	if qerr := e.Queue.Close(context.Background()); qerr != nil {
		log.Warn("Failed to stop narration queue", "error", qerr)
	}
	if gerr := e.Graph.Close(); gerr != nil {
		log.Warn("Failed to close audio output", "error", gerr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
