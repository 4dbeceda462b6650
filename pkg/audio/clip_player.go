package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// pollInterval is how often a playing clip checks the backend for the end
// of its stream. oto reports completion only through IsPlaying.
var pollInterval = 10 * time.Millisecond

// Player plays one clip. The queue player drives clips through this
// interface.
type Player interface {
	// Play starts playback, or joins playback already in progress, and
	// blocks until the clip ends naturally. It returns ErrPlayerStopped if
	// the player is stopped first.
	Play(ctx context.Context) error

	// Stop halts playback and releases the clip. It is idempotent.
	Stop(ctx context.Context) error

	// SetPlaybackRate changes speed without changing pitch.
	SetPlaybackRate(r Rate)
}

type clipState int

const (
	clipIdle clipState = iota
	clipStarting
	clipPlaying
	clipEnded
	clipStopped
)

func (s clipState) String() string {
	switch s {
	case clipIdle:
		return "Idle"
	case clipStarting:
		return "Starting"
	case clipPlaying:
		return "Playing"
	case clipEnded:
		return "Ended"
	case clipStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ClipPlayer plays one decoded clip through the output graph.
type ClipPlayer struct {
	graph *OutputGraph
	ref   ClipReference

	mu       sync.Mutex
	state    clipState
	stream   *stretcher
	rate     Rate
	player   BackendPlayer
	detach   func() error
	starting chan struct{}
	ended    chan struct{}
	stopped  chan struct{}
	err      error
}

// NewClipPlayer decodes clip for playback through graph. A payload that
// cannot be decoded is reported here, once, and never retried.
func NewClipPlayer(graph *OutputGraph, clip Clip) (*ClipPlayer, error) {
	frames, err := decodeClip(clip.Data, graph.SampleRate())
	if err != nil {
		log.Warn("Failed to decode clip", "clip", clip.ID, "language", clip.LanguageCode, "error", err)
		return nil, err
	}

	return &ClipPlayer{
		graph:   graph,
		ref:     clip.Reference(),
		stream:  newStretcher(frames),
		rate:    DefaultRate,
		ended:   make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Reference returns the clip this player was built for.
func (p *ClipPlayer) Reference() ClipReference {
	return p.ref
}

// Play starts the clip, or joins playback already started, and waits for
// the natural end. Any number of concurrent callers observe the same end.
func (p *ClipPlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case clipStopped:
		p.mu.Unlock()
		return ErrPlayerStopped
	case clipIdle:
		p.start()
	}
	ended, stopped := p.ended, p.stopped
	p.mu.Unlock()

	select {
	case <-ended:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.err
	case <-stopped:
		return ErrPlayerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start attaches the stream to the graph. Called with p.mu held; the lock
// is dropped around the backend calls and re-acquired before returning.
func (p *ClipPlayer) start() {
	p.state = clipStarting
	p.starting = make(chan struct{})
	stream := p.stream
	p.mu.Unlock()

	player, detach, err := p.graph.attach(newPCMEncoder(stream, p.graph.Gain()))
	if err == nil {
		player.Play()
	}

	p.mu.Lock()
	close(p.starting)
	if err != nil {
		log.Warn("Failed to start clip", "clip", p.ref, "error", err)
		p.err = err
		p.state = clipEnded
		close(p.ended)
		return
	}

	p.player, p.detach = player, detach
	p.state = clipPlaying
	log.Debug("Clip playback started", "clip", p.ref, "rate", p.rate)
	go p.monitor(player)
}

// monitor waits for the backend to drain the stream.
func (p *ClipPlayer) monitor(player BackendPlayer) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopped:
			return
		case <-ticker.C:
		}

		if player.IsPlaying() {
			continue
		}

		p.mu.Lock()
		if p.state != clipPlaying {
			p.mu.Unlock()
			return
		}
		p.err = player.Err()
		if err := p.detach(); err != nil && p.err == nil {
			p.err = err
		}
		p.player = nil
		p.state = clipEnded
		close(p.ended)
		p.mu.Unlock()

		log.Debug("Clip playback finished", "clip", p.ref)
		return
	}
}

// Stop halts playback and releases the decoded clip. It waits for a
// concurrent start to settle, so the backend is paused exactly once.
func (p *ClipPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state == clipStarting {
		starting := p.starting
		p.mu.Unlock()
		select {
		case <-starting:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.mu.Lock()
	}
	defer p.mu.Unlock()

	if p.state == clipStopped {
		return nil
	}

	var err error
	if p.player != nil {
		p.player.Pause()
		err = p.detach()
		p.player = nil
	}
	p.stream = nil
	p.state = clipStopped
	close(p.stopped)

	log.Debug("Clip playback stopped", "clip", p.ref)
	return err
}

// SetPlaybackRate changes the speed of the clip, including while it plays.
func (p *ClipPlayer) SetPlaybackRate(r Rate) {
	mult := r.Multiplier()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = r
	if p.stream != nil {
		p.stream.SetRatio(mult)
	}
}

// PlaybackRate returns the rate last applied.
func (p *ClipPlayer) PlaybackRate() Rate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// NewClipPlayerFactory returns a PlayerFactory that fetches each clip from
// source and decodes it for graph.
func NewClipPlayerFactory(graph *OutputGraph, source ClipSource) PlayerFactory {
	return func(ctx context.Context, ref ClipReference) (Player, error) {
		clips, err := source.FetchClips(ctx, []string{ref.ClipID}, ref.LanguageCode)
		if err != nil {
			return nil, err
		}
		if len(clips) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrClipNotFound, ref)
		}
		return NewClipPlayer(graph, clips[0])
	}
}
