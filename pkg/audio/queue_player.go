package audio

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// PlayerFactory builds the player for one clip reference.
type PlayerFactory func(ctx context.Context, ref ClipReference) (Player, error)

// PlaybackSettings is what the queue player re-reads before every clip.
type PlaybackSettings interface {
	Rate() Rate
	Volume() Volume
}

// VolumeSink receives the volume applied before each clip.
type VolumeSink interface {
	SetVolume(v Volume)
}

// QueueState reports where the queue player is.
type QueueState int

const (
	QueueIdle QueueState = iota
	QueuePlaying
	QueueDone
)

func (s QueueState) String() string {
	switch s {
	case QueueIdle:
		return "Idle"
	case QueuePlaying:
		return "Playing"
	case QueueDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// QueuePlayer plays a queue of clips strictly in order, one at a time.
// Replacing the queue stops the current clip before anything from the new
// queue starts.
type QueuePlayer struct {
	settings  PlaybackSettings
	volume    VolumeSink
	newPlayer PlayerFactory

	mu      sync.Mutex
	queue   []ClipReference
	state   QueueState
	index   int
	gen     uint64
	cancel  context.CancelFunc
	current Player

	wg sync.WaitGroup
}

// NewQueuePlayer creates an idle queue player. volume may be nil when the
// caller keeps the gain stage in sync itself.
func NewQueuePlayer(settings PlaybackSettings, volume VolumeSink, newPlayer PlayerFactory) *QueuePlayer {
	return &QueuePlayer{
		settings:  settings,
		volume:    volume,
		newPlayer: newPlayer,
	}
}

// SetQueue replaces the queue. Setting a queue equal to the current one is
// a no-op, so re-publishing the same narration does not restart it. An
// empty queue just stops playback. onDone runs once, after the last clip of
// this queue ends, unless the queue is replaced first.
func (q *QueuePlayer) SetQueue(ctx context.Context, refs []ClipReference, onDone func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if EqualQueues(q.queue, refs) {
		return nil
	}

	err := q.stopLocked(ctx)
	q.queue = append([]ClipReference(nil), refs...)
	q.index = 0

	if len(refs) == 0 {
		q.state = QueueIdle
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.state = QueuePlaying
	gen := q.gen

	log.Debug("Narration queue replaced", "clips", len(refs), "generation", gen)

	q.wg.Add(1)
	go q.run(runCtx, gen, q.queue, onDone)
	return err
}

// Clear stops playback and empties the queue.
func (q *QueuePlayer) Clear(ctx context.Context) error {
	return q.SetQueue(ctx, nil, nil)
}

// stopLocked invalidates the running queue and stops its clip. Called with
// q.mu held.
func (q *QueuePlayer) stopLocked(ctx context.Context) error {
	q.gen++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	current := q.current
	q.current = nil
	if current == nil {
		return nil
	}
	return current.Stop(ctx)
}

func (q *QueuePlayer) run(ctx context.Context, gen uint64, refs []ClipReference, onDone func()) {
	defer q.wg.Done()

	for i, ref := range refs {
		q.mu.Lock()
		if q.gen != gen {
			q.mu.Unlock()
			return
		}
		q.index = i
		q.mu.Unlock()

		player, err := q.newPlayer(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Skipping clip", "clip", ref, "error", err)
			continue
		}

		rate, volume := q.settings.Rate(), q.settings.Volume()

		q.mu.Lock()
		if q.gen != gen {
			q.mu.Unlock()
			_ = player.Stop(context.Background())
			return
		}
		q.current = player
		q.mu.Unlock()

		if q.volume != nil {
			q.volume.SetVolume(volume)
		}
		player.SetPlaybackRate(rate)

		err = player.Play(ctx)

		q.mu.Lock()
		stale := q.gen != gen
		if !stale {
			q.current = nil
		}
		q.mu.Unlock()
		if stale {
			return
		}

		if err != nil && !errors.Is(err, ErrPlayerStopped) {
			log.Warn("Clip playback failed, skipping", "clip", ref, "error", err)
		}
		// Release the finished clip's payload.
		_ = player.Stop(context.Background())
	}

	q.mu.Lock()
	if q.gen != gen {
		q.mu.Unlock()
		return
	}
	q.state = QueueDone
	q.index = len(refs)
	q.mu.Unlock()

	log.Debug("Narration queue finished", "clips", len(refs), "generation", gen)
	if onDone != nil {
		onDone()
	}
}

// ApplySettings pushes the current rate to the clip that is playing, so a
// rate change is heard without waiting for the next clip.
func (q *QueuePlayer) ApplySettings() {
	q.mu.Lock()
	current := q.current
	q.mu.Unlock()

	if current != nil {
		current.SetPlaybackRate(q.settings.Rate())
	}
}

// State returns the queue state and the index of the clip being played.
func (q *QueuePlayer) State() (QueueState, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state, q.index
}

// Queue returns a copy of the current queue.
func (q *QueuePlayer) Queue() []ClipReference {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ClipReference(nil), q.queue...)
}

// Close stops playback and waits for the playback goroutine to exit.
func (q *QueuePlayer) Close(ctx context.Context) error {
	err := q.Clear(ctx)
	q.wg.Wait()
	return err
}
