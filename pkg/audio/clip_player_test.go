package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/pkg/audio/audiotest"
)

func newTestClipPlayer(t *testing.T) (*ClipPlayer, *OutputGraph, *MockBackend) {
	t.Helper()

	mock := NewMockBackend()
	graph := NewOutputGraphWithBackend(mock)
	player, err := NewClipPlayer(graph, Clip{
		ID:           "title",
		LanguageCode: "en",
		Data:         audiotest.ToneWAV(4410, SampleRate, 440),
	})
	if err != nil {
		t.Fatalf("NewClipPlayer failed: %v", err)
	}
	return player, graph, mock
}

func playAsync(p Player) <-chan error {
	done := make(chan error, 1)
	go func() { done <- p.Play(context.Background()) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return")
		return nil
	}
}

func onlyPlayer(t *testing.T, mock *MockBackend) *MockPlayer {
	t.Helper()
	audiotest.WaitFor(t, "backend player", func() bool {
		players := mock.Players()
		return len(players) == 1 && players[0].Playing()
	})
	return mock.Players()[0]
}

func TestClipPlayerPlaysToNaturalEnd(t *testing.T) {
	player, graph, mock := newTestClipPlayer(t)

	done := playAsync(player)
	backend := onlyPlayer(t, mock)
	if graph.Attached() != 1 {
		t.Errorf("Expected 1 attached stream while playing, got %d", graph.Attached())
	}

	backend.Finish()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if backend.Consumed() < 4410*BytesPerFrame {
		t.Errorf("Expected at least %d PCM bytes, got %d", 4410*BytesPerFrame, backend.Consumed())
	}
	if graph.Attached() != 0 {
		t.Errorf("Expected stream detached after natural end, got %d attached", graph.Attached())
	}
	if !backend.Closed() {
		t.Error("Backend player should be closed after natural end")
	}
}

func TestClipPlayerConcurrentPlayJoins(t *testing.T) {
	player, _, mock := newTestClipPlayer(t)

	first := playAsync(player)
	second := playAsync(player)
	backend := onlyPlayer(t, mock)

	backend.Finish()
	if err := waitResult(t, first); err != nil {
		t.Errorf("First Play returned error: %v", err)
	}
	if err := waitResult(t, second); err != nil {
		t.Errorf("Second Play returned error: %v", err)
	}
	if created, _ := mock.Counts(); created != 1 {
		t.Errorf("Expected 1 backend player, got %d", created)
	}
}

func TestClipPlayerStopIsIdempotent(t *testing.T) {
	player, graph, mock := newTestClipPlayer(t)

	done := playAsync(player)
	backend := onlyPlayer(t, mock)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := player.Stop(context.Background()); err != nil {
				t.Errorf("Stop returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := waitResult(t, done); !errors.Is(err, ErrPlayerStopped) {
		t.Errorf("Expected ErrPlayerStopped from interrupted Play, got %v", err)
	}
	if backend.PauseCount != 1 {
		t.Errorf("Expected exactly one pause, got %d", backend.PauseCount)
	}
	if _, closed := mock.Counts(); closed != 1 {
		t.Errorf("Expected exactly one close, got %d", closed)
	}
	if graph.Attached() != 0 {
		t.Errorf("Expected no attached streams, got %d", graph.Attached())
	}

	if err := player.Play(context.Background()); !errors.Is(err, ErrPlayerStopped) {
		t.Errorf("Play after Stop should fail with ErrPlayerStopped, got %v", err)
	}
}

func TestClipPlayerStopWaitsForStart(t *testing.T) {
	player, graph, mock := newTestClipPlayer(t)
	mock.NewPlayerGate = make(chan struct{})
	mock.NewPlayerEntered = make(chan struct{}, 1)

	done := playAsync(player)
	select {
	case <-mock.NewPlayerEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("Play never reached the backend")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- player.Stop(context.Background()) }()
	audiotest.Never(t, "Stop returning mid-start", 50*time.Millisecond, func() bool {
		return len(stopped) > 0
	})

	close(mock.NewPlayerGate)
	if err := waitResult(t, stopped); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := waitResult(t, done); !errors.Is(err, ErrPlayerStopped) {
		t.Errorf("Expected ErrPlayerStopped from interrupted Play, got %v", err)
	}

	players := mock.Players()
	if len(players) != 1 {
		t.Fatalf("Expected one backend player, got %d", len(players))
	}
	if players[0].PlayCount != 1 || players[0].PauseCount != 1 {
		t.Errorf("Expected one play and one pause, got %d and %d", players[0].PlayCount, players[0].PauseCount)
	}
	if !players[0].Closed() {
		t.Error("Backend player should be closed")
	}
	if graph.Attached() != 0 {
		t.Errorf("Expected no attached streams, got %d", graph.Attached())
	}
}

func TestClipPlayerStopBeforePlay(t *testing.T) {
	player, _, mock := newTestClipPlayer(t)

	if err := player.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := player.Play(context.Background()); !errors.Is(err, ErrPlayerStopped) {
		t.Errorf("Expected ErrPlayerStopped, got %v", err)
	}
	if created, _ := mock.Counts(); created != 0 {
		t.Errorf("Stopped player should never attach, got %d players", created)
	}
}

func TestClipPlayerStopAfterEnd(t *testing.T) {
	player, _, mock := newTestClipPlayer(t)

	done := playAsync(player)
	onlyPlayer(t, mock).Finish()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if err := player.Stop(context.Background()); err != nil {
		t.Errorf("Stop after natural end failed: %v", err)
	}
	if _, closed := mock.Counts(); closed != 1 {
		t.Errorf("Expected backend player closed once, got %d", closed)
	}
}

func TestClipPlayerMalformedPayload(t *testing.T) {
	mock := NewMockBackend()
	graph := NewOutputGraphWithBackend(mock)

	_, err := NewClipPlayer(graph, Clip{ID: "broken", LanguageCode: "en", Data: []byte("RIFF\x00\x00\x00\x00WAVE")})
	if !errors.Is(err, ErrMalformedClip) {
		t.Errorf("Expected ErrMalformedClip, got %v", err)
	}
	if created, _ := mock.Counts(); created != 0 {
		t.Errorf("Malformed clip should not reach the backend, got %d players", created)
	}
}

func TestClipPlayerStartFailure(t *testing.T) {
	player, _, mock := newTestClipPlayer(t)
	failure := errors.New("device busy")
	mock.NewPlayerErr = failure

	if err := player.Play(context.Background()); !errors.Is(err, failure) {
		t.Errorf("Expected start failure, got %v", err)
	}
	if err := player.Play(context.Background()); !errors.Is(err, failure) {
		t.Errorf("Expected the same failure without retry, got %v", err)
	}
}

func TestClipPlayerSetPlaybackRate(t *testing.T) {
	player, _, mock := newTestClipPlayer(t)

	done := playAsync(player)
	backend := onlyPlayer(t, mock)

	player.SetPlaybackRate(RateMaximum)
	if got := player.PlaybackRate(); got != RateMaximum {
		t.Errorf("PlaybackRate = %s, want %s", got, RateMaximum)
	}
	if got := player.stream.Ratio(); got != 2 {
		t.Errorf("Stretch ratio = %f, want 2", got)
	}

	backend.Finish()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
}

func TestClipPlayerHoldsEndWhileSuspended(t *testing.T) {
	player, graph, mock := newTestClipPlayer(t)
	if err := graph.Suspend(); err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}

	done := playAsync(player)
	onlyPlayer(t, mock).Finish()

	audiotest.Never(t, "clip end while suspended", 50*time.Millisecond, func() bool {
		return len(done) > 0
	})

	if err := graph.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
}
