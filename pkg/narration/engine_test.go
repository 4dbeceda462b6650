package narration

import (
	"context"
	"reflect"
	"testing"

	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/audio/audiotest"
	"github.com/dgnsrekt/narrator/pkg/settings"
)

func toneSource() audio.ClipSource {
	return audio.ClipSourceFunc(func(ctx context.Context, ids []string, lang string) ([]audio.Clip, error) {
		clips := make([]audio.Clip, len(ids))
		for i, id := range ids {
			clips[i] = audio.Clip{ID: id, LanguageCode: lang, Data: audiotest.ToneWAV(2205, audio.SampleRate, 330)}
		}
		return clips, nil
	})
}

func startEngine(t *testing.T, cfg EngineConfig) (*Engine, *audio.MockBackend) {
	t.Helper()

	backend := audio.NewMockBackend()
	cfg.OpenBackend = func() (audio.Backend, error) { return backend, nil }
	if cfg.Source == nil {
		cfg.Source = toneSource()
	}
	if cfg.Tree == nil {
		cfg.Tree = newFakeTree()
	}
	if cfg.Lookup == nil {
		cfg.Lookup = newFakeLookup()
	}
	if cfg.Settings == (settings.Options{}) {
		cfg.Settings = settings.DefaultOptions()
	}

	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
	return e, backend
}

func queueIDs(q *audio.QueuePlayer) []string {
	return clipIDs(q.Queue())
}

func TestEngineLanguageReplay(t *testing.T) {
	e, backend := startEngine(t, EngineConfig{Language: "en"})

	_ = e.Session.Activate("title")
	_ = e.Session.Flush(context.Background())
	audiotest.WaitFor(t, "english clip", func() bool { return len(backend.Players()) == 1 })
	if got := queueIDs(e.Queue); !reflect.DeepEqual(got, []string{"en-mayor"}) {
		t.Fatalf("Queue = %v, want [en-mayor]", got)
	}

	_ = e.Session.SetLanguage("es-US")
	_ = e.Session.Flush(context.Background())
	audiotest.WaitFor(t, "spanish clip", func() bool { return len(backend.Players()) == 2 })

	if got := queueIDs(e.Queue); !reflect.DeepEqual(got, []string{"es-alcalde"}) {
		t.Errorf("Queue = %v, want [es-alcalde]", got)
	}
	if !backend.Players()[0].Closed() {
		t.Error("English clip should be stopped before the Spanish one starts")
	}
	if e.Graph.Attached() != 1 {
		t.Errorf("Expected one attached stream, got %d", e.Graph.Attached())
	}
}

func TestEngineAnnouncesVolume(t *testing.T) {
	e, _ := startEngine(t, EngineConfig{Language: "en", AnnounceChanges: true})

	e.Controls.SetVolume(audio.VolumeMaximum)
	_ = e.Session.Flush(context.Background())

	if got := queueIDs(e.Queue); !reflect.DeepEqual(got, []string{"en-max-volume"}) {
		t.Errorf("Queue = %v, want [en-max-volume]", got)
	}
	if e.Graph.Gain().DB() != 0 {
		t.Errorf("Gain = %.1f dB, want 0", e.Graph.Gain().DB())
	}
}

func TestEngineDeviceUnplugStopsNarration(t *testing.T) {
	device := make(chan bool)
	e, _ := startEngine(t, EngineConfig{Language: "en", Device: device})

	_ = e.Session.Activate("contest")
	_ = e.Session.Flush(context.Background())
	audiotest.WaitFor(t, "narration", func() bool { return len(e.Queue.Queue()) > 0 })

	device <- false
	audiotest.WaitFor(t, "audio disabled", func() bool { return !e.Controls.Enabled() })
	audiotest.WaitFor(t, "narration stopped", func() bool { return len(e.Queue.Queue()) == 0 })

	_ = e.Session.Activate("contest")
	_ = e.Session.Flush(context.Background())
	if got := e.Queue.Queue(); len(got) != 0 {
		t.Error("Session must stay inert while the device is absent")
	}

	device <- true
	audiotest.WaitFor(t, "audio enabled", func() bool { return e.Controls.Enabled() })
}

func TestEngineGainFollowsControlsOnly(t *testing.T) {
	e, backend := startEngine(t, EngineConfig{Language: "en"})

	_ = e.Session.Activate("contest")
	_ = e.Session.Flush(context.Background())
	audiotest.WaitFor(t, "first clip", func() bool {
		players := backend.Players()
		return len(players) == 1 && players[0].Playing()
	})

	// The queue must not write the gain at clip boundaries.
	e.Graph.Gain().SetDB(-7)
	backend.Players()[0].Finish()
	audiotest.WaitFor(t, "second clip", func() bool {
		players := backend.Players()
		return len(players) == 2 && players[1].Playing()
	})
	if got := e.Graph.Gain().DB(); got != -7 {
		t.Errorf("Gain = %.1f dB after a clip boundary, want -7 left untouched", got)
	}

	e.Controls.IncreaseVolume()
	want := audio.GainForVolume(e.Controls.Volume())
	if got := e.Graph.Gain().DB(); got != want {
		t.Errorf("Gain = %.1f dB, want %.1f for %s", got, want, e.Controls.Volume())
	}
	backend.Players()[1].Finish()
	audiotest.WaitFor(t, "third clip", func() bool { return len(backend.Players()) == 3 })
	if got := e.Graph.Gain().DB(); got != want {
		t.Errorf("Gain = %.1f dB after the next clip, want %.1f", got, want)
	}
}
