package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed early")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presence")
		return false
	}
}

func waitClosed(t *testing.T, ch <-chan bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestReadJack(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		want    bool
	}{
		{"missing file", nil, false},
		{"one", ptr("1\n"), true},
		{"zero", ptr("0\n"), false},
		{"unplugged word", ptr("unplugged"), false},
		{"empty file counts as present", ptr(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := ReadJack(path)
			if err != nil {
				t.Fatalf("ReadJack error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadJack = %v, want %v", got, tt.want)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestStatic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Static(true).Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !receive(t, ch) {
		t.Error("Static(true) should report present")
	}
	cancel()
	waitClosed(t, ch)
}

func TestProbe(t *testing.T) {
	probe := Probe{Detect: func() *audio.PlatformInfo {
		return &audio.PlatformInfo{OS: audio.PlatformLinux, HasAudioDevice: false}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := probe.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if receive(t, ch) {
		t.Error("Probe should report the detected device state")
	}
}

func TestJackWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headphone_jack")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := JackWatcher{Path: path, PollInterval: 20 * time.Millisecond}.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if !receive(t, ch) {
		t.Fatal("Initial state should be present")
	}

	if err := os.WriteFile(path, []byte("0"), 0o644); err != nil {
		t.Fatal(err)
	}
	if receive(t, ch) {
		t.Fatal("Writing 0 should report absent")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !receive(t, ch) {
		t.Fatal("Writing 1 should report present")
	}

	cancel()
	waitClosed(t, ch)
}

func TestJackWatcherMissingDir(t *testing.T) {
	w := JackWatcher{Path: filepath.Join(t.TempDir(), "nope", "jack")}
	if _, err := w.Watch(context.Background()); err == nil {
		t.Error("Expected an error when the directory does not exist")
	}
	if _, err := (JackWatcher{}).Watch(context.Background()); err == nil {
		t.Error("Expected an error without a path")
	}
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig("", 0, true).(Static); !ok {
		t.Error("assume_present should give a static source")
	}
	if w, ok := FromConfig("/run/jack", time.Second, false).(JackWatcher); !ok || w.Path != "/run/jack" {
		t.Error("A jack path should give a watcher")
	}
	if _, ok := FromConfig("", 0, false).(Probe); !ok {
		t.Error("No path should fall back to the probe")
	}
}
