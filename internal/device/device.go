// Package device reports whether headphones are connected. Every source
// delivers presence values on a channel that Controls.TrackDevice consumes.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Source produces headphone presence values. The channel closes when ctx
// ends.
type Source interface {
	Watch(ctx context.Context) (<-chan bool, error)
}

// Static always reports the same presence.
type Static bool

// Watch sends the value once.
func (s Static) Watch(ctx context.Context) (<-chan bool, error) {
	ch := make(chan bool, 1)
	ch <- bool(s)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// Probe reports whether the platform has an audio output device, checked
// once at start.
type Probe struct {
	Detect func() *audio.PlatformInfo
}

// Watch sends the probe result once.
func (p Probe) Watch(ctx context.Context) (<-chan bool, error) {
	detect := p.Detect
	if detect == nil {
		detect = audio.DetectPlatform
	}
	info := detect()
	log.Debug("Probed audio device", "info", info.String())
	return Static(info.HasAudioDevice).Watch(ctx)
}

// JackWatcher follows a jack-state file such as a sysfs switch or a file
// maintained by a udev rule. The file reads "1" or "0"; a file with other
// content counts as present and a missing file as absent.
type JackWatcher struct {
	Path string
	// PollInterval adds polling for files that do not emit inotify
	// events, such as sysfs attributes. Zero disables polling.
	PollInterval time.Duration
}

// ReadJack returns the presence recorded in path.
func ReadJack(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch string(bytes.TrimSpace(data)) {
	case "0", "false", "off", "unplugged":
		return false, nil
	default:
		return true, nil
	}
}

// Watch sends the current state, then every change.
func (j JackWatcher) Watch(ctx context.Context) (<-chan bool, error) {
	if j.Path == "" {
		return nil, errors.New("device: jack path is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(j.Path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("error watching %s: %w", dir, err)
	}
	log.Debug("fsnotify watching jack state", "path", j.Path)

	present, err := ReadJack(j.Path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ch := make(chan bool, 1)
	ch <- present

	go j.loop(ctx, watcher, ch, present)
	return ch, nil
}

func (j JackWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, ch chan<- bool, last bool) {
	defer close(ch)
	defer watcher.Close() //nolint:errcheck

	var tick <-chan time.Time
	if j.PollInterval > 0 {
		ticker := time.NewTicker(j.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	check := func() bool {
		present, err := ReadJack(j.Path)
		if err != nil {
			log.Debug("Unable to read jack state", "path", j.Path, "error", err)
			return true
		}
		if present == last {
			return true
		}
		last = present
		log.Debug("Headphone presence changed", "present", present)
		select {
		case ch <- present:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(j.Path) {
				continue
			}
			if !check() {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "path", j.Path, "error", err)
		case <-tick:
			if !check() {
				return
			}
		}
	}
}

// FromConfig picks the source for a jack path: the watcher when a path is
// set, the platform probe otherwise, or a fixed present value when
// assumePresent is set.
func FromConfig(jackPath string, poll time.Duration, assumePresent bool) Source {
	switch {
	case assumePresent:
		return Static(true)
	case jackPath != "":
		return JackWatcher{Path: jackPath, PollInterval: poll}
	default:
		return Probe{}
	}
}
