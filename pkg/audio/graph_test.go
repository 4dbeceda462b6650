package audio

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

func TestGainStageFollowsVolume(t *testing.T) {
	graph := NewOutputGraphWithBackend(NewMockBackend())

	if got := graph.Gain().DB(); got != GainForVolume(DefaultVolume) {
		t.Errorf("Initial gain = %.1f dB, want default %.1f dB", got, GainForVolume(DefaultVolume))
	}

	tests := []struct {
		volume Volume
		factor float64
	}{
		{VolumeMaximum, 1},
		{Volume90Percent, math.Pow(10, -8.0/20)},
		{VolumeMinimum, 1e-4},
	}

	for _, tt := range tests {
		t.Run(tt.volume.String(), func(t *testing.T) {
			graph.SetVolume(tt.volume)
			if got := graph.Gain().Factor(); math.Abs(got-tt.factor) > 1e-12 {
				t.Errorf("Gain factor = %g, want %g", got, tt.factor)
			}
		})
	}
}

func TestOutputGraphOpensBackendOnce(t *testing.T) {
	var opened atomic.Int32
	mock := NewMockBackend()
	graph := NewOutputGraph(func() (Backend, error) {
		opened.Add(1)
		return mock, nil
	})

	if opened.Load() != 0 {
		t.Fatal("Backend should not open before first use")
	}

	_ = graph.SampleRate()
	_ = graph.Suspend()
	_ = graph.Resume()

	if got := opened.Load(); got != 1 {
		t.Errorf("Expected backend opened once, got %d", got)
	}
}

func TestOutputGraphFallsBackToSilence(t *testing.T) {
	graph := NewOutputGraph(func() (Backend, error) {
		return nil, errors.New("no device")
	})

	player, detach, err := graph.attach(newPCMEncoder(newStretcher(make([][2]float64, 10)), graph.Gain()))
	if err != nil {
		t.Fatalf("Silent fallback should accept players: %v", err)
	}
	player.Play()
	if player.IsPlaying() {
		t.Error("Silent player should finish immediately")
	}
	if graph.Attached() != 1 {
		t.Errorf("Expected 1 attached stream, got %d", graph.Attached())
	}

	_ = detach()
	_ = detach()
	if graph.Attached() != 0 {
		t.Errorf("Expected 0 attached streams after detach, got %d", graph.Attached())
	}
}

func TestOutputGraphSuspendResume(t *testing.T) {
	mock := NewMockBackend()
	graph := NewOutputGraphWithBackend(mock)

	for i := 0; i < 2; i++ {
		if err := graph.Suspend(); err != nil {
			t.Fatalf("Suspend failed: %v", err)
		}
	}
	if !graph.Suspended() || !mock.Suspended() {
		t.Error("Graph and backend should be suspended")
	}

	for i := 0; i < 2; i++ {
		if err := graph.Resume(); err != nil {
			t.Fatalf("Resume failed: %v", err)
		}
	}
	if graph.Suspended() || mock.Suspended() {
		t.Error("Graph and backend should be running")
	}

	if mock.SuspendCount != 1 || mock.ResumeCount != 1 {
		t.Errorf("Expected one suspend and one resume, got %d and %d", mock.SuspendCount, mock.ResumeCount)
	}
}

func TestOutputGraphSuspendCountsOnce(t *testing.T) {
	tests := []struct {
		name      string
		openFirst bool
	}{
		{"suspend opens the backend", false},
		{"backend already open", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened atomic.Int32
			mock := NewMockBackend()
			graph := NewOutputGraph(func() (Backend, error) {
				opened.Add(1)
				return mock, nil
			})
			if tt.openFirst {
				_ = graph.SampleRate()
			}

			if err := graph.Suspend(); err != nil {
				t.Fatalf("Suspend failed: %v", err)
			}
			if mock.SuspendCount != 1 || !mock.Suspended() {
				t.Errorf("Backend suspended %d times, want once", mock.SuspendCount)
			}
			if err := graph.Resume(); err != nil {
				t.Fatalf("Resume failed: %v", err)
			}
			if mock.ResumeCount != 1 || mock.Suspended() {
				t.Errorf("Backend resumed %d times, want once", mock.ResumeCount)
			}
			if got := opened.Load(); got != 1 {
				t.Errorf("Backend opened %d times, want once", got)
			}
		})
	}
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in      string
		want    BackendType
		wantErr bool
	}{
		{"", BackendAuto, false},
		{"auto", BackendAuto, false},
		{"oto", BackendOto, false},
		{"null", BackendNull, false},
		{"pulse", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackendType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenNullBackend(t *testing.T) {
	b, err := OpenBackend(BackendNull, DefaultBackendOptions())
	if err != nil {
		t.Fatalf("OpenBackend(null) failed: %v", err)
	}
	if b.SampleRate() != SampleRate {
		t.Errorf("Expected sample rate %d, got %d", SampleRate, b.SampleRate())
	}
}
