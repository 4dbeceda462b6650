package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// sliceStreamer streams a fixed set of frames.
type sliceStreamer struct {
	frames [][2]float64
	pos    int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.frames) {
		return 0, false
	}
	n := copy(samples, s.frames[s.pos:])
	s.pos += n
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func constantFrames(n int, level float64) [][2]float64 {
	frames := make([][2]float64, n)
	for i := range frames {
		frames[i] = [2]float64{level, level}
	}
	return frames
}

func TestPCMEncoderAppliesGain(t *testing.T) {
	gain := newGainStage(0)
	enc := newPCMEncoder(&sliceStreamer{frames: constantFrames(8, 0.5)}, gain)

	buf := make([]byte, 4*BytesPerFrame)
	n, err := enc.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf)); got != 16383 {
		t.Errorf("Expected sample 16383 at 0 dB, got %d", got)
	}

	gain.SetDB(-6.020599913279624)
	if _, err := enc.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got < 8190 || got > 8192 {
		t.Errorf("Expected right channel near 8191 at -6 dB, got %d", got)
	}

	if _, err := enc.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after drain, got %v", err)
	}
}

func TestPCMEncoderClips(t *testing.T) {
	enc := newPCMEncoder(&sliceStreamer{frames: constantFrames(1, -3)}, newGainStage(0))

	buf := make([]byte, BytesPerFrame)
	if _, err := enc.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(buf)); got != -32767 {
		t.Errorf("Expected clipped sample -32767, got %d", got)
	}
}

func TestPCMEncoderShortBuffer(t *testing.T) {
	enc := newPCMEncoder(&sliceStreamer{frames: constantFrames(1, 0)}, newGainStage(0))
	if _, err := enc.Read(make([]byte, 3)); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer, got %v", err)
	}
}
