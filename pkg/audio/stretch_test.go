package audio

import (
	"math"
	"testing"
)

func drain(s *stretcher) [][2]float64 {
	var out [][2]float64
	buf := make([][2]float64, 700)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

// sineFrames has a period of 64 frames, which divides every hop used
// below, so grains line up in phase.
func sineFrames(n int) [][2]float64 {
	frames := make([][2]float64, n)
	for i := range frames {
		v := 0.5 * math.Sin(2*math.Pi*float64(i)/64)
		frames[i] = [2]float64{v, v}
	}
	return frames
}

func upwardCrossings(frames [][2]float64) int {
	count := 0
	for i := 1; i < len(frames); i++ {
		if frames[i-1][0] < 0 && frames[i][0] >= 0 {
			count++
		}
	}
	return count
}

func TestStretcherLength(t *testing.T) {
	const input = 44100

	for _, ratio := range []float64{0.5, 1, 1.5, 2} {
		s := newStretcher(sineFrames(input))
		s.SetRatio(ratio)
		got := len(drain(s))
		want := float64(input) / ratio
		if math.Abs(float64(got)-want) > 2*grainSize {
			t.Errorf("ratio %.2f: output %d frames, want about %.0f", ratio, got, want)
		}
	}
}

func TestStretcherUnityGain(t *testing.T) {
	for _, ratio := range []float64{0.5, 1, 2} {
		s := newStretcher(constantFrames(20000, 0.25))
		s.SetRatio(ratio)
		out := drain(s)

		// Skip the fade-in and fade-out grains.
		for i := grainSize; i < len(out)-2*grainSize; i++ {
			if math.Abs(out[i][0]-0.25) > 1e-9 {
				t.Fatalf("ratio %.2f: frame %d = %f, want 0.25", ratio, i, out[i][0])
			}
		}
	}
}

func TestStretcherPreservesPitch(t *testing.T) {
	for _, ratio := range []float64{0.5, 2} {
		s := newStretcher(sineFrames(64 * 1000))
		s.SetRatio(ratio)
		out := drain(s)

		interior := out[grainSize : len(out)-2*grainSize]
		got := float64(upwardCrossings(interior)) / float64(len(interior))
		want := 1.0 / 64
		if math.Abs(got-want)/want > 0.05 {
			t.Errorf("ratio %.2f: %.5f cycles per frame, want %.5f", ratio, got, want)
		}
	}
}

func TestStretcherRateChangeMidStream(t *testing.T) {
	s := newStretcher(constantFrames(44100, 0.1))
	buf := make([][2]float64, 4410)
	if n, ok := s.Stream(buf); !ok || n != len(buf) {
		t.Fatalf("Stream = %d, %v", n, ok)
	}

	s.SetRatio(2)
	if s.Ratio() != 2 {
		t.Fatalf("Ratio = %f, want 2", s.Ratio())
	}

	rest := len(drain(s))
	want := float64(44100-4410) / 2
	if math.Abs(float64(rest)-want) > 2*grainSize {
		t.Errorf("Remaining output %d frames, want about %.0f", rest, want)
	}
}
