package audio

import (
	"math"
	"sync/atomic"
)

// Overlap-add grain geometry. Hann windows at 50% overlap sum to one, so a
// steady signal passes through at unity gain whatever the ratio.
const (
	grainSize = 1024
	grainHop  = grainSize / 2
)

var hannWindow = func() [grainSize]float64 {
	var w [grainSize]float64
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/grainSize)
	}
	return w
}()

// stretcher is a beep.Streamer that plays decoded frames faster or slower
// without shifting pitch. Grains are read from the input every
// grainHop*ratio frames and laid down every grainHop frames. The ratio is
// atomic so the rate can change while the audio thread is pulling.
type stretcher struct {
	frames [][2]float64
	ratio  atomic.Uint64

	inPos  float64
	acc    [grainSize][2]float64
	out    [grainHop][2]float64
	outPos int
	outLen int
	done   bool
}

func newStretcher(frames [][2]float64) *stretcher {
	s := &stretcher{
		frames: frames,
		inPos:  -grainHop,
	}
	s.SetRatio(1)
	// The first hop is all lead-in silence.
	s.nextGrain()
	s.outPos = s.outLen
	return s
}

// SetRatio sets the speed factor; 2 plays twice as fast.
func (s *stretcher) SetRatio(r float64) {
	if r <= 0 {
		r = 1
	}
	s.ratio.Store(math.Float64bits(r))
}

// Ratio returns the current speed factor.
func (s *stretcher) Ratio() float64 {
	return math.Float64frombits(s.ratio.Load())
}

func (s *stretcher) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		if s.outPos == s.outLen && !s.nextGrain() {
			break
		}
		c := copy(samples[n:], s.out[s.outPos:s.outLen])
		n += c
		s.outPos += c
	}
	return n, n > 0
}

func (s *stretcher) Err() error {
	return nil
}

// nextGrain adds one windowed grain to the accumulator and moves the
// completed half into the output buffer.
func (s *stretcher) nextGrain() bool {
	if s.done {
		return false
	}

	if int(s.inPos) >= len(s.frames) {
		// Flush the fading tail of the last grain.
		s.done = true
		copy(s.out[:], s.acc[:grainHop])
		s.outPos, s.outLen = 0, grainHop
		return true
	}

	start := int(math.Floor(s.inPos))
	for i := 0; i < grainSize; i++ {
		j := start + i
		if j < 0 || j >= len(s.frames) {
			continue
		}
		w := hannWindow[i]
		s.acc[i][0] += s.frames[j][0] * w
		s.acc[i][1] += s.frames[j][1] * w
	}

	copy(s.out[:], s.acc[:grainHop])
	copy(s.acc[:], s.acc[grainHop:])
	for i := grainHop; i < grainSize; i++ {
		s.acc[i] = [2]float64{}
	}
	s.outPos, s.outLen = 0, grainHop
	s.inPos += grainHop * s.Ratio()
	return true
}
