package audio

import (
	"io"

	"github.com/gopxl/beep/v2"
)

// pcmEncoder adapts a beep.Streamer to the signed 16-bit little-endian
// stereo stream the backend consumes, applying the shared gain stage to
// every frame as it is pulled.
type pcmEncoder struct {
	src     beep.Streamer
	gain    *GainStage
	frames  [][2]float64
	drained bool
}

func newPCMEncoder(src beep.Streamer, gain *GainStage) *pcmEncoder {
	return &pcmEncoder{src: src, gain: gain}
}

// Read fills p with whole frames. It returns io.EOF once the source is
// drained.
func (e *pcmEncoder) Read(p []byte) (int, error) {
	if e.drained {
		return 0, io.EOF
	}

	want := len(p) / BytesPerFrame
	if want == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(e.frames) < want {
		e.frames = make([][2]float64, want)
	}
	frames := e.frames[:want]

	n, ok := e.src.Stream(frames)
	if !ok || n == 0 {
		e.drained = true
		if err := e.src.Err(); err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
	}

	factor := e.gain.Factor()
	for i := 0; i < n; i++ {
		for c := 0; c < Channels; c++ {
			v := int16(clampSample(frames[i][c]*factor) * 32767)
			off := i*BytesPerFrame + c*2
			p[off] = byte(v)
			p[off+1] = byte(v >> 8)
		}
	}
	return n * BytesPerFrame, nil
}

func clampSample(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
