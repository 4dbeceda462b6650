package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ClipFormat is the container format of a clip payload.
type ClipFormat string

const (
	FormatWAV     ClipFormat = "wav"
	FormatMP3     ClipFormat = "mp3"
	FormatUnknown ClipFormat = "unknown"
)

// resampleQuality trades CPU for aliasing; 4 is beep's usual choice for
// speech.
const resampleQuality = 4

// SniffFormat identifies a payload by its magic bytes.
func SniffFormat(data []byte) ClipFormat {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// decodeClip decodes a payload into stereo frames at sampleRate.
func decodeClip(data []byte, sampleRate int) ([][2]float64, error) {
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch SniffFormat(data) {
	case FormatWAV:
		stream, format, err = wav.Decode(bytes.NewReader(data))
	case FormatMP3:
		stream, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClip, err)
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if int(format.SampleRate) != sampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), stream)
	}

	frames := make([][2]float64, 0, stream.Len())
	buf := make([][2]float64, 512)
	for {
		n, ok := src.Stream(buf)
		frames = append(frames, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClip, err)
	}
	if len(frames) == 0 {
		return nil, ErrEmptyClip
	}
	return frames, nil
}
