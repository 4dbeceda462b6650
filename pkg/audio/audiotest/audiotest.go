// Package audiotest provides clip payloads and polling helpers for tests
// that drive the audio engine against the mock backend.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// ToneWAV returns a mono 16-bit PCM WAV file holding a sine tone.
func ToneWAV(frames, sampleRate int, freq float64) []byte {
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return encodeWAV(samples, sampleRate)
}

// ConstantWAV returns a mono 16-bit PCM WAV file holding a DC level in
// [-1, 1].
func ConstantWAV(frames, sampleRate int, level float64) []byte {
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(level * 32767)
	}
	return encodeWAV(samples, sampleRate)
}

func encodeWAV(samples []int16, sampleRate int) []byte {
	dataLen := uint32(len(samples) * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// WaitFor polls cond until it holds or two seconds pass.
func WaitFor(tb testing.TB, what string, cond func() bool) {
	tb.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	tb.Fatalf("Timed out waiting for %s", what)
}

// Never fails if cond becomes true within d.
func Never(tb testing.TB, what string, d time.Duration, cond func() bool) {
	tb.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			tb.Fatalf("Unexpected %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
