package audio

import (
	"context"
	"fmt"
)

// ClipReference identifies one pre-recorded clip in one language.
type ClipReference struct {
	ClipID       string `json:"clipId" yaml:"clipId"`
	LanguageCode string `json:"languageCode" yaml:"languageCode"`
}

func (r ClipReference) String() string {
	return fmt.Sprintf("%s/%s", r.LanguageCode, r.ClipID)
}

// Clip is an encoded clip payload, WAV or MP3.
type Clip struct {
	ID           string
	LanguageCode string
	Data         []byte
}

// Reference returns the reference this clip satisfies.
func (c Clip) Reference() ClipReference {
	return ClipReference{ClipID: c.ID, LanguageCode: c.LanguageCode}
}

// ClipSource fetches clip payloads. Clips are returned in the order of ids;
// an id with no payload fails the call with ErrClipNotFound.
type ClipSource interface {
	FetchClips(ctx context.Context, ids []string, languageCode string) ([]Clip, error)
}

// ClipSourceFunc adapts a function to ClipSource.
type ClipSourceFunc func(ctx context.Context, ids []string, languageCode string) ([]Clip, error)

func (f ClipSourceFunc) FetchClips(ctx context.Context, ids []string, languageCode string) ([]Clip, error) {
	return f(ctx, ids, languageCode)
}

// EqualQueues reports whether a and b reference the same clips in the same
// order.
func EqualQueues(a, b []ClipReference) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
