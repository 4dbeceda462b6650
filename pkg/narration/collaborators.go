package narration

import (
	"context"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// NodeID identifies an element of the UI tree.
type NodeID string

// Unit is a speakable element: a translation key and, when the element
// forces one, the language it is spoken in.
type Unit struct {
	Key          string `yaml:"key"`
	LanguageCode string `yaml:"languageCode,omitempty"`
}

// Tree is the UI layer's view of its element tree.
type Tree interface {
	// Attached reports whether id is still part of the tree.
	Attached(id NodeID) bool

	// SpeakableUnits returns the tagged descendants of id, id included,
	// in document order.
	SpeakableUnits(id NodeID) []Unit
}

// FocusReleaser is implemented by trees that can drop lingering
// assistive-technology focus before a new target is highlighted.
type FocusReleaser interface {
	ReleaseFocus()
}

// Lookup maps a translation key to the clips that speak it.
type Lookup interface {
	// ClipIDs returns the clip ids for key in languageCode, in speech
	// order. ok is false when the key has no audio.
	ClipIDs(key, languageCode string) (ids []string, ok bool)
}

// Publisher receives resolved queues; *audio.QueuePlayer satisfies it.
type Publisher interface {
	SetQueue(ctx context.Context, refs []audio.ClipReference, onDone func()) error
	Clear(ctx context.Context) error
}

// Gate reports whether audio is enabled; *settings.Controls satisfies it.
type Gate interface {
	Enabled() bool
}
