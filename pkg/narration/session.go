// Package narration turns UI activation into speech. A Session tracks the
// element the voter last activated, resolves its speakable units to clips
// in the current language and hands the resulting queue to the queue
// player.
package narration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// ErrSessionClosed is returned when posting to a session whose Run loop
// has exited.
var ErrSessionClosed = errors.New("narration session is not running")

// State is where the session is in its narration cycle.
type State int

const (
	// StateNoTarget means nothing is being narrated.
	StateNoTarget State = iota
	// StateResolving means a target was activated and its clips are being
	// looked up.
	StateResolving
	// StateReady means the target's queue was published.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNoTarget:
		return "no target"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Trigger is how a target was activated.
type Trigger int

const (
	TriggerPointer Trigger = iota
	TriggerFocus
)

func (t Trigger) String() string {
	if t == TriggerFocus {
		return "focus"
	}
	return "pointer"
}

// Config wires a session to its collaborators.
type Config struct {
	Tree     Tree
	Lookup   Lookup
	Queue    Publisher
	Settings Gate
	// Language is the initial session language, e.g. "en".
	Language string
	// OnQueueDone, if set, runs after a published queue plays to the end.
	OnQueueDone func(target NodeID)
}

type eventKind int

const (
	evActivate eventKind = iota
	evBlur
	evLanguage
	evReplay
	evAnnounce
	evAudioEnabled
	evFlush
)

type event struct {
	kind    eventKind
	node    NodeID
	trigger Trigger
	lang    string
	keys    []string
	enabled bool
	done    chan struct{}
}

type resolveRequest struct {
	seq    uint64
	target NodeID
}

// Session is the narration state machine. All transitions happen on the
// goroutine running Run; the exported methods post events to it.
type Session struct {
	cfg    Config
	events chan event
	exited chan struct{}

	// Owned by the Run goroutine.
	language string
	target   NodeID
	trigger  Trigger
	seq      uint64
	pending  *resolveRequest
	ctx      context.Context

	mu        sync.Mutex
	state     State
	published []audio.ClipReference
	snapshot  NodeID
}

// New creates a session. Call Run to start processing events.
func New(cfg Config) (*Session, error) {
	if cfg.Tree == nil || cfg.Lookup == nil || cfg.Queue == nil || cfg.Settings == nil {
		return nil, errors.New("narration: tree, lookup, queue and settings are required")
	}

	lang := "en"
	if cfg.Language != "" {
		tag, err := CanonicalLanguage(cfg.Language)
		if err != nil {
			return nil, err
		}
		lang = tag
	}

	return &Session{
		cfg:      cfg,
		events:   make(chan event, 64),
		exited:   make(chan struct{}),
		language: lang,
	}, nil
}

// CanonicalLanguage normalizes a BCP 47 tag, e.g. "es-us" to "es-US".
func CanonicalLanguage(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", code, err)
	}
	return tag.String(), nil
}

// Run processes events until ctx is cancelled. A resolution scheduled by an
// activation runs only after events already waiting have been handled, so
// the previous target is always cleared first.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.exited)
	s.ctx = ctx

	for {
		if s.pending != nil {
			select {
			case ev := <-s.events:
				s.handle(ev)
				continue
			default:
			}
			req := s.pending
			s.pending = nil
			s.resolve(req)
			continue
		}

		select {
		case <-ctx.Done():
			if err := s.cfg.Queue.Clear(context.Background()); err != nil {
				log.Debug("Failed to clear narration queue", "error", err)
			}
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) post(ev event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.exited:
		return ErrSessionClosed
	}
}

// Activate reports a pointer activation (click or tap) on id.
func (s *Session) Activate(id NodeID) error {
	return s.post(event{kind: evActivate, node: id, trigger: TriggerPointer})
}

// Focus reports that id received keyboard focus.
func (s *Session) Focus(id NodeID) error {
	return s.post(event{kind: evActivate, node: id, trigger: TriggerFocus})
}

// Blur reports that id lost focus or was removed from the tree. It stops
// narration if id is the current target.
func (s *Session) Blur(id NodeID) error {
	return s.post(event{kind: evBlur, node: id})
}

// SetLanguage switches the session language and replays the current
// target in it.
func (s *Session) SetLanguage(code string) error {
	lang, err := CanonicalLanguage(code)
	if err != nil {
		return err
	}
	return s.post(event{kind: evLanguage, lang: lang})
}

// Replay re-announces the current target.
func (s *Session) Replay() error {
	return s.post(event{kind: evReplay})
}

// Announce speaks fixed translation keys in the session language,
// bypassing the tree. Used for volume and rate feedback.
func (s *Session) Announce(keys ...string) error {
	return s.post(event{kind: evAnnounce, keys: append([]string(nil), keys...)})
}

// SetAudioEnabled tells the session audio was switched on or off.
// Switching off stops any narration in progress.
func (s *Session) SetAudioEnabled(enabled bool) error {
	return s.post(event{kind: evAudioEnabled, enabled: enabled})
}

// Flush waits until every event posted before it, and any resolution they
// scheduled, has been handled.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := s.post(event{kind: evFlush, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-s.exited:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the session state and current target.
func (s *Session) State() (State, NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.snapshot
}

// Published returns the last queue the session published.
func (s *Session) Published() []audio.ClipReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audio.ClipReference(nil), s.published...)
}

// Language returns the session language. Only safe to use for display.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.snapshot = s.target
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evActivate:
		s.activate(ev.node, ev.trigger)

	case evBlur:
		if ev.node != s.target || s.target == "" {
			return
		}
		log.Debug("Narration target blurred", "target", ev.node)
		s.clearTarget()

	case evLanguage:
		s.mu.Lock()
		changed := s.language != ev.lang
		s.language = ev.lang
		s.mu.Unlock()
		if changed && s.target != "" {
			log.Debug("Language changed, replaying target", "language", ev.lang, "target", s.target)
			s.activate(s.target, s.trigger)
		}

	case evReplay:
		if s.target != "" {
			s.activate(s.target, s.trigger)
		}

	case evAnnounce:
		s.announce(ev.keys)

	case evAudioEnabled:
		if !ev.enabled {
			s.pending = nil
			s.publish(nil)
		}

	case evFlush:
		if s.pending != nil {
			req := s.pending
			s.pending = nil
			s.resolve(req)
		}
		close(ev.done)
	}
}

// activate clears the previous target and schedules resolution of id.
func (s *Session) activate(id NodeID, trigger Trigger) {
	if !s.cfg.Settings.Enabled() {
		log.Debug("Audio disabled, ignoring activation", "target", id)
		return
	}
	if !s.cfg.Tree.Attached(id) {
		log.Debug("Ignoring activation of detached element", "target", id)
		if id == s.target {
			s.clearTarget()
		}
		return
	}

	if releaser, ok := s.cfg.Tree.(FocusReleaser); ok {
		releaser.ReleaseFocus()
	}
	s.publish(nil)

	s.seq++
	s.target, s.trigger = id, trigger
	s.pending = &resolveRequest{seq: s.seq, target: id}
	s.setState(StateResolving)
	log.Debug("Narration target activated", "target", id, "trigger", trigger)
}

func (s *Session) clearTarget() {
	s.seq++
	s.pending = nil
	s.target = ""
	s.publish(nil)
	s.setState(StateNoTarget)
}

func (s *Session) resolve(req *resolveRequest) {
	if req.seq != s.seq || req.target != s.target {
		return
	}
	if !s.cfg.Settings.Enabled() {
		return
	}
	if !s.cfg.Tree.Attached(req.target) {
		log.Debug("Narration target removed before resolution", "target", req.target)
		s.clearTarget()
		return
	}

	var refs []audio.ClipReference
	for _, unit := range s.cfg.Tree.SpeakableUnits(req.target) {
		lang := s.language
		if unit.LanguageCode != "" {
			lang = unit.LanguageCode
		}
		refs = append(refs, s.lookup(unit.Key, lang)...)
	}

	target := req.target
	s.publishWithDone(refs, func() {
		if s.cfg.OnQueueDone != nil {
			s.cfg.OnQueueDone(target)
		}
	})
	s.setState(StateReady)
	log.Debug("Narration resolved", "target", target, "clips", len(refs), "language", s.language)
}

func (s *Session) announce(keys []string) {
	if !s.cfg.Settings.Enabled() {
		return
	}

	var refs []audio.ClipReference
	for _, key := range keys {
		refs = append(refs, s.lookup(key, s.language)...)
	}
	// Force a restart even if the same announcement is still playing.
	s.publish(nil)
	s.publishWithDone(refs, nil)
}

// lookup resolves one key. Keys without audio contribute nothing.
func (s *Session) lookup(key, lang string) []audio.ClipReference {
	ids, ok := s.cfg.Lookup.ClipIDs(key, lang)
	if !ok || len(ids) == 0 {
		log.Debug("No audio for key", "key", key, "language", lang)
		return nil
	}

	refs := make([]audio.ClipReference, len(ids))
	for i, id := range ids {
		refs[i] = audio.ClipReference{ClipID: id, LanguageCode: lang}
	}
	return refs
}

func (s *Session) publish(refs []audio.ClipReference) {
	s.publishWithDone(refs, nil)
}

func (s *Session) publishWithDone(refs []audio.ClipReference, onDone func()) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if len(refs) == 0 {
		err = s.cfg.Queue.Clear(ctx)
	} else {
		err = s.cfg.Queue.SetQueue(ctx, refs, onDone)
	}
	if err != nil {
		log.Warn("Failed to publish narration queue", "error", err)
	}

	s.mu.Lock()
	s.published = refs
	s.mu.Unlock()
}
