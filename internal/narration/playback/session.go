package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"booknest/internal/domain/reader"
	"booknest/internal/narration/tts"
)

// DefaultGraceDelay is the pause before a page restarts with a new voice.
const DefaultGraceDelay = 100 * time.Millisecond

type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	State    State
	Page     reader.Page
	Profile  tts.VoiceProfile
	Provider string
}

// Session narrates one page at a time. At most one narration is in flight
// or sounding; a result that arrives after the session has moved on is
// dropped.
type Session struct {
	narrator Narrator
	output   Output
	speaker  Speaker
	language string
	grace    time.Duration
	listener func(Snapshot)

	mu       sync.Mutex
	state    State
	page     reader.Page
	profile  tts.VoiceProfile
	provider string
	token    uuid.UUID
	cancel   context.CancelFunc
	active   any
	idle     chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLanguage sets the catalog language label sent with every request.
func WithLanguage(label string) Option {
	return func(s *Session) { s.language = label }
}

// WithGraceDelay sets the delay before ChangeVoice restarts the page.
func WithGraceDelay(d time.Duration) Option {
	return func(s *Session) { s.grace = d }
}

// WithListener registers a callback for every state change. It is called
// with the session lock held and must not call back into the session.
func WithListener(fn func(Snapshot)) Option {
	return func(s *Session) { s.listener = fn }
}

func NewSession(narrator Narrator, output Output, speaker Speaker, opts ...Option) *Session {
	idle := make(chan struct{})
	close(idle)

	s := &Session{
		narrator: narrator,
		output:   output,
		speaker:  speaker,
		grace:    DefaultGraceDelay,
		profile:  tts.DefaultProfile,
		idle:     idle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetLanguage changes the language label for subsequent narrations.
func (s *Session) SetLanguage(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = label
}

// Play stops whatever is playing, narrates page with profile and starts the
// matching output. It returns once audio has started, when the result was
// superseded by a later call, or with the error of a chain that could not
// produce anything.
func (s *Session) Play(ctx context.Context, page reader.Page, profile tts.VoiceProfile) error {
	s.mu.Lock()
	s.stop()
	token := uuid.New()
	narrateCtx, cancel := context.WithCancel(ctx)
	s.token = token
	s.cancel = cancel
	s.page = page
	s.profile = profile
	s.provider = ""
	req := tts.Request{Text: page.Text, Profile: profile, Language: s.language}
	s.setState(Loading)
	s.mu.Unlock()

	n, err := s.narrator.Narrate(narrateCtx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		logrus.WithField("page", page.Index).Debug("Discarding superseded narration")
		return nil
	}
	s.cancel = nil
	cancel()

	if err != nil {
		s.setState(Idle)
		return fmt.Errorf("narration failed: %w", err)
	}

	if err := s.start(token, n); err != nil {
		s.setState(Idle)
		return err
	}
	s.provider = n.Provider
	s.active = s.sink(n)
	s.setState(Playing)

	logrus.WithFields(logrus.Fields{
		"page":     page.Index,
		"provider": n.Provider,
		"format":   n.Format,
	}).Debug("Playback started")
	return nil
}

func (s *Session) start(token uuid.UUID, n *tts.Narration) error {
	done := func() { s.finished(token) }

	switch n.Format {
	case tts.FormatSpeech:
		if s.speaker == nil {
			return ErrNoSpeaker
		}
		if n.Speech == nil {
			return fmt.Errorf("%s returned speech without an utterance", n.Provider)
		}
		if err := s.speaker.Speak(*n.Speech, done); err != nil {
			return fmt.Errorf("failed to speak: %w", err)
		}
	case tts.FormatMP3, tts.FormatWAV:
		if s.output == nil {
			return fmt.Errorf("no audio output for %s", n.Format)
		}
		if err := s.output.Play(n, done); err != nil {
			return fmt.Errorf("failed to play audio: %w", err)
		}
	default:
		return fmt.Errorf("unsupported narration format %q", n.Format)
	}
	return nil
}

func (s *Session) sink(n *tts.Narration) any {
	if n.Format == tts.FormatSpeech {
		return s.speaker
	}
	return s.output
}

// finished returns the session to Idle when token is still current.
func (s *Session) finished(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token || (s.state != Playing && s.state != Paused) {
		return
	}
	s.token = uuid.Nil
	s.active = nil
	s.setState(Idle)
}

// Stop cancels any in-flight narration and silences both outputs. Calling it
// when nothing is playing is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

// stop must be called with s.mu held.
func (s *Session) stop() {
	if s.state == Idle && s.cancel == nil {
		return
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.token = uuid.Nil
	s.active = nil

	if s.output != nil {
		if err := s.output.Stop(); err != nil {
			logrus.WithError(err).Warn("Failed to stop audio output")
		}
	}
	if s.speaker != nil {
		if err := s.speaker.Stop(); err != nil {
			logrus.WithError(err).Warn("Failed to stop speech engine")
		}
	}
	s.setState(Idle)
}

// Pause pauses the sounding output when it supports pausing.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return nil
	}
	p, ok := s.active.(Pauser)
	if !ok {
		return fmt.Errorf("output cannot pause")
	}
	if err := p.Pause(); err != nil {
		return err
	}
	s.setState(Paused)
	return nil
}

// Resume continues a paused output.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Paused {
		return nil
	}
	p, ok := s.active.(Pauser)
	if !ok {
		return fmt.Errorf("output cannot resume")
	}
	if err := p.Resume(); err != nil {
		return err
	}
	s.setState(Playing)
	return nil
}

// ChangeVoice switches the profile. When the session was loading or
// playing, the same page restarts after the grace delay unless something
// else started in the meantime.
func (s *Session) ChangeVoice(ctx context.Context, profile tts.VoiceProfile) error {
	s.mu.Lock()
	wasActive := s.state != Idle
	page := s.page
	s.mu.Unlock()

	s.Stop()

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()

	if !wasActive {
		return nil
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	restart := s.state == Idle && s.page == page
	s.mu.Unlock()
	if !restart {
		return nil
	}
	return s.Play(ctx, page, profile)
}

// ChangePage stops playback and then moves to page.
func (s *Session) ChangePage(page reader.Page) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Wait blocks until the session is idle or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{State: s.state, Page: s.page, Profile: s.profile, Provider: s.provider}
}

// setState must be called with s.mu held.
func (s *Session) setState(st State) {
	if st == s.state {
		return
	}
	if s.state == Idle {
		s.idle = make(chan struct{})
	}
	if st == Idle {
		close(s.idle)
	}
	s.state = st
	if s.listener != nil {
		s.listener(s.snapshot())
	}
}
