package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknest/internal/domain/reader"
	"booknest/internal/narration/tts"
)

// scriptedNarrator answers requests by page text. A text with a gate
// blocks until the gate is closed, ignoring cancellation like a slow
// provider would.
type scriptedNarrator struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	err     error
	reqs    []tts.Request
}

func newScriptedNarrator() *scriptedNarrator {
	return &scriptedNarrator{gates: map[string]chan struct{}{}, started: make(chan string, 10)}
}

func (n *scriptedNarrator) gate(text string) chan struct{} {
	ch := make(chan struct{})
	n.mu.Lock()
	n.gates[text] = ch
	n.mu.Unlock()
	return ch
}

func (n *scriptedNarrator) Narrate(ctx context.Context, req tts.Request) (*tts.Narration, error) {
	n.mu.Lock()
	n.reqs = append(n.reqs, req)
	gate := n.gates[req.Text]
	err := n.err
	n.mu.Unlock()

	n.started <- req.Text
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &tts.Narration{Provider: "fake", Format: tts.FormatMP3, Data: []byte(req.Text)}, nil
}

type fakeOutput struct {
	mu     sync.Mutex
	played []string
	stops  int
	done   func()
	failed error
	paused bool
}

func (o *fakeOutput) Play(n *tts.Narration, done func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failed != nil {
		return o.failed
	}
	o.played = append(o.played, string(n.Data))
	o.done = done
	return nil
}

func (o *fakeOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	return nil
}

func (o *fakeOutput) Pause() error  { o.paused = true; return nil }
func (o *fakeOutput) Resume() error { o.paused = false; return nil }

// finish simulates the end of the audio.
func (o *fakeOutput) finish() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	done()
}

func (o *fakeOutput) playedTexts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.played...)
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []tts.Utterance
	stops  int
}

func (s *fakeSpeaker) Speak(u tts.Utterance, done func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, u)
	return nil
}

func (s *fakeSpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

var (
	page1 = reader.Page{Index: 0, Text: "page one"}
	page2 = reader.Page{Index: 1, Text: "page two"}
)

func TestSession_PlayLifecycle(t *testing.T) {
	narrator := newScriptedNarrator()
	out := &fakeOutput{}

	var states []State
	s := NewSession(narrator, out, &fakeSpeaker{}, WithLanguage("English"), WithListener(func(sn Snapshot) {
		states = append(states, sn.State)
	}))

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	assert.Equal(t, Playing, s.State())
	assert.Equal(t, []string{"page one"}, out.playedTexts())
	assert.Equal(t, "English", narrator.reqs[0].Language)

	cur := s.Current()
	assert.Equal(t, page1, cur.Page)
	assert.Equal(t, "fake", cur.Provider)

	out.finish()
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []State{Loading, Playing, Idle}, states)
}

func TestSession_StopTwiceIsNoop(t *testing.T) {
	out := &fakeOutput{}
	s := NewSession(newScriptedNarrator(), out, &fakeSpeaker{})

	s.Stop()
	s.Stop()
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, out.stops)

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	s.Stop()
	s.Stop()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, out.stops)
}

func TestSession_SupersededNarrationNeverSounds(t *testing.T) {
	narrator := newScriptedNarrator()
	release := narrator.gate(page1.Text)
	out := &fakeOutput{}
	s := NewSession(narrator, out, &fakeSpeaker{})

	first := make(chan error, 1)
	go func() { first <- s.Play(context.Background(), page1, tts.DefaultProfile) }()

	assert.Equal(t, page1.Text, <-narrator.started)
	assert.Equal(t, Loading, s.State())

	require.NoError(t, s.Play(context.Background(), page2, tts.DefaultProfile))
	assert.Equal(t, page2.Text, <-narrator.started)

	close(release)
	require.NoError(t, <-first)

	assert.Equal(t, []string{"page two"}, out.playedTexts())
	assert.Equal(t, page2, s.Current().Page)
	assert.Equal(t, Playing, s.State())
}

func TestSession_StopWhileLoading(t *testing.T) {
	narrator := newScriptedNarrator()
	release := narrator.gate(page1.Text)
	out := &fakeOutput{}
	s := NewSession(narrator, out, &fakeSpeaker{})

	result := make(chan error, 1)
	go func() { result <- s.Play(context.Background(), page1, tts.DefaultProfile) }()
	<-narrator.started

	s.Stop()
	assert.Equal(t, Idle, s.State())

	close(release)
	require.NoError(t, <-result)
	assert.Empty(t, out.playedTexts())
	assert.Equal(t, Idle, s.State())
}

func TestSession_LateCompletionIgnored(t *testing.T) {
	out := &fakeOutput{}
	s := NewSession(newScriptedNarrator(), out, &fakeSpeaker{})

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	staleDone := out.done
	require.NoError(t, s.Play(context.Background(), page2, tts.DefaultProfile))

	staleDone()
	assert.Equal(t, Playing, s.State(), "completion of page one must not end page two")
}

func TestSession_SpeechGoesToSpeaker(t *testing.T) {
	chain := tts.NewProviderChain(tts.NewLocal())
	out := &fakeOutput{}
	spk := &fakeSpeaker{}
	s := NewSession(chain, out, spk, WithLanguage("Português"))

	require.NoError(t, s.Play(context.Background(), page1, tts.VoiceProfile{Persona: tts.PersonaChild, Tone: tts.ToneDefault}))

	require.Len(t, spk.spoken, 1)
	assert.Equal(t, "page one", spk.spoken[0].Text)
	assert.Equal(t, "pt-BR", spk.spoken[0].Language)
	assert.InDelta(t, 1.8, spk.spoken[0].Pitch, 1e-9)
	assert.Empty(t, out.playedTexts())
	assert.Equal(t, "local", s.Current().Provider)
}

func TestSession_Failures(t *testing.T) {
	t.Run("chain exhausted", func(t *testing.T) {
		narrator := newScriptedNarrator()
		narrator.err = tts.ErrAllDeclined
		s := NewSession(narrator, &fakeOutput{}, &fakeSpeaker{})

		err := s.Play(context.Background(), page1, tts.DefaultProfile)
		assert.ErrorIs(t, err, tts.ErrAllDeclined)
		assert.Equal(t, Idle, s.State())
	})

	t.Run("output fails", func(t *testing.T) {
		s := NewSession(newScriptedNarrator(), &fakeOutput{failed: errors.New("no device")}, &fakeSpeaker{})

		err := s.Play(context.Background(), page1, tts.DefaultProfile)
		assert.Error(t, err)
		assert.Equal(t, Idle, s.State())
	})

	t.Run("no speaker", func(t *testing.T) {
		s := NewSession(tts.NewProviderChain(tts.NewLocal()), &fakeOutput{}, nil)

		err := s.Play(context.Background(), page1, tts.DefaultProfile)
		assert.ErrorIs(t, err, ErrNoSpeaker)
	})
}

func TestSession_ChangeVoiceRestartsPage(t *testing.T) {
	narrator := newScriptedNarrator()
	out := &fakeOutput{}
	s := NewSession(narrator, out, &fakeSpeaker{}, WithGraceDelay(time.Millisecond))

	require.NoError(t, s.Play(context.Background(), page2, tts.DefaultProfile))
	<-narrator.started

	male := tts.VoiceProfile{Persona: tts.PersonaMale, Tone: "terror"}
	require.NoError(t, s.ChangeVoice(context.Background(), male))
	<-narrator.started

	assert.Equal(t, Playing, s.State())
	assert.Equal(t, male, s.Current().Profile)
	assert.Equal(t, []string{"page two", "page two"}, out.playedTexts())
	assert.Equal(t, male, narrator.reqs[1].Profile)
}

func TestSession_ChangeVoiceWhileIdle(t *testing.T) {
	narrator := newScriptedNarrator()
	s := NewSession(narrator, &fakeOutput{}, &fakeSpeaker{})

	child := tts.VoiceProfile{Persona: tts.PersonaChild, Tone: tts.ToneDefault}
	require.NoError(t, s.ChangeVoice(context.Background(), child))

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, child, s.Current().Profile)
	assert.Empty(t, narrator.reqs)
}

func TestSession_ChangePageStopsFirst(t *testing.T) {
	out := &fakeOutput{}
	s := NewSession(newScriptedNarrator(), out, &fakeSpeaker{})

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	s.ChangePage(page2)

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, out.stops)
	assert.Equal(t, page2, s.Current().Page)
}

func TestSession_PauseResume(t *testing.T) {
	out := &fakeOutput{}
	s := NewSession(newScriptedNarrator(), out, &fakeSpeaker{})

	require.NoError(t, s.Pause(), "pausing while idle is a no-op")

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.State())
	assert.True(t, out.paused)

	require.NoError(t, s.Resume())
	assert.Equal(t, Playing, s.State())
	assert.False(t, out.paused)
}

func TestSession_WaitHonoursContext(t *testing.T) {
	s := NewSession(newScriptedNarrator(), &fakeOutput{}, &fakeSpeaker{})
	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

// cancellableNarrator blocks until its context is cancelled or release is
// closed.
type cancellableNarrator struct {
	started chan context.Context
	release chan struct{}
}

func (n *cancellableNarrator) Narrate(ctx context.Context, req tts.Request) (*tts.Narration, error) {
	n.started <- ctx
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.release:
		return &tts.Narration{Provider: "fake", Format: tts.FormatMP3, Data: []byte(req.Text)}, nil
	}
}

func TestSession_ConcurrentPlayCancelsEverySupersededNarration(t *testing.T) {
	const calls = 8
	narrator := &cancellableNarrator{started: make(chan context.Context, calls), release: make(chan struct{})}
	out := &fakeOutput{}
	s := NewSession(narrator, out, &fakeSpeaker{})

	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Play(context.Background(), page1, tts.DefaultProfile)
		}()
	}

	ctxs := make([]context.Context, 0, calls)
	for i := 0; i < calls; i++ {
		ctxs = append(ctxs, <-narrator.started)
	}
	live := 0
	for _, ctx := range ctxs {
		if ctx.Err() == nil {
			live++
		}
	}
	assert.Equal(t, 1, live, "only the latest narration may still be running")

	close(narrator.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{"page one"}, out.playedTexts())
	assert.Equal(t, Playing, s.State())
}

func TestSession_SetLanguage(t *testing.T) {
	narrator := newScriptedNarrator()
	s := NewSession(narrator, &fakeOutput{}, &fakeSpeaker{}, WithLanguage("English"))

	require.NoError(t, s.Play(context.Background(), page1, tts.DefaultProfile))
	s.SetLanguage("Español")
	require.NoError(t, s.Play(context.Background(), page2, tts.DefaultProfile))

	require.Len(t, narrator.reqs, 2)
	assert.Equal(t, "English", narrator.reqs[0].Language)
	assert.Equal(t, "Español", narrator.reqs[1].Language)
}
