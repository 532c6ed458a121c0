// Package playback sequences the narration of one page at a time and owns
// the audio outputs.
package playback

import (
	"context"
	"errors"

	"booknest/internal/narration/tts"
)

// ErrNoSpeaker is returned when no local speech engine is available.
var ErrNoSpeaker = errors.New("no local speech engine available")

// Narrator produces narration for a page. *tts.Chain implements it.
type Narrator interface {
	Narrate(ctx context.Context, req tts.Request) (*tts.Narration, error)
}

// Output plays encoded audio (mp3 or wav). Play returns once playback has
// started; done is called from another goroutine when the audio ends or is
// stopped, and never from within Play or Stop.
type Output interface {
	Play(n *tts.Narration, done func()) error
	Stop() error
}

// Speaker reads an utterance with a local speech engine. It follows the
// same contract as Output.
type Speaker interface {
	Speak(u tts.Utterance, done func()) error
	Stop() error
}

// Pauser is implemented by outputs and speakers that can pause.
type Pauser interface {
	Pause() error
	Resume() error
}
