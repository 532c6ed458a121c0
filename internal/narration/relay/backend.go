// Package relay serves the narration endpoint that keeps premium speech
// provider credentials on the server.
package relay

import (
	"context"
	"fmt"

	"booknest/internal/narration/tts"
)

// Speech is one synthesis job handed to a backend.
type Speech struct {
	Text     string
	Profile  tts.VoiceProfile
	VoiceID  string
	Prosody  tts.Prosody
	Language string
}

// Backend synthesises MP3 audio.
type Backend interface {
	Name() string
	// Configured reports whether the backend holds its credentials.
	Configured() bool
	Synthesize(ctx context.Context, s Speech) ([]byte, error)
}

// StatusError is an upstream HTTP failure. Its status is relayed to the
// caller.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: %d", e.Backend, e.Code)
}
