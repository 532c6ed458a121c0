package playback

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindAuto    Kind = "auto"
	KindBeep    Kind = "beep"
	KindESpeak  Kind = "espeak"
	KindSay     Kind = "say"
	KindConsole Kind = "console"
)

// consoleMaxWait caps the simulated duration of console audio.
const consoleMaxWait = 3 * time.Second

// NewSpeaker creates the local speech engine. Auto picks eSpeak, then
// say, then the console.
func NewSpeaker(kind Kind, w io.Writer) (Speaker, error) {
	switch kind {
	case KindAuto, "":
		if e, err := NewESpeak(); err == nil {
			return e, nil
		}
		if s, err := NewSay(); err == nil {
			return s, nil
		}
		logrus.Info("No speech engine found, falling back to console speech")
		return NewConsole(w, 0), nil
	case KindESpeak:
		return NewESpeak()
	case KindSay:
		return NewSay()
	case KindConsole:
		return NewConsole(w, 0), nil
	default:
		return nil, fmt.Errorf("unsupported speaker: %s", kind)
	}
}

// NewOutput creates the audio output for encoded narration.
func NewOutput(kind Kind, w io.Writer) (Output, error) {
	switch kind {
	case KindAuto, "", KindBeep:
		return NewBeepOutput(), nil
	case KindConsole:
		return NewConsole(w, consoleMaxWait), nil
	default:
		return nil, fmt.Errorf("unsupported audio output: %s", kind)
	}
}
