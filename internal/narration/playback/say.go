package playback

import (
	"fmt"
	"os/exec"
	"strconv"

	"booknest/internal/narration/tts"
)

// sayBaseRate is the default speaking rate of say, in words per minute.
const sayBaseRate = 175

// sayVoices maps language codes to voices bundled with macOS.
var sayVoices = map[string]string{
	"pt-BR": "Luciana",
	"es-ES": "Monica",
	"en-US": "Samantha",
	"he-IL": "Carmit",
}

// Say speaks utterances with the macOS say command. It has no pitch
// control; only the rate follows the utterance.
type Say struct {
	process
}

func NewSay() (*Say, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSpeaker, err)
	}
	s := &Say{}
	s.process = process{name: "say", path: path, args: s.Args}
	return s, nil
}

// Args builds the say command line for u.
func (s *Say) Args(u tts.Utterance) []string {
	var args []string

	if v, ok := sayVoices[u.Language]; ok {
		args = append(args, "-v", v)
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-r", strconv.Itoa(int(sayBaseRate*rate)))

	return append(args, "--", u.Text)
}
