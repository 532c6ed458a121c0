package playback

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"booknest/internal/narration/tts"
)

const (
	espeakBaseSpeed = 175
	espeakBasePitch = 50
)

// espeakVoices maps language codes to eSpeak voice names.
var espeakVoices = map[string]string{
	"pt-BR": "pt-br",
	"es-ES": "es",
	"en-US": "en-us",
	"he-IL": "he",
	"ar-XA": "ar",
}

// ESpeak speaks utterances with the espeak-ng or espeak command.
type ESpeak struct {
	process
}

// NewESpeak locates the eSpeak executable.
func NewESpeak() (*ESpeak, error) {
	path, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSpeaker, err)
	}
	e := &ESpeak{}
	e.process = process{name: "eSpeak", path: path, args: e.Args}
	return e, nil
}

func findESpeakExecutable() (string, error) {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// Args builds the eSpeak command line for u.
func (e *ESpeak) Args(u tts.Utterance) []string {
	var args []string

	if v, ok := espeakVoices[u.Language]; ok {
		args = append(args, "-v", v)
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-s", strconv.Itoa(int(espeakBaseSpeed*rate)))

	pitch := int(espeakBasePitch * u.Pitch)
	if pitch < 0 {
		pitch = 0
	}
	if pitch > 99 {
		pitch = 99
	}
	args = append(args, "-p", strconv.Itoa(pitch))

	// "--" keeps text starting with a dash from being read as a flag.
	return append(args, "--", u.Text)
}

// Voices lists the voices installed for eSpeak.
func (e *ESpeak) Voices() ([]string, error) {
	out, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseESpeakVoices(string(out)), nil
}

func parseESpeakVoices(output string) []string {
	voices := make([]string, 0)
	for i, line := range strings.Split(output, "\n") {
		// Skip the header line.
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		// Pty Language Age/Gender VoiceName File Other Languages
		if fields := strings.Fields(line); len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}
	return voices
}
