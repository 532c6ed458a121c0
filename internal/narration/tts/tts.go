// Package tts turns a page of text into narration by walking an ordered
// chain of speech providers.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"booknest/internal/domain/book"
)

// MaxProviderChars is the largest text sent to a network provider.
const MaxProviderChars = 4500

var (
	// ErrAllDeclined is returned when every provider in a chain declined.
	ErrAllDeclined = errors.New("all narration providers declined")
	// ErrNotConfigured is returned by a provider missing its credentials.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyText is returned for a request without text.
	ErrEmptyText = errors.New("empty text")
)

// Provider produces narration for a request. Any error means the provider
// declined and the next one should be tried.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (*Narration, error)
}

// Persona is the voice character chosen by the reader.
type Persona string

const (
	PersonaMale   Persona = "masculina"
	PersonaFemale Persona = "feminina"
	PersonaChild  Persona = "infantil"
)

// Personas lists the personas in display order.
var Personas = []Persona{PersonaMale, PersonaFemale, PersonaChild}

var personaLabels = map[Persona]string{
	PersonaMale:   "Male",
	PersonaFemale: "Female",
	PersonaChild:  "Child",
}

// Label returns the English display name of p.
func (p Persona) Label() string {
	if l, ok := personaLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParsePersona accepts the wire value ("feminina") or the English label.
func ParsePersona(s string) (Persona, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Personas {
		if s == string(p) || s == strings.ToLower(p.Label()) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown voice %q", s)
}

// Tone modifies delivery. It is either a genre wire key or ToneDefault.
type Tone string

// ToneDefault is the neutral delivery.
const ToneDefault Tone = "default"

// ToneOf returns the tone matching a book genre.
func ToneOf(g book.Genre) Tone {
	if g == "" {
		return ToneDefault
	}
	return Tone(g)
}

// VoiceProfile selects how a page is read aloud.
type VoiceProfile struct {
	Persona Persona `json:"voiceType"`
	Tone    Tone    `json:"genre"`
}

// DefaultProfile is the voice used when the reader has chosen none.
var DefaultProfile = VoiceProfile{Persona: PersonaFemale, Tone: ToneDefault}

// Request is one page of text to narrate.
type Request struct {
	Text    string
	Profile VoiceProfile
	// Language is the catalog language label, e.g. "Português".
	Language string
}

// Format identifies the payload of a Narration.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatWAV    Format = "wav"
	FormatSpeech Format = "speech"
)

// Narration is the fully received result of a provider.
type Narration struct {
	Provider string
	Format   Format
	// Data holds encoded audio for FormatMP3 and FormatWAV.
	Data []byte
	// Speech holds the utterance for FormatSpeech.
	Speech *Utterance
}

// Utterance is text handed to a local speech engine.
type Utterance struct {
	Text     string
	Language string
	Pitch    float64
	Rate     float64
}

// Truncate cuts text to at most max characters.
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}
