package tts

import (
	"context"
	"fmt"
	"strings"
)

const (
	baseRate  = 0.9
	childRate = 1.05
	malePitch = 0.8

	femalePitch = 1.3
	childPitch  = 1.8

	// Intense tones read slower, and a male voice reads deeper.
	intenseRateFactor = 0.9
	intenseMalePitch  = 0.7
)

// Local is the terminal provider. It performs no I/O and hands the text to
// the device speech engine, so it only declines on empty text or a
// cancelled context.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return string(ProviderLocal) }

func (l *Local) Synthesize(ctx context.Context, req Request) (*Narration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("local: %w", ErrEmptyText)
	}

	pitch, rate := LocalVoice(req.Profile)
	return &Narration{
		Provider: l.Name(),
		Format:   FormatSpeech,
		Speech: &Utterance{
			Text:     req.Text,
			Language: LanguageCode(req.Language),
			Pitch:    pitch,
			Rate:     rate,
		},
	}, nil
}

// LocalVoice derives the pitch and rate multipliers for a profile.
func LocalVoice(p VoiceProfile) (pitch, rate float64) {
	switch p.Persona {
	case PersonaFemale:
		pitch, rate = femalePitch, baseRate
	case PersonaChild:
		pitch, rate = childPitch, childRate
	default:
		pitch, rate = malePitch, baseRate
	}

	if isIntense(p.Tone) {
		rate *= intenseRateFactor
		if p.Persona == PersonaMale {
			pitch = intenseMalePitch
		}
	}
	return pitch, rate
}

func isIntense(t Tone) bool {
	return t == toneHorror || t == toneSuspense
}
