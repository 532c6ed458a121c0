package relay

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"booknest/internal/narration/tts"
)

// childPitch raises the child persona, in semitones.
const childPitch = 4.0

// speechClient is the part of the Cloud Text-to-Speech client the backend
// uses.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

type cloudClient struct {
	c *texttospeech.Client
}

func (c cloudClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return c.c.SynthesizeSpeech(ctx, req)
}

// GoogleCloud synthesises MP3 with Google Cloud Text-to-Speech. Credentials
// come from GOOGLE_APPLICATION_CREDENTIALS.
type GoogleCloud struct {
	client   speechClient
	closer   func() error
	language string
}

// NewGoogleCloud connects to Cloud Text-to-Speech. defaultLanguage is used
// when a request names none.
func NewGoogleCloud(ctx context.Context, defaultLanguage string) (*GoogleCloud, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleCloud{client: cloudClient{c}, closer: c.Close, language: defaultLanguage}, nil
}

func (g *GoogleCloud) Name() string     { return "Google Cloud TTS" }
func (g *GoogleCloud) Configured() bool { return g.client != nil }

// Close releases the underlying connection.
func (g *GoogleCloud) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func (g *GoogleCloud) Synthesize(ctx context.Context, s Speech) ([]byte, error) {
	language := s.Language
	if language == "" {
		language = g.language
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		SpeakingRate:  s.Prosody.Speed,
	}
	if s.Profile.Persona == tts.PersonaChild {
		audioCfg.Pitch = childPitch
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: s.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			SsmlGender:   ssmlGender(s.Profile.Persona),
		},
		AudioConfig: audioCfg,
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google tts: failed to synthesize: %w", err)
	}
	return resp.GetAudioContent(), nil
}

func ssmlGender(p tts.Persona) texttospeechpb.SsmlVoiceGender {
	switch p {
	case tts.PersonaMale:
		return texttospeechpb.SsmlVoiceGender_MALE
	case tts.PersonaFemale:
		return texttospeechpb.SsmlVoiceGender_FEMALE
	default:
		return texttospeechpb.SsmlVoiceGender_NEUTRAL
	}
}
