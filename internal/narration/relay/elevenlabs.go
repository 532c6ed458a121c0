package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"booknest/internal/narration/tts"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	DefaultElevenLabsModel = "eleven_multilingual_v2"
	defaultOutputFormat    = "mp3_44100_128"
	maxAudioBytes          = 32 << 20
)

// ElevenLabs calls the ElevenLabs text-to-speech REST API.
type ElevenLabs struct {
	apiKey       string
	model        string
	outputFormat string
	baseURL      string
	httpClient   *http.Client
}

// ElevenLabsOption configures an ElevenLabs backend.
type ElevenLabsOption func(*ElevenLabs)

// WithModel sets the ElevenLabs model id.
func WithModel(model string) ElevenLabsOption {
	return func(e *ElevenLabs) {
		if model != "" {
			e.model = model
		}
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) ElevenLabsOption {
	return func(e *ElevenLabs) { e.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ElevenLabsOption {
	return func(e *ElevenLabs) { e.httpClient = hc }
}

func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) *ElevenLabs {
	e := &ElevenLabs{
		apiKey:       apiKey,
		model:        DefaultElevenLabsModel,
		outputFormat: defaultOutputFormat,
		baseURL:      elevenLabsBaseURL,
		httpClient:   &http.Client{Timeout: tts.DefaultTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *ElevenLabs) Name() string     { return "ElevenLabs" }
func (e *ElevenLabs) Configured() bool { return e.apiKey != "" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, s Speech) ([]byte, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    s.Text,
		ModelID: e.model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       s.Prosody.Stability,
			SimilarityBoost: s.Prosody.SimilarityBoost,
			Style:           s.Prosody.Style,
			UseSpeakerBoost: true,
			Speed:           s.Prosody.Speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		e.baseURL, url.PathEscape(s.VoiceID), url.QueryEscape(e.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Backend: e.Name(), Code: resp.StatusCode, Body: string(msg)}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: failed to read audio: %w", err)
	}
	return audio, nil
}
