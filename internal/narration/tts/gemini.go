package tts

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"booknest/internal/narration/wav"
)

// DefaultGeminiModel is the Gemini speech model.
const DefaultGeminiModel = "gemini-2.5-flash-preview-tts"

// Gemini synthesises speech with the Gemini generateContent API. The
// service returns raw 24 kHz PCM which is wrapped into WAV.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	once   sync.Once
	client *genai.Client
	err    error
}

// GeminiOption configures a Gemini provider.
type GeminiOption func(*Gemini)

// WithGeminiModel overrides the speech model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeminiBaseURL overrides the API base URL. Used in tests.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = u }
}

// WithGeminiHTTPClient replaces the HTTP client.
func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = hc }
}

// NewGemini creates a Gemini provider. An empty apiKey yields a provider
// that always declines.
func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:     apiKey,
		model:      DefaultGeminiModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gemini) Name() string { return string(ProviderGemini) }

// genaiClient creates the SDK client on first use.
func (g *Gemini) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      g.apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  g.httpClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
		})
	})
	return g.client, g.err
}

// Synthesize requests audio for the persona's prebuilt voice.
func (g *Gemini) Synthesize(ctx context.Context, req Request) (*Narration, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	client, err := g.genaiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: GeminiVoice(req.Profile.Persona)},
			},
			LanguageCode: LanguageCode(req.Language),
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(Truncate(req.Text, MaxProviderChars)), config)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	pcm := inlineAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("gemini: no audio in response")
	}

	audio, err := wav.Encode(pcm)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Narration{Provider: g.Name(), Format: FormatWAV, Data: audio}, nil
}

// inlineAudio returns the first non-empty inline audio part.
func inlineAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data
			}
		}
	}
	return nil
}
