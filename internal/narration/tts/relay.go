package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single network provider call.
const DefaultTimeout = 30 * time.Second

const maxAudioBytes = 32 << 20

// RelayRequest is the JSON body accepted by the narration relay.
type RelayRequest struct {
	Text      string  `json:"text"`
	VoiceType Persona `json:"voiceType"`
	Genre     Tone    `json:"genre"`
	// Language is a BCP-47 code. ElevenLabs detects the language itself.
	Language string `json:"language,omitempty"`
}

// Relay calls the narration relay, which holds the premium provider
// credentials and answers with MP3 audio.
type Relay struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayHTTPClient replaces the HTTP client.
func WithRelayHTTPClient(hc *http.Client) RelayOption {
	return func(r *Relay) { r.httpClient = hc }
}

// WithRelayAPIKey sets the key sent in the apikey and Authorization headers.
func WithRelayAPIKey(key string) RelayOption {
	return func(r *Relay) { r.apiKey = key }
}

// NewRelay creates a relay client posting to url.
func NewRelay(url string, opts ...RelayOption) *Relay {
	r := &Relay{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Relay) Name() string { return string(ProviderRelay) }

// Synthesize posts the request to the relay. A non-2xx status, an empty
// body or a non-audio content type declines.
func (r *Relay) Synthesize(ctx context.Context, req Request) (*Narration, error) {
	if r.url == "" {
		return nil, fmt.Errorf("relay: %w", ErrNotConfigured)
	}

	body, err := json.Marshal(RelayRequest{
		Text:      Truncate(req.Text, MaxProviderChars),
		VoiceType: req.Profile.Persona,
		Genre:     req.Profile.Tone,
		Language:  LanguageCode(req.Language),
	})
	if err != nil {
		return nil, fmt.Errorf("relay: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("apikey", r.apiKey)
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("relay: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	format, ok := audioFormat(resp.Header.Get("Content-Type"))
	if !ok {
		return nil, fmt.Errorf("relay: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("relay: failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("relay: empty audio")
	}

	return &Narration{Provider: r.Name(), Format: format, Data: data}, nil
}

func audioFormat(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	default:
		return "", false
	}
}
