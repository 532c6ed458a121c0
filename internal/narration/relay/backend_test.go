package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"booknest/internal/narration/tts"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/N2lVS1w4EtoT3dr4eOWO", r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "xi-secret", r.Header.Get("xi-api-key"))

		var body elevenLabsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Boo.", body.Text)
		assert.Equal(t, DefaultElevenLabsModel, body.ModelID)
		assert.True(t, body.VoiceSettings.UseSpeakerBoost)
		assert.InDelta(t, 0.30, body.VoiceSettings.Stability, 1e-9)
		assert.InDelta(t, 0.82, body.VoiceSettings.Speed, 1e-9)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	speech := newSpeech(tts.RelayRequest{Text: "Boo.", VoiceType: tts.PersonaMale, Genre: "terror"})
	audio, err := NewElevenLabs("xi-secret", WithBaseURL(srv.URL)).Synthesize(context.Background(), speech)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
}

func TestElevenLabs_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := NewElevenLabs("bad", WithBaseURL(srv.URL)).Synthesize(context.Background(), newSpeech(tts.RelayRequest{Text: "x"}))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Body, "invalid api key")
}

func TestElevenLabs_Configured(t *testing.T) {
	assert.False(t, NewElevenLabs("").Configured())
	assert.True(t, NewElevenLabs("k").Configured())
}

type fakeSpeechClient struct {
	req  *texttospeechpb.SynthesizeSpeechRequest
	resp *texttospeechpb.SynthesizeSpeechResponse
	err  error
}

func (f *fakeSpeechClient) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestGoogleCloud_Synthesize(t *testing.T) {
	client := &fakeSpeechClient{resp: &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}}
	g := &GoogleCloud{client: client, language: "en-US"}

	speech := newSpeech(tts.RelayRequest{Text: "Once.", VoiceType: tts.PersonaChild, Genre: "aventura"})
	audio, err := g.Synthesize(context.Background(), speech)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)

	req := client.req
	assert.Equal(t, "Once.", req.GetInput().GetText())
	assert.Equal(t, "en-US", req.GetVoice().GetLanguageCode())
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_NEUTRAL, req.GetVoice().GetSsmlGender())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, req.GetAudioConfig().GetAudioEncoding())
	assert.InDelta(t, 1.05, req.GetAudioConfig().GetSpeakingRate(), 1e-9)
	assert.InDelta(t, childPitch, req.GetAudioConfig().GetPitch(), 1e-9)
	assert.NoError(t, g.Close())
}

func TestGoogleCloud_LanguageAndGender(t *testing.T) {
	client := &fakeSpeechClient{resp: &texttospeechpb.SynthesizeSpeechResponse{}}
	g := &GoogleCloud{client: client, language: "en-US"}

	speech := newSpeech(tts.RelayRequest{Text: "Hola.", VoiceType: tts.PersonaFemale, Language: "es-ES"})
	_, err := g.Synthesize(context.Background(), speech)
	require.NoError(t, err)
	assert.Equal(t, "es-ES", client.req.GetVoice().GetLanguageCode())
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_FEMALE, client.req.GetVoice().GetSsmlGender())
	assert.Zero(t, client.req.GetAudioConfig().GetPitch())
}

func TestGoogleCloud_Error(t *testing.T) {
	g := &GoogleCloud{client: &fakeSpeechClient{err: errors.New("permission denied")}}
	_, err := g.Synthesize(context.Background(), newSpeech(tts.RelayRequest{Text: "x"}))
	assert.Error(t, err)
	assert.False(t, (&GoogleCloud{}).Configured())
}
