package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"booknest/internal/narration/tts"
)

const (
	// Path is where the narration endpoint is mounted.
	Path = "/narrate"

	maxBodyBytes = 1 << 20
)

var corsAllowHeaders = strings.Join([]string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
	"x-request-id",
}, ", ")

// Handler answers narration requests with MP3 audio from its backend.
type Handler struct {
	backend Backend
	timeout time.Duration
}

// NewHandler creates a handler over backend. A nil backend answers every
// request with a configuration error.
func NewHandler(backend Backend, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = tts.DefaultTimeout
	}
	return &Handler{backend: backend, timeout: timeout}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.backend == nil || !h.backend.Configured() {
		name := "speech backend"
		if h.backend != nil {
			name = h.backend.Name()
		}
		writeError(w, http.StatusInternalServerError, name+" credentials not configured")
		return
	}

	var in tts.RelayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	speech := newSpeech(in)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	audio, err := h.backend.Synthesize(ctx, speech)
	if err != nil {
		logger := logrus.WithError(err).WithFields(logrus.Fields{
			"backend":    h.backend.Name(),
			"request_id": RequestIDFrom(r),
		})

		var se *StatusError
		if errors.As(err, &se) {
			logger.WithField("body", se.Body).Error("Speech backend rejected request")
			writeError(w, se.Code, se.Error())
			return
		}
		logger.Error("Speech backend failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadGateway, h.backend.Name()+" returned no audio")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// newSpeech resolves the voice, prosody and text budget for a request.
// Missing fields default to the male persona and the neutral tone.
func newSpeech(in tts.RelayRequest) Speech {
	profile := tts.VoiceProfile{Persona: in.VoiceType, Tone: in.Genre}
	if profile.Persona == "" {
		profile.Persona = tts.PersonaMale
	}
	if profile.Tone == "" {
		profile.Tone = tts.ToneDefault
	}

	return Speech{
		Text:     tts.Truncate(in.Text, tts.MaxProviderChars),
		Profile:  profile,
		VoiceID:  tts.ElevenLabsVoice(profile),
		Prosody:  tts.ProsodyFor(profile.Tone),
		Language: in.Language,
	}
}

// Routes mounts the handler behind the standard middleware.
func Routes(h http.Handler, limiter *RateLimitMiddleware) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	handler = AccessLogMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return RequestIDMiddleware(handler)
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * tts.DefaultTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("Narration relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logrus.Info("Shutting down narration relay")
		return srv.Shutdown(shutdownCtx)
	}
}
