package tts

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type ProviderType string

const (
	ProviderRelay  ProviderType = "relay"
	ProviderGemini ProviderType = "gemini"
	ProviderLocal  ProviderType = "local"
)

func (p ProviderType) String() string {
	return string(p)
}

// DefaultOrder is the provider order used when none is configured.
var DefaultOrder = []ProviderType{ProviderRelay, ProviderGemini, ProviderLocal}

// Config selects and configures the providers of a chain.
type Config struct {
	Order       []ProviderType
	RelayURL    string
	RelayKey    string
	GeminiKey   string
	GeminiModel string
	Timeout     time.Duration
}

// NewChain builds a provider chain from config. Network providers without
// credentials are left out; the local provider is always appended last
// when the order does not name it.
func NewChain(cfg Config) (*Chain, error) {
	order := cfg.Order
	if len(order) == 0 {
		order = DefaultOrder
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}

	var (
		providers []Provider
		hasLocal  bool
		seen      = make(map[ProviderType]bool)
	)
	for _, t := range order {
		if seen[t] {
			continue
		}
		seen[t] = true

		switch t {
		case ProviderRelay:
			if cfg.RelayURL == "" {
				logrus.WithField("provider", t).Debug("Skipping unconfigured narration provider")
				continue
			}
			providers = append(providers, NewRelay(cfg.RelayURL, WithRelayAPIKey(cfg.RelayKey), WithRelayHTTPClient(hc)))

		case ProviderGemini:
			if cfg.GeminiKey == "" {
				logrus.WithField("provider", t).Debug("Skipping unconfigured narration provider")
				continue
			}
			providers = append(providers, NewGemini(cfg.GeminiKey, WithGeminiModel(cfg.GeminiModel), WithGeminiHTTPClient(hc)))

		case ProviderLocal:
			providers = append(providers, NewLocal())
			hasLocal = true

		default:
			return nil, fmt.Errorf("unsupported narration provider: %s", t)
		}
	}

	// Every chain contains the local provider.
	if !hasLocal {
		providers = append(providers, NewLocal())
	}

	chain := NewProviderChain(providers...)
	logrus.WithField("providers", chain.Providers()).Debug("Narration chain ready")
	return chain, nil
}

// ParseOrder converts provider names into an order.
func ParseOrder(names []string) ([]ProviderType, error) {
	order := make([]ProviderType, 0, len(names))
	for _, n := range names {
		t := ProviderType(n)
		switch t {
		case ProviderRelay, ProviderGemini, ProviderLocal:
			order = append(order, t)
		default:
			return nil, fmt.Errorf("unsupported narration provider: %s", n)
		}
	}
	return order, nil
}
