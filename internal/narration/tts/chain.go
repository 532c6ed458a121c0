package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Chain tries its providers one at a time, best first.
type Chain struct {
	providers []Provider
}

// NewProviderChain creates a chain over providers in priority order.
func NewProviderChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Providers returns the provider names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Narrate returns the first narration a provider produces. A declined
// provider is logged and the next one tried. Cancelling ctx stops the walk
// immediately with ctx's error. When every provider declines the error
// wraps ErrAllDeclined and the last provider's error.
func (c *Chain) Narrate(ctx context.Context, req Request) (*Narration, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	lastErr := errors.New("no providers")
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := p.Synthesize(ctx, req)
		if err == nil && n != nil {
			logrus.WithFields(logrus.Fields{
				"provider": p.Name(),
				"format":   n.Format,
				"bytes":    len(n.Data),
			}).Debug("Narration ready")
			return n, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("%s returned no narration", p.Name())
		}

		lastErr = err
		logrus.WithError(err).WithField("provider", p.Name()).Warn("Narration provider declined, trying next")
	}
	return nil, fmt.Errorf("%w: %w", ErrAllDeclined, lastErr)
}
