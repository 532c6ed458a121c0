package nest

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"booknest/internal/cli/scheme/colours"
	"booknest/internal/narration/relay"
)

// ServeRelay runs the narration relay until the app is cancelled.
func (bn *BookNest) ServeRelay(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = bn.cfg.Relay.Addr
	}

	backend, closeFn, err := bn.relayBackend(bn.ctx)
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}
	defer closeFn()

	if !backend.Configured() {
		colours.Warning.Fprintf(bn.out, "⚠️  %s credentials are not configured, requests will fail\n", backend.Name())
	}

	handler := relay.Routes(
		relay.NewHandler(backend, bn.cfg.Relay.Timeout),
		relay.NewRateLimitMiddleware(bn.cfg.Relay.RateLimit, bn.cfg.Relay.Burst,
			relay.WithTrustedProxy(bn.cfg.Relay.TrustProxy)),
	)

	colours.Success.Fprintf(bn.out, "🎙️  Narration relay on %s%s (%s)\n", addr, relay.Path, backend.Name())
	if err := relay.Serve(bn.ctx, addr, handler); err != nil {
		colours.Error.Fprintf(bn.out, "❌ Relay stopped: %v\n", err)
	}
}

func (bn *BookNest) relayBackend(ctx context.Context) (relay.Backend, func(), error) {
	switch bn.cfg.Relay.Backend {
	case "", "elevenlabs":
		return relay.NewElevenLabs(bn.cfg.Relay.ElevenLabsKey), func() {}, nil
	case "google":
		g, err := relay.NewGoogleCloud(ctx, bn.cfg.Relay.Language)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Google Cloud client: %w", err)
		}
		return g, func() { _ = g.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported relay backend: %s", bn.cfg.Relay.Backend)
	}
}

// AddRelayCommands adds the relay server commands to rootCmd.
func (bn *BookNest) AddRelayCommands(rootCmd *cobra.Command) {
	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "🎙️ Narration relay server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "🚀 Serve the narration endpoint",
		Long:  "Accept narration requests over HTTP and synthesize them with ElevenLabs or Google Cloud Text-to-Speech",
		Run:   bn.ServeRelay,
	}
	serveCmd.Flags().String("addr", "", "Listen address (defaults to relay.addr)")

	relayCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)
}
