package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"booknest/internal/cli/scheme/colours"
	"booknest/internal/config"
	"booknest/internal/nest"
)

func main() {
	// The config is needed before cobra parses flags.
	var cfgFile string
	for i, arg := range os.Args {
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			cfgFile = v
		} else if arg == "--config" && i+1 < len(os.Args) {
			cfgFile = os.Args[i+1]
		}
	}

	if err := config.Init(cfgFile); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := config.SetupLogging(cfg.Log); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}

	app, err := nest.NewBookNest(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create booknest")
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Stop()
		app.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Happy reading! 📚"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "booknest",
		Short: "📚 Find books and listen to them page by page",
		Long: `
┌─────────────────────────────────────┐
│  📚 Welcome to BookNest! 🏠         │
│  Search, read and listen            │
└─────────────────────────────────────┘

BookNest searches Google Books, Open Library and Project Gutenberg,
splits the text into pages and narrates them with the best voice
available.
		`,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.booknest/booknest.yaml)")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "🔍 Search every catalog",
		Args:  cobra.MinimumNArgs(1),
		Run:   app.Search,
	}

	featuredCmd := &cobra.Command{
		Use:   "featured",
		Short: "✨ Show a selection of featured books",
		Run:   app.Featured,
	}

	topCmd := &cobra.Command{
		Use:   "top <genre>",
		Short: "🏆 Popular books in a genre",
		Long:  "List the most relevant books for a genre: horror, suspense, romance, fantasy, adventure, science fiction, religious, poetry, self-help or classic",
		Args:  cobra.ExactArgs(1),
		Run:   app.Top,
	}

	readCmd := &cobra.Command{
		Use:   "read <query>",
		Short: "📖 Read and listen to a book",
		Long:  "Search for a book, load its text and page through it with narration",
		Args:  cobra.MinimumNArgs(1),
		Run:   app.Read,
	}

	speakCmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "🔊 Narrate a piece of text",
		Args:  cobra.MinimumNArgs(1),
		Run:   app.Speak,
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List voices and narration providers",
		Run:   app.Voices,
	}

	// Add flags
	topCmd.Flags().IntP("limit", "l", 20, "Number of books to show (max 40)")
	readCmd.Flags().StringP("voice", "v", "", "Voice to read with: male, female or child")
	readCmd.Flags().IntP("index", "i", 0, "Pick the n-th search result without asking")
	speakCmd.Flags().StringP("voice", "v", "", "Voice to read with: male, female or child")
	speakCmd.Flags().StringP("genre", "g", "", "Genre whose tone to use")
	speakCmd.Flags().StringP("language", "L", "", "Language of the text, e.g. English or Português")

	rootCmd.AddCommand(searchCmd, featuredCmd, topCmd, readCmd, speakCmd, voicesCmd)

	app.AddCacheCommands(rootCmd)
	app.AddRelayCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
