package nest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"booknest/internal/cli/scheme/colours"
	"booknest/internal/config"
	"booknest/internal/domain/book"
	"booknest/internal/domain/library"
	"booknest/internal/domain/library/source"
	"booknest/internal/domain/reader"
	"booknest/internal/narration/playback"
	"booknest/internal/narration/tts"
)

// BookNest main application structure
type BookNest struct {
	cfg config.Config

	library *library.Library
	reader  *reader.Reader
	cache   *reader.TextCache
	chain   *tts.Chain

	session *playback.Session

	in  *bufio.Reader
	out io.Writer

	ctx    context.Context
	Cancel context.CancelFunc
}

func NewBookNest(cfg config.Config) (*BookNest, error) {
	order, err := tts.ParseOrder(cfg.Narration.Order)
	if err != nil {
		return nil, err
	}
	chain, err := tts.NewChain(tts.Config{
		Order:       order,
		RelayURL:    cfg.Narration.RelayURL,
		RelayKey:    cfg.Narration.RelayKey,
		GeminiKey:   cfg.Narration.GeminiKey,
		GeminiModel: cfg.Narration.GeminiModel,
		Timeout:     cfg.Narration.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create narration chain: %w", err)
	}

	catalogOpts := []source.Option{
		source.WithTimeout(cfg.Catalog.Timeout),
		source.WithUserAgent(cfg.Catalog.UserAgent),
	}
	gutendex := source.NewGutendex(catalogOpts...)
	cache := reader.NewTextCache(cfg.Cache.Dir, cfg.Cache.MaxAge)

	ctx, cancel := context.WithCancel(context.Background())
	return &BookNest{
		cfg: cfg,
		library: library.New(
			source.NewGoogleBooks(cfg.Catalog.GoogleBooksKey, catalogOpts...),
			source.NewOpenLibrary(cfg.Catalog.OpenLibraryRate, catalogOpts...),
			gutendex,
		),
		reader: reader.New(gutendex,
			reader.WithTimeout(cfg.Catalog.Timeout),
			reader.WithUserAgent(cfg.Catalog.UserAgent),
			reader.WithCache(cache),
		),
		cache:  cache,
		chain:  chain,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		ctx:    ctx,
		Cancel: cancel,
	}, nil
}

// Stop silences any narration. It is safe to call from a signal handler.
func (bn *BookNest) Stop() {
	if bn.session != nil {
		bn.session.Stop()
	}
}

func (bn *BookNest) ShowWelcome() {
	fmt.Fprintln(bn.out)
	colours.Title.Fprintln(bn.out, "🌟 Welcome to BookNest! 🌟")
	fmt.Fprintln(bn.out)
	colours.Info.Fprintln(bn.out, "📚 Available commands:")
	fmt.Fprintln(bn.out, "  • booknest search <query>   - Search every catalog")
	fmt.Fprintln(bn.out, "  • booknest featured         - Discover something new")
	fmt.Fprintln(bn.out, "  • booknest top <genre>      - Popular books in a genre")
	fmt.Fprintln(bn.out, "  • booknest read <query>     - Read and listen page by page")
	fmt.Fprintln(bn.out, "  • booknest speak <text>     - Narrate a line of text")
	fmt.Fprintln(bn.out, "  • booknest voices           - Show voices and providers")
	fmt.Fprintln(bn.out)
	colours.Prompt.Fprintln(bn.out, "✨ Ready for a good book? ✨")
}

func (bn *BookNest) Search(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	colours.Info.Fprintf(bn.out, "🔍 Searching for %q...\n", query)

	entries := bn.library.SearchAll(bn.ctx, query)
	bn.printEntries(entries)
}

func (bn *BookNest) Featured(cmd *cobra.Command, args []string) {
	fmt.Fprintln(bn.out)
	colours.Title.Fprintln(bn.out, "✨ Featured Books ✨")
	fmt.Fprintln(bn.out)

	bn.printEntries(bn.library.Featured(bn.ctx))
}

func (bn *BookNest) Top(cmd *cobra.Command, args []string) {
	genre, err := book.ParseGenre(args[0])
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		colours.Info.Fprintf(bn.out, "💡 Genres: %s\n", genreList())
		return
	}
	limit, _ := cmd.Flags().GetInt("limit")

	fmt.Fprintln(bn.out)
	colours.Title.Fprintf(bn.out, "🏆 Top %s Books 🏆\n", genre.Label())
	fmt.Fprintln(bn.out)

	bn.printEntries(bn.library.TopByGenre(bn.ctx, genre, limit))
}

func (bn *BookNest) Read(cmd *cobra.Command, args []string) {
	voice, _ := cmd.Flags().GetString("voice")
	index, _ := cmd.Flags().GetInt("index")

	persona, err := bn.persona(voice)
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}

	entries := bn.library.SearchAll(bn.ctx, strings.Join(args, " "))
	if len(entries) == 0 {
		colours.Warning.Fprintln(bn.out, "🔍 No books found matching your search.")
		return
	}

	entry, ok := bn.choose(entries, index)
	if !ok {
		return
	}

	fmt.Fprintln(bn.out)
	colours.Title.Fprintf(bn.out, "📖 %s\n", entry.Title)
	colours.Author.Fprintf(bn.out, "✍️  by %s\n", entry.Author)
	fmt.Fprintf(bn.out, "🎭 Genre: %s | 🌐 %s | 🏛️ %s\n", entry.Genre.Label(), entry.Language, entry.Source.Label())
	colours.Info.Fprintln(bn.out, "⏳ Loading text...")

	pages := bn.reader.Resolve(bn.ctx, entry)
	if !reader.HasFullText(pages) {
		colours.Warning.Fprintln(bn.out, "⚠️  Full text is not available, showing the synopsis.")
	}

	session, err := bn.newSession(entry.Language)
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}

	p := newPager(bn.ctx, pages, tts.VoiceProfile{Persona: persona, Tone: tts.ToneOf(entry.Genre)}, session, bn.in, bn.out)
	p.Run()
	session.Stop()
}

func (bn *BookNest) Speak(cmd *cobra.Command, args []string) {
	voice, _ := cmd.Flags().GetString("voice")
	genreName, _ := cmd.Flags().GetString("genre")
	language, _ := cmd.Flags().GetString("language")

	persona, err := bn.persona(voice)
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}
	tone := tts.ToneDefault
	if genreName != "" {
		g, err := book.ParseGenre(genreName)
		if err != nil {
			colours.Error.Fprintf(bn.out, "❌ %v\n", err)
			return
		}
		tone = tts.ToneOf(g)
	}
	if language == "" {
		language = bn.cfg.Catalog.Language
	}

	session, err := bn.newSession(language)
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}

	page := reader.Page{Text: strings.Join(args, " ")}
	if err := session.Play(bn.ctx, page, tts.VoiceProfile{Persona: persona, Tone: tone}); err != nil {
		colours.Error.Fprintf(bn.out, "❌ %v\n", err)
		return
	}
	if err := session.Wait(bn.ctx); err != nil {
		return
	}
	colours.Success.Fprintln(bn.out, "✅ Done!")
}

func (bn *BookNest) Voices(cmd *cobra.Command, args []string) {
	fmt.Fprintln(bn.out)
	colours.Title.Fprintln(bn.out, "🎤 Voices 🎤")
	fmt.Fprintln(bn.out)

	for _, p := range tts.Personas {
		fmt.Fprintf(bn.out, "  • %-10s ", p.Label())
		colours.Info.Fprintf(bn.out, "(%s)", p)
		if p == bn.defaultPersona() {
			colours.Success.Fprint(bn.out, " default")
		}
		fmt.Fprintln(bn.out)
	}

	fmt.Fprintln(bn.out)
	colours.Prompt.Fprintln(bn.out, "🔗 Narration providers, in order:")
	for i, name := range bn.chain.Providers() {
		fmt.Fprintf(bn.out, "  %d. %s\n", i+1, name)
	}

	if e, err := playback.NewESpeak(); err == nil {
		if voices, err := e.Voices(); err == nil && len(voices) > 0 {
			fmt.Fprintln(bn.out)
			colours.Info.Fprintf(bn.out, "🗣️  %d eSpeak voices installed\n", len(voices))
		}
	}
}

func (bn *BookNest) CacheStatus(cmd *cobra.Command, args []string) {
	colours.Title.Fprintln(bn.out, "📊 Text Cache Status")

	info, err := bn.cache.Info()
	if err != nil {
		colours.Error.Fprintf(bn.out, "❌ Failed to get cache info: %v\n", err)
		return
	}

	colours.Info.Fprintf(bn.out, "📁 Location: %s\n", info.Dir)
	if info.Entries == 0 {
		colours.Warning.Fprintln(bn.out, "📭 Cache is empty")
		return
	}
	colours.Info.Fprintf(bn.out, "📚 Books: %d (%d fresh)\n", info.Entries, info.Fresh)
	colours.Info.Fprintf(bn.out, "📏 Size: %d bytes\n", info.Bytes)
	colours.Info.Fprintf(bn.out, "🕐 Oldest: %s\n", info.Oldest.Format("2006-01-02 15:04:05"))
	colours.Info.Fprintf(bn.out, "🕐 Newest: %s\n", info.Newest.Format("2006-01-02 15:04:05"))
	colours.Info.Fprintf(bn.out, "⏳ Max age: %.1f hours\n", info.MaxAge.Hours())
}

func (bn *BookNest) CacheClear(cmd *cobra.Command, args []string) {
	if err := bn.cache.Clear(); err != nil {
		colours.Error.Fprintf(bn.out, "❌ Failed to clear cache: %v\n", err)
		return
	}
	colours.Success.Fprintln(bn.out, "🧹 Cache cleared")
}

// AddCacheCommands adds the text cache commands to rootCmd.
func (bn *BookNest) AddCacheCommands(rootCmd *cobra.Command) {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Manage downloaded book texts",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show cache status",
		Run:   bn.CacheStatus,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "🧹 Remove every cached text",
		Run:   bn.CacheClear,
	}

	cacheCmd.AddCommand(statusCmd, clearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// newSession returns the narration session for a book in language. The
// session and its audio devices are created once and reused across books.
func (bn *BookNest) newSession(language string) (*playback.Session, error) {
	if bn.session != nil {
		bn.session.SetLanguage(language)
		return bn.session, nil
	}

	output, err := playback.NewOutput(playback.Kind(bn.cfg.Playback.Output), bn.out)
	if err != nil {
		return nil, err
	}
	speaker, err := playback.NewSpeaker(playback.Kind(bn.cfg.Playback.Speaker), bn.out)
	if err != nil {
		return nil, err
	}

	bn.session = playback.NewSession(bn.chain, output, speaker,
		playback.WithLanguage(language),
		playback.WithGraceDelay(bn.cfg.Playback.Grace),
		playback.WithListener(func(s playback.Snapshot) {
			logrus.WithFields(logrus.Fields{
				"state":    s.State,
				"page":     s.Page.Index,
				"provider": s.Provider,
			}).Debug("Playback state changed")
		}),
	)
	return bn.session, nil
}

func (bn *BookNest) persona(voice string) (tts.Persona, error) {
	if voice == "" {
		return bn.defaultPersona(), nil
	}
	return tts.ParsePersona(voice)
}

func (bn *BookNest) defaultPersona() tts.Persona {
	p, err := tts.ParsePersona(bn.cfg.Narration.Voice)
	if err != nil {
		return tts.DefaultProfile.Persona
	}
	return p
}

// choose picks an entry by 1-based index, or asks the reader when index
// is zero.
func (bn *BookNest) choose(entries []book.Entry, index int) (book.Entry, bool) {
	if index == 0 {
		bn.printEntries(entries)
		colours.Prompt.Fprint(bn.out, "🌟 Enter the number of the book to read (or 'q' to quit): ")

		input, _ := bn.in.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "q" || input == "quit" {
			colours.Warning.Fprintln(bn.out, "👋 Maybe next time!")
			return book.Entry{}, false
		}
		if _, err := fmt.Sscanf(input, "%d", &index); err != nil {
			index = -1
		}
	}

	if index < 1 || index > len(entries) {
		colours.Error.Fprintln(bn.out, "❌ Invalid selection!")
		return book.Entry{}, false
	}
	return entries[index-1], true
}

func (bn *BookNest) printEntries(entries []book.Entry) {
	if len(entries) == 0 {
		colours.Warning.Fprintln(bn.out, "🔍 No books found.")
		return
	}

	for i, e := range entries {
		fmt.Fprintf(bn.out, "  %d. ", i+1)
		colours.Title.Fprint(bn.out, e.Title)
		fmt.Fprint(bn.out, " by ")
		colours.Author.Fprint(bn.out, e.Author)
		fmt.Fprintln(bn.out)

		fmt.Fprint(bn.out, "     🎭 ")
		colours.Genre.Fprint(bn.out, e.Genre.Label())
		fmt.Fprintf(bn.out, " | 🌐 %s | ", e.Language)
		colours.Source.Fprint(bn.out, e.Source.Label())
		if e.TextURL != "" {
			colours.Success.Fprint(bn.out, " | 📄 full text")
		}
		fmt.Fprintln(bn.out)

		if e.Description != "" {
			fmt.Fprintf(bn.out, "     💡 %s\n", excerpt(e.Description, 140))
		}
		colours.Info.Fprintf(bn.out, "     ID: %s\n", e.ID)
		fmt.Fprintln(bn.out)
	}
	colours.Success.Fprintf(bn.out, "✨ Found %d books! ✨\n", len(entries))
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}

func genreList() string {
	names := make([]string, len(book.Genres))
	for i, g := range book.Genres {
		names[i] = strings.ToLower(g.Label())
	}
	return strings.Join(names, ", ")
}
