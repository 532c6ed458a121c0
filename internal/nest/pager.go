package nest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"booknest/internal/cli/scheme/colours"
	"booknest/internal/domain/reader"
	"booknest/internal/narration/playback"
	"booknest/internal/narration/tts"
)

// player is the part of a playback session the pager drives.
type player interface {
	Play(ctx context.Context, page reader.Page, profile tts.VoiceProfile) error
	Stop()
	Pause() error
	Resume() error
	ChangeVoice(ctx context.Context, profile tts.VoiceProfile) error
	ChangePage(page reader.Page)
	State() playback.State
}

// pager shows one page at a time and maps reader commands onto the
// session.
type pager struct {
	ctx     context.Context
	pages   []reader.Page
	index   int
	profile tts.VoiceProfile
	player  player
	in      *bufio.Reader
	out     io.Writer

	// async runs narration work off the input loop.
	async func(func())
}

func newPager(ctx context.Context, pages []reader.Page, profile tts.VoiceProfile, p player, in *bufio.Reader, out io.Writer) *pager {
	return &pager{
		ctx:     ctx,
		pages:   pages,
		profile: profile,
		player:  p,
		in:      in,
		out:     out,
		async:   func(f func()) { go f() },
	}
}

const pagerHelp = "⏯️  [enter] play/stop · n next · b back · p pause/resume · v <male|female|child> voice · q quit"

// Run reads commands until the reader quits, input ends or the context is
// cancelled.
func (p *pager) Run() {
	p.show()
	for {
		if p.ctx.Err() != nil {
			return
		}
		colours.Prompt.Fprintf(p.out, "\n%s\n> ", pagerHelp)

		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			p.player.Stop()
			return
		}
		if !p.handle(strings.TrimSpace(line)) || err != nil {
			return
		}
	}
}

// handle executes one command and reports whether to keep going.
func (p *pager) handle(input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")

	switch strings.ToLower(cmd) {
	case "", "play":
		if p.player.State() == playback.Idle {
			p.play()
			return true
		}
		p.stop()

	case "s", "stop":
		p.stop()

	case "n", "next":
		if p.index >= len(p.pages)-1 {
			colours.Info.Fprintln(p.out, "📕 This is the last page.")
			return true
		}
		p.turn(p.index + 1)

	case "b", "back", "prev":
		if p.index == 0 {
			colours.Info.Fprintln(p.out, "📗 This is the first page.")
			return true
		}
		p.turn(p.index - 1)

	case "p", "pause":
		switch p.player.State() {
		case playback.Playing:
			if err := p.player.Pause(); err != nil {
				colours.Error.Fprintf(p.out, "❌ %v\n", err)
				return true
			}
			colours.Warning.Fprintln(p.out, "⏸️  Paused")
		case playback.Paused:
			if err := p.player.Resume(); err != nil {
				colours.Error.Fprintf(p.out, "❌ %v\n", err)
				return true
			}
			colours.Success.Fprintln(p.out, "▶️  Resumed")
		}

	case "v", "voice":
		persona, err := tts.ParsePersona(arg)
		if err != nil {
			colours.Error.Fprintf(p.out, "❌ %v\n", err)
			return true
		}
		p.profile.Persona = persona
		profile := p.profile
		colours.Success.Fprintf(p.out, "🎤 Voice: %s\n", persona.Label())
		p.async(func() {
			if err := p.player.ChangeVoice(p.ctx, profile); err != nil {
				colours.Error.Fprintf(p.out, "❌ %v\n", err)
			}
		})

	case "q", "quit":
		p.player.Stop()
		return false

	default:
		colours.Info.Fprintln(p.out, "ℹ️  Unknown command")
	}
	return true
}

func (p *pager) turn(index int) {
	p.index = index
	p.player.ChangePage(p.pages[index])
	p.show()
}

func (p *pager) stop() {
	p.player.Stop()
	colours.Warning.Fprintln(p.out, "⏹️  Stopped")
}

func (p *pager) play() {
	page, profile := p.pages[p.index], p.profile
	colours.Success.Fprintln(p.out, "🎵 Narrating...")
	p.async(func() {
		if err := p.player.Play(p.ctx, page, profile); err != nil {
			colours.Error.Fprintf(p.out, "❌ %v\n", err)
		}
	})
}

func (p *pager) show() {
	page := p.pages[p.index]
	fmt.Fprintln(p.out)
	colours.Title.Fprintf(p.out, "📄 Page %d of %d\n", p.index+1, len(p.pages))
	fmt.Fprintln(p.out)
	colours.Page.Fprintln(p.out, page.Text)
}
