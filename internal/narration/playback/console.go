package playback

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"booknest/internal/narration/tts"
)

const wordsPerMinute = 150

// Console stands in for an audio device. It prints what would be heard and
// finishes after the time a reader would need to say it.
type Console struct {
	w       io.Writer
	maxWait time.Duration

	mu    sync.Mutex
	timer *time.Timer
	stop  chan struct{}
}

// NewConsole writes to w. maxWait caps the simulated duration; zero means
// no cap.
func NewConsole(w io.Writer, maxWait time.Duration) *Console {
	return &Console{w: w, maxWait: maxWait}
}

// Duration estimates how long text takes to read at rate.
func Duration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := float64(len(strings.Fields(text)))
	return time.Duration(words * float64(time.Minute) / (wordsPerMinute * rate))
}

func (c *Console) Speak(u tts.Utterance, done func()) error {
	fmt.Fprintf(c.w, "%s %s\n", color.YellowString("🔊 Reading aloud (%s, pitch %.2f, rate %.2f)", u.Language, u.Pitch, u.Rate), u.Text)
	c.run(Duration(u.Text, u.Rate), done)
	return nil
}

func (c *Console) Play(n *tts.Narration, done func()) error {
	fmt.Fprintln(c.w, color.YellowString("🔊 Playing %d bytes of %s audio from %s", len(n.Data), n.Format, n.Provider))
	c.run(c.maxWait, done)
	return nil
}

func (c *Console) run(d time.Duration, done func()) {
	if c.maxWait > 0 && d > c.maxWait {
		d = c.maxWait
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.halt()
	stop := make(chan struct{})
	timer := time.NewTimer(d)
	c.timer, c.stop = timer, stop

	go func() {
		select {
		case <-timer.C:
		case <-stop:
		}
		done()
	}()
}

func (c *Console) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halt()
	return nil
}

func (c *Console) halt() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	close(c.stop)
	c.timer, c.stop = nil, nil
}
