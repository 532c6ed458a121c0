package playback

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"booknest/internal/narration/tts"
)

// BeepOutput plays mp3 and wav narrations on the default audio device.
type BeepOutput struct {
	mu       sync.Mutex
	rate     beep.SampleRate
	ctrl     *beep.Ctrl
	streamer beep.StreamSeekCloser
}

func NewBeepOutput() *BeepOutput {
	return &BeepOutput{}
}

// Decode returns a streamer for an encoded narration.
func Decode(n *tts.Narration) (beep.StreamSeekCloser, beep.Format, error) {
	switch n.Format {
	case tts.FormatMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(n.Data)))
	case tts.FormatWAV:
		return wav.Decode(bytes.NewReader(n.Data))
	default:
		return nil, beep.Format{}, fmt.Errorf("cannot decode %q audio", n.Format)
	}
}

func (b *BeepOutput) Play(n *tts.Narration, done func()) error {
	streamer, format, err := Decode(n)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", n.Format, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clear()

	if b.rate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("failed to initialise speaker: %w", err)
		}
		b.rate = format.SampleRate
	}

	b.streamer = streamer
	b.ctrl = &beep.Ctrl{Streamer: streamer}
	speaker.Play(beep.Seq(b.ctrl, beep.Callback(func() {
		// The callback runs on the speaker goroutine with its lock held.
		go done()
	})))
	return nil
}

func (b *BeepOutput) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear()
	return nil
}

func (b *BeepOutput) clear() {
	if b.streamer == nil {
		return
	}
	speaker.Clear()
	b.streamer.Close()
	b.streamer = nil
	b.ctrl = nil
}

func (b *BeepOutput) Pause() error {
	return b.setPaused(true)
}

func (b *BeepOutput) Resume() error {
	return b.setPaused(false)
}

func (b *BeepOutput) setPaused(paused bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctrl == nil {
		return nil
	}
	speaker.Lock()
	b.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}
