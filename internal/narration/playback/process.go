package playback

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"booknest/internal/narration/tts"
)

// process runs one speech command at a time.
type process struct {
	name string
	path string
	args func(tts.Utterance) []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	paused bool
}

func (p *process) Speak(u tts.Utterance, done func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("already speaking")
	}

	cmd := exec.Command(p.path, p.args(u)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.name, err)
	}
	p.cmd = cmd
	p.paused = false

	go func() {
		err := cmd.Wait()

		p.mu.Lock()
		stopped := p.cmd != cmd
		if !stopped {
			p.cmd = nil
			p.paused = false
		}
		p.mu.Unlock()

		if err != nil && !stopped {
			logrus.WithError(err).Warnf("%s exited with error", p.name)
		}
		done()
	}()
	return nil
}

func (p *process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}
	cmd := p.cmd
	p.cmd = nil

	// A stopped process has to continue before it can die.
	if p.paused {
		_ = resumeProcess(cmd)
		p.paused = false
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *process) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.paused {
		return nil
	}
	if err := pauseProcess(p.cmd); err != nil {
		return err
	}
	p.paused = true
	return nil
}

func (p *process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || !p.paused {
		return nil
	}
	if err := resumeProcess(p.cmd); err != nil {
		return err
	}
	p.paused = false
	return nil
}
