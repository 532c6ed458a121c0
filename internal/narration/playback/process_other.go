//go:build !unix

package playback

import (
	"errors"
	"os/exec"
)

var errPauseUnsupported = errors.New("pausing speech is not supported on this platform")

func pauseProcess(*exec.Cmd) error {
	return errPauseUnsupported
}

func resumeProcess(*exec.Cmd) error {
	return errPauseUnsupported
}
