//go:build unix

package ffmpeg

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// terminate sends SIGTERM so ffmpeg can finalize its output and exit.
func terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := unix.Kill(p.Pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}
