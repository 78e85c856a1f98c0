package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// terminateGrace is how long a terminated child may take to exit before it
// is killed and its pipes are closed.
const terminateGrace = 5 * time.Second

// Process is a started child whose diagnostic stream is read line by line.
type Process interface {
	// Stderr is the child's diagnostic stream. It must be read to EOF, or
	// the child terminated, before Wait.
	Stderr() io.Reader
	// Terminate asks the child to exit. It does not block.
	Terminate() error
	// Wait blocks until the child exits and reports its exit status.
	Wait() error
}

// Runner starts external tools.
type Runner interface {
	Start(ctx context.Context, name string, args ...string) (Process, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError carries the exit code and the tail of stderr of a failed tool.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs tools with os/exec.
type ExecRunner struct{}

// Start launches name with args. Cancelling ctx terminates the child.
func (ExecRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = terminateGrace
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	tail := newTailBuffer(tailLines)
	return &execProcess{cmd: cmd, stderr: io.TeeReader(stderr, tail), tail: tail}, nil
}

// Output runs name to completion and returns its stdout.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, wrapExit(name, err, stderr.String())
	}
	return out, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stderr io.Reader
	tail   *tailBuffer
}

func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Terminate() error {
	if err := terminate(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return wrapExit(p.cmd.Path, err, p.tail.String())
	}
	return nil
}

func wrapExit(name string, err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: name, ExitCode: exitErr.ExitCode(), Stderr: stderr, Err: err}
	}
	return fmt.Errorf("%s: %w", name, err)
}

const tailLines = 8

// tailBuffer keeps the last few lines written to it, for error messages.
type tailBuffer struct {
	max     int
	lines   []string
	partial []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	data := append(t.partial, p...)
	for {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(data[:i])); line != "" {
			t.lines = append(t.lines, line)
			if len(t.lines) > t.max {
				t.lines = t.lines[len(t.lines)-t.max:]
			}
		}
		data = data[i+1:]
	}
	t.partial = append(t.partial[:0], data...)
	return len(p), nil
}

func (t *tailBuffer) String() string {
	lines := t.lines
	if rest := strings.TrimSpace(string(t.partial)); rest != "" {
		lines = append(append([]string(nil), lines...), rest)
	}
	if len(lines) > t.max {
		lines = lines[len(lines)-t.max:]
	}
	return strings.Join(lines, "\n")
}
