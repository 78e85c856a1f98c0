package merge

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"clipmerge/internal/ffmpeg"
	"clipmerge/internal/tools"
)

type script struct {
	lines   []string
	waitErr error
	// block keeps stderr open until the process is terminated or its context ends.
	block bool
	// ignoreTerm makes Terminate a no-op; only the context ends the process.
	ignoreTerm bool
}

type startCall struct {
	name     string
	args     []string
	manifest string
}

type fakeRunner struct {
	concat    script
	compose   script
	keepAwake script
	probe     string
	probeErr  error

	mu     sync.Mutex
	starts []startCall
	probes int
	procs  []*fakeProc
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{probe: "20.000000\n", keepAwake: script{block: true}}
}

func (r *fakeRunner) Start(ctx context.Context, name string, args ...string) (ffmpeg.Process, error) {
	call := startCall{name: name, args: append([]string(nil), args...)}
	var s script
	kind := "keepawake"
	switch {
	case slices.Contains(args, "concat"):
		kind = "concat"
		s = r.concat
		if i := slices.Index(args, "-i"); i >= 0 && i+1 < len(args) {
			if data, err := os.ReadFile(args[i+1]); err == nil {
				call.manifest = string(data)
			}
		}
		if err := os.WriteFile(args[len(args)-1], []byte("audio"), 0o600); err != nil {
			return nil, err
		}
	case slices.Contains(args, "-filter_complex"):
		kind = "compose"
		s = r.compose
	default:
		s = r.keepAwake
	}

	proc := newFakeProc(kind, s)
	r.mu.Lock()
	r.starts = append(r.starts, call)
	r.procs = append(r.procs, proc)
	r.mu.Unlock()

	go proc.feed(ctx, s)
	return proc, nil
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.probes++
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.probeErr != nil {
		return nil, r.probeErr
	}
	return []byte(r.probe), nil
}

func (r *fakeRunner) probeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.probes
}

func (r *fakeRunner) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p.kind)
	}
	return out
}

func (r *fakeRunner) proc(kind string) *fakeProc {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.procs {
		if p.kind == kind {
			return p
		}
	}
	return nil
}

func (r *fakeRunner) call(kind string) (startCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.procs {
		if p.kind == kind {
			return r.starts[i], true
		}
	}
	return startCall{}, false
}

var errKilled = errors.New("signal: terminated")

type fakeProc struct {
	kind       string
	waitErr    error
	ignoreTerm bool

	stderr *io.PipeReader
	w      *io.PipeWriter

	term       chan struct{}
	termOnce   sync.Once
	terminated atomic.Bool
	killed     atomic.Bool
	ctxDone    atomic.Bool
	exited     chan struct{}
	waited     atomic.Bool
}

func newFakeProc(kind string, s script) *fakeProc {
	r, w := io.Pipe()
	return &fakeProc{
		kind:       kind,
		waitErr:    s.waitErr,
		ignoreTerm: s.ignoreTerm,
		stderr:     r,
		w:          w,
		term:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
}

func (p *fakeProc) feed(ctx context.Context, s script) {
	defer close(p.exited)
	defer p.w.Close()
	for _, line := range s.lines {
		select {
		case <-ctx.Done():
			p.killed.Store(true)
			return
		case <-p.term:
			p.killed.Store(true)
			return
		default:
		}
		if _, err := p.w.Write([]byte(line + "\r")); err != nil {
			return
		}
	}
	if !s.block {
		return
	}
	term := p.term
	if p.ignoreTerm {
		term = nil
	}
	select {
	case <-ctx.Done():
		p.ctxDone.Store(true)
	case <-term:
	}
	p.killed.Store(true)
}

func (p *fakeProc) Stderr() io.Reader { return p.stderr }

func (p *fakeProc) Terminate() error {
	p.terminated.Store(true)
	if p.ignoreTerm {
		return nil
	}
	p.termOnce.Do(func() { close(p.term) })
	// unblock a writer whose reader has stopped
	_ = p.stderr.CloseWithError(io.EOF)
	return nil
}

func (p *fakeProc) Wait() error {
	<-p.exited
	p.waited.Store(true)
	if p.killed.Load() {
		return errKilled
	}
	return p.waitErr
}

func fakeLocator() tools.Locator {
	return tools.LocatorFunc(func(name string) (string, error) {
		return "/opt/fake/" + name, nil
	})
}
