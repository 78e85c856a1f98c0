package merge

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// keepAwakeDrainTimeout bounds how long stop waits for the helper's stderr
// to close after it was cancelled.
const keepAwakeDrainTimeout = 10 * time.Second

// startKeepAwake launches the configured sleep-inhibitor helper for the
// job's lifetime. The returned stop function terminates it and is safe to
// call when no helper was started.
func (p *Pipeline) startKeepAwake(logger zerolog.Logger) func() {
	if len(p.opts.KeepAwake) == 0 {
		return func() {}
	}
	// detached from the job context: the helper must outlive cancellation until stop runs
	hctx, hcancel := context.WithCancel(context.Background())
	proc, err := p.runner().Start(hctx, p.opts.KeepAwake[0], p.opts.KeepAwake[1:]...)
	if err != nil {
		hcancel()
		logger.Warn().Err(err).Str("command", p.opts.KeepAwake[0]).Msg("keep-awake helper not started")
		return func() {}
	}
	drained := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, proc.Stderr())
		close(drained)
	}()
	logger.Debug().Str("command", p.opts.KeepAwake[0]).Msg("keep-awake helper started")
	return func() {
		if err := proc.Terminate(); err != nil {
			logger.Debug().Err(err).Msg("terminate keep-awake helper")
		}
		// a helper ignoring the termination request is killed by the runner
		// once its context is done
		hcancel()
		select {
		case <-drained:
		case <-time.After(keepAwakeDrainTimeout):
			logger.Warn().Msg("keep-awake helper stderr still open")
		}
		_ = proc.Wait()
	}
}
