// Package merge runs the two-step media pipeline: concatenate audio tracks,
// then compose a video of an intro clip followed by a looped body clip, cut
// to the length of the merged audio.
package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clipmerge/internal/ffmpeg"
	fileutil "clipmerge/internal/file"
	"clipmerge/internal/tools"
)

const (
	// DefaultAudioStepPercent is the share of progress credited to the audio
	// concat step, regardless of input size.
	DefaultAudioStepPercent = 10
	// StartPercent is emitted as soon as a job begins.
	StartPercent = 2
	// DefaultOutputName is used when the destination is an existing directory.
	DefaultOutputName = "youtube.mp4"

	manifestName    = "files.txt"
	mergedAudioBase = "merged_audio"
	runningCap      = 99
)

// Options configures a Pipeline. Zero values select defaults.
type Options struct {
	Locator          tools.Locator
	Runner           ffmpeg.Runner
	TempDir          string
	TargetHeight     int
	VideoCodec       string
	AudioCodec       string
	AudioStepPercent int
	// KeepAwake is the sleep-inhibitor command held for a job's lifetime.
	KeepAwake []string
	// Debug echoes raw tool output at debug level.
	Debug  bool
	Logger *zerolog.Logger
}

// Pipeline starts merge jobs. It is safe for concurrent use; callers that
// need a single active job enforce it themselves.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Locator == nil {
		opts.Locator = tools.Default(nil, "")
	}
	if opts.TargetHeight <= 0 {
		opts.TargetHeight = ffmpeg.DefaultHeight
	}
	if opts.AudioStepPercent <= StartPercent || opts.AudioStepPercent >= runningCap {
		opts.AudioStepPercent = DefaultAudioStepPercent
	}
	opts.KeepAwake = append([]string(nil), opts.KeepAwake...)
	return &Pipeline{opts: opts}
}

func (p *Pipeline) runner() ffmpeg.Runner {
	if p.opts.Runner == nil {
		return ffmpeg.ExecRunner{}
	}
	return p.opts.Runner
}

func (p *Pipeline) logger() zerolog.Logger {
	if p.opts.Logger != nil {
		return *p.opts.Logger
	}
	return log.Logger
}

// Validate checks job without side effects and returns it with the
// destination resolved.
func Validate(job Job) (Job, error) {
	job = job.clone()
	if len(job.Video) == 0 {
		return job, invalidInput("please select video files", nil)
	}
	if len(job.Audio) == 0 {
		return job, invalidInput("please select audio files", nil)
	}
	for _, path := range append(append([]string(nil), job.Video...), job.Audio...) {
		info, err := os.Stat(path)
		if err != nil {
			return job, invalidInput("input not readable", err)
		}
		if info.IsDir() {
			return job, invalidInput("input is a directory", fmt.Errorf("%s", path))
		}
	}
	dest := strings.TrimSpace(job.Destination)
	if dest == "" {
		return job, invalidInput("no destination", nil)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, DefaultOutputName)
	}
	if err := fileutil.CheckWritableDir(filepath.Dir(dest)); err != nil {
		return job, invalidInput("destination not writable", err)
	}
	job.Destination = dest
	return job, nil
}

// Start validates job and runs it in a new goroutine. Invalid jobs are
// rejected before any file or process is created.
func (p *Pipeline) Start(ctx context.Context, job Job) (*Handle, error) {
	resolved, err := Validate(job)
	if err != nil {
		return nil, err
	}
	h := newHandle(ctx, resolved)
	go p.run(h)
	return h, nil
}

// Run executes job on the calling goroutine.
func (p *Pipeline) Run(ctx context.Context, job Job) Outcome {
	h, err := p.Start(ctx, job)
	if err != nil {
		return Outcome{State: StateFailed, Err: err}
	}
	for range h.Progress() {
	}
	return h.Wait()
}

func (p *Pipeline) run(h *Handle) {
	logger := p.logger().With().Str("job_id", h.job.ID).Logger()
	stopKeepAwake := p.startKeepAwake(logger)

	output, err := p.execute(h, logger)
	stopKeepAwake()

	var outcome Outcome
	switch {
	case err == nil:
		outcome = Outcome{State: StateCompleted, Output: output}
		logger.Info().Str("output", output).Msg("merge completed")
	case errors.Is(err, errCancelled) || h.stopped():
		outcome = Outcome{State: StateCancelled}
		logger.Info().Msg("merge cancelled")
	default:
		outcome = Outcome{State: StateFailed, Err: err}
		logger.Error().Err(err).Msg("merge failed")
	}
	h.finish(outcome)
}

func (p *Pipeline) execute(h *Handle, logger zerolog.Logger) (string, error) {
	job := h.job
	h.emit(StartPercent)

	workDir, err := os.MkdirTemp(p.opts.TempDir, "clipmerge-*")
	if err != nil {
		return "", &StageError{Stage: StageConcat, Kind: ErrIO, Message: "create work dir", Err: err}
	}
	manifest := filepath.Join(workDir, manifestName)
	mergedAudio := filepath.Join(workDir, mergedAudioBase+filepath.Ext(job.Audio[0]))
	defer func() {
		for _, path := range []string{manifest, mergedAudio} {
			if _, err := fileutil.RemoveIfExists(path); err != nil {
				logger.Debug().Err(err).Str("path", path).Msg("cleanup")
			}
		}
		if err := os.Remove(workDir); err != nil {
			logger.Debug().Err(err).Str("path", workDir).Msg("cleanup")
		}
	}()

	if err := p.concatAudio(h, logger, manifest, mergedAudio); err != nil {
		return "", err
	}
	if h.stopped() {
		return "", errCancelled
	}
	h.emit(p.opts.AudioStepPercent)

	duration, err := p.probe(h, mergedAudio)
	if err != nil {
		return "", err
	}
	if h.stopped() {
		return "", errCancelled
	}

	if err := p.compose(h, logger, mergedAudio, duration); err != nil {
		return "", err
	}
	if !h.commit() {
		return "", errCancelled
	}
	h.emit(100)
	return job.Destination, nil
}

func (p *Pipeline) concatAudio(h *Handle, logger zerolog.Logger, manifest, mergedAudio string) error {
	if err := ffmpeg.WriteManifest(manifest, h.job.Audio); err != nil {
		return &StageError{Stage: StageConcat, Kind: ErrIO, Message: "write manifest", Err: err}
	}
	defer func() {
		if _, err := fileutil.RemoveIfExists(manifest); err != nil {
			logger.Debug().Err(err).Str("path", manifest).Msg("remove manifest")
		}
	}()

	binary, err := p.opts.Locator.Locate("ffmpeg")
	if err != nil {
		return &StageError{Stage: StageConcat, Kind: ErrProcessFailure, Message: "locate ffmpeg", Err: err}
	}
	logger.Info().Int("tracks", len(h.job.Audio)).Msg("concatenating audio")
	proc, err := p.runner().Start(h.ctx, binary, ffmpeg.ConcatAudioArgs(manifest, mergedAudio)...)
	if err != nil {
		return &StageError{Stage: StageConcat, Kind: ErrProcessFailure, Message: "start ffmpeg", Err: err}
	}
	if err := p.consume(h, logger, proc, nil); err != nil {
		if errors.Is(err, errCancelled) {
			return err
		}
		return &StageError{Stage: StageConcat, Kind: ErrProcessFailure, Message: "audio concatenation failed", Err: err}
	}
	return nil
}

func (p *Pipeline) probe(h *Handle, mergedAudio string) (float64, error) {
	binary, err := p.opts.Locator.Locate("ffprobe")
	if err != nil {
		return 0, &StageError{Stage: StageProbe, Kind: ErrProbeFailure, Message: "could not retrieve merged audio duration", Err: err}
	}
	duration, err := ffmpeg.Prober{Binary: binary, Runner: p.runner()}.Duration(h.ctx, mergedAudio)
	if err != nil {
		if h.stopped() {
			return 0, errCancelled
		}
		return 0, &StageError{Stage: StageProbe, Kind: ErrProbeFailure, Message: "could not retrieve merged audio duration", Err: err}
	}
	return duration, nil
}

func (p *Pipeline) compose(h *Handle, logger zerolog.Logger, mergedAudio string, duration float64) error {
	binary, err := p.opts.Locator.Locate("ffmpeg")
	if err != nil {
		return &StageError{Stage: StageCompose, Kind: ErrProcessFailure, Message: "locate ffmpeg", Err: err}
	}
	args := ffmpeg.ComposeArgs(ffmpeg.ComposeInput{
		Intro:      h.job.Intro(),
		Body:       h.job.Body(),
		Audio:      mergedAudio,
		Output:     h.job.Destination,
		Height:     p.opts.TargetHeight,
		VideoCodec: p.opts.VideoCodec,
		AudioCodec: p.opts.AudioCodec,
	})
	logger.Info().
		Str("duration", ffmpeg.FormatSeconds(duration)).
		Str("output", h.job.Destination).
		Msg("composing video")
	proc, err := p.runner().Start(h.ctx, binary, args...)
	if err != nil {
		return &StageError{Stage: StageCompose, Kind: ErrProcessFailure, Message: "start ffmpeg", Err: err}
	}
	err = p.consume(h, logger, proc, func(line string) {
		if elapsed, ok := ffmpeg.ParseElapsed(line); ok {
			h.emit(composePercent(p.opts.AudioStepPercent, elapsed, duration))
		}
	})
	if err != nil {
		if errors.Is(err, errCancelled) {
			return err
		}
		return &StageError{Stage: StageCompose, Kind: ErrProcessFailure, Message: "video composition failed", Err: err}
	}
	return nil
}

// composePercent maps elapsed output time onto the share of progress left
// after the audio step. It never reaches 100.
func composePercent(step int, elapsed, duration float64) int {
	if duration <= 0 || elapsed <= 0 {
		return step
	}
	ratio := min(elapsed/duration, 1)
	return min(int(float64(step)+ratio*float64(100-step)), runningCap)
}

// consume reads proc's stderr line by line, checking for cancellation before
// each line, and waits for it to exit.
func (p *Pipeline) consume(h *Handle, logger zerolog.Logger, proc ffmpeg.Process, onLine func(string)) error {
	scanner := ffmpeg.NewLineScanner(proc.Stderr())
	for scanner.Scan() {
		if h.stopped() {
			if err := proc.Terminate(); err != nil {
				logger.Debug().Err(err).Msg("terminate")
			}
			_ = proc.Wait()
			return errCancelled
		}
		line := scanner.Text()
		if p.opts.Debug && strings.TrimSpace(line) != "" {
			logger.Debug().Str("stderr", line).Msg("ffmpeg")
		}
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_ = proc.Terminate()
	}
	waitErr := proc.Wait()
	if h.stopped() {
		return errCancelled
	}
	if waitErr != nil {
		return waitErr
	}
	if scanErr != nil {
		return fmt.Errorf("read stderr: %w", scanErr)
	}
	return nil
}
