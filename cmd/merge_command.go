package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"clipmerge/internal/merge"
	"clipmerge/internal/sequence"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		keepOrder bool
	)
	cmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Merge video and audio files into one video",
		Long: "Splits the given files into video and audio by the configured extensions, " +
			"orders each list naturally (opening first, closing last) unless --keep-order is set, " +
			"concatenates the audio and lays it under the intro clip followed by the looped body clip.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			videos := sequence.NewMediaSet(cfg.VideoExtension)
			audios := sequence.NewMediaSet(cfg.AudioExtension)
			if keepOrder {
				videos.SetAutoSort(false)
				audios.SetAutoSort(false)
			}
			videos.Add(args...)
			audios.Add(args...)
			if ignored := len(args) - videos.Len() - audios.Len(); ignored > 0 {
				log.Warn().Int("ignored", ignored).Msg("skipping files with other extensions or duplicates")
			}

			unlock, err := ctx.lockDataDir()
			if err != nil {
				return err
			}
			defer unlock()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := ctx.pipeline().Start(runCtx, merge.Job{
				ID:          uuid.NewString(),
				Video:       videos.Paths(),
				Audio:       audios.Paths(),
				Destination: output,
			})
			if err != nil {
				return err
			}
			reportProgress(cmd.ErrOrStderr(), h.Progress())
			return reportOutcome(cmd.OutOrStdout(), h.Wait())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", merge.DefaultOutputName, "Output file, or a directory to write "+merge.DefaultOutputName+" into")
	cmd.Flags().BoolVar(&keepOrder, "keep-order", false, "Use the files in the order given instead of natural order")
	return cmd
}

// reportProgress drains progress, drawing a bar on terminals and logging
// otherwise.
func reportProgress(out io.Writer, progress <-chan int) {
	if !isTerminal(out) {
		for pct := range progress {
			log.Info().Int("percent", pct).Msg("progress")
		}
		return
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("merging"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for pct := range progress {
		_ = bar.Set(pct)
	}
	_ = bar.Finish()
}

func reportOutcome(out io.Writer, outcome merge.Outcome) error {
	switch outcome.State {
	case merge.StateCompleted:
		size := "unknown size"
		if info, err := os.Stat(outcome.Output); err == nil {
			size = humanize.Bytes(uint64(info.Size())) //nolint:gosec // file sizes are non-negative
		}
		fmt.Fprintf(out, "Video created: %s (%s)\n", outcome.Output, size)
		return nil
	case merge.StateCancelled:
		log.Warn().Msg("merge cancelled")
		return context.Canceled
	default:
		if outcome.Err == nil {
			return errors.New(outcome.Message())
		}
		return outcome.Err
	}
}
