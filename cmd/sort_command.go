package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"clipmerge/internal/sequence"
)

func newSortCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sort [files...]",
		Short: "Show the order merge would use for the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			videos := sequence.NewMediaSet(cfg.VideoExtension)
			audios := sequence.NewMediaSet(cfg.AudioExtension)
			videos.Add(args...)
			audios.Add(args...)
			fmt.Fprintln(cmd.OutOrStdout(), renderSequence(videos, audios))
			return nil
		},
	}
}

func renderSequence(sets ...*sequence.MediaSet) string {
	var rows [][]string
	for _, set := range sets {
		for i, path := range set.Paths() {
			pin := sequence.KeyOf(path).Pin()
			if pin == "" {
				pin = "-"
			}
			rows = append(rows, []string{set.Ext(), strconv.Itoa(i + 1), filepath.Base(path), pin, path})
		}
	}
	return renderTable([]string{"Type", "#", "Name", "Pinned", "Path"}, rows, 2)
}
