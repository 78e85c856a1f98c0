package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipmerge/internal/tools"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the media tools can be found",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := tools.Check(ctx.locator(), tools.MediaRequirements())
			fmt.Fprintln(cmd.OutOrStdout(), renderTools(statuses))
			if !tools.Ready(statuses) {
				return errors.New("required media tools are missing")
			}
			return nil
		},
	}
}

func renderTools(statuses []tools.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		where := s.Path
		if !s.Available {
			where = s.Detail
		}
		rows = append(rows, []string{s.Name, yesNo(s.Available), where, s.Description})
	}
	return renderTable([]string{"Tool", "Found", "Path", "Used for"}, rows)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
