package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ftumix/internal/daemonctl"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// The daemon's view when it is running, a local check otherwise.
			snapshot, err := daemonctl.Snapshot(ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			lines := renderSectionHeader("Dependencies", colorize)
			lines = append(lines, dependencyLines(snapshot.Dependencies, colorize)...)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}
}
