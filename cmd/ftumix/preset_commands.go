package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ftumix/internal/ipc"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Save or load routing presets",
	}

	saveCmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Snapshot the device state into a preset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SavePreset(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preset saved to %s\n", resp.Path)
				return nil
			})
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Apply a preset file to the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LoadPreset(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preset loaded from %s\n", resp.Path)
				return nil
			})
		},
	}

	presetCmd.AddCommand(saveCmd)
	presetCmd.AddCommand(loadCmd)
	return presetCmd
}
