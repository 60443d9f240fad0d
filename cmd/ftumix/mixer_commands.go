package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ftumix/internal/ipc"
)

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	volumeCmd := &cobra.Command{
		Use:   "volume",
		Short: "Read or write one route volume",
	}

	getCmd := &cobra.Command{
		Use:   "get <domain> <input> <output>",
		Short: "Read the volume of one route",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseChannel(args[1], "input")
			if err != nil {
				return err
			}
			output, err := parseChannel(args[2], "output")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Volume(args[0], input, output)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Volume)
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <domain> <input> <output> <volume>",
		Short: "Write the volume of one route",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseChannel(args[1], "input")
			if err != nil {
				return err
			}
			output, err := parseChannel(args[2], "output")
			if err != nil {
				return err
			}
			volume, err := parseVolume(args[3])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SetVolume(args[0], input, output, volume); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s in%d>out%d = %d\n", strings.ToLower(args[0]), input, output, volume)
				return nil
			})
		},
	}

	volumeCmd.AddCommand(getCmd)
	volumeCmd.AddCommand(setCmd)
	return volumeCmd
}

func newRoutesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [domain]",
		Short: "Show the routing matrix for one or both domains",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := ""
			if len(args) == 1 {
				domain = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Routes(domain)
				if err != nil {
					return err
				}

				volumes := make(map[string]map[[2]int]int)
				order := make([]string, 0, 2)
				for _, route := range resp.Routes {
					grid, ok := volumes[route.Domain]
					if !ok {
						grid = make(map[[2]int]int, resp.Channels*resp.Channels)
						volumes[route.Domain] = grid
						order = append(order, route.Domain)
					}
					grid[[2]int{route.Input, route.Output}] = route.Volume
				}

				stdout := cmd.OutOrStdout()
				for i, name := range order {
					if i > 0 {
						fmt.Fprintln(stdout)
					}
					grid := volumes[name]
					fmt.Fprintf(stdout, "%s\n", strings.ToUpper(name[:1])+name[1:])
					fmt.Fprintln(stdout, renderMatrix(resp.Channels, func(input, output int) (int, bool) {
						v, ok := grid[[2]int{input, output}]
						return v, ok
					}))
				}
				return nil
			})
		},
	}
}

func newEffectsCommand(ctx *commandContext) *cobra.Command {
	effectsCmd := &cobra.Command{
		Use:   "effects",
		Short: "Show the effect controls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Effects()
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(resp.Effects))
				for _, effect := range resp.Effects {
					value := effect.Item
					if effect.HasVolume {
						value = strconv.Itoa(effect.Volume)
					}
					kind := "enum"
					if effect.HasVolume {
						kind = "volume"
					}
					rows = append(rows, []string{effect.Key, effect.Name, kind, value})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No effect controls discovered")
					return nil
				}
				table := renderTable(
					[]string{"Key", "Control", "Kind", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Zero every volume-capable effect control",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DisableEffects(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Effects disabled")
				return nil
			})
		},
	}

	effectsCmd.AddCommand(disableCmd)
	return effectsCmd
}

func newDigitalCommand(ctx *commandContext) *cobra.Command {
	digitalCmd := &cobra.Command{
		Use:   "digital",
		Short: "Digital domain operations",
	}

	muteCmd := &cobra.Command{
		Use:   "mute",
		Short: "Mute every digital route except the passthrough diagonal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.MuteMostDigital(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Digital routes muted (diagonal spared)")
				return nil
			})
		},
	}

	digitalCmd.AddCommand(muteCmd)
	return digitalCmd
}

func newAnalogCommand(ctx *commandContext) *cobra.Command {
	analogCmd := &cobra.Command{
		Use:   "analog",
		Short: "Analog domain operations",
	}

	muteCmd := &cobra.Command{
		Use:   "mute",
		Short: "Mute every analog route",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.MuteAnalog(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Analog routes muted")
				return nil
			})
		},
	}

	analogCmd.AddCommand(muteCmd)
	return analogCmd
}

func newPassthroughCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "passthrough",
		Short: "Set every analog input to full volume on its own output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.PassThrough(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Analog inputs passed through")
				return nil
			})
		},
	}
}

func newMasterCommand(ctx *commandContext) *cobra.Command {
	masterCmd := &cobra.Command{
		Use:   "master",
		Short: "Read or write the master volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Master()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Volume)
				return nil
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Read the master volume",
		RunE:  masterCmd.RunE,
	}

	setCmd := &cobra.Command{
		Use:   "set <volume>",
		Short: "Write the master volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := parseVolume(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SetMaster(volume); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "master = %d\n", volume)
				return nil
			})
		},
	}

	masterCmd.AddCommand(getCmd)
	masterCmd.AddCommand(setCmd)
	return masterCmd
}

func newLinkCommand(ctx *commandContext) *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Manage analog output links",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the link target of every output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Links()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Links))
				for _, pair := range resp.Links {
					target := "-"
					if pair.Target > 0 {
						target = fmt.Sprintf("Out%d", pair.Target)
					}
					rows = append(rows, []string{fmt.Sprintf("Out%d", pair.Output), target})
				}
				table := renderTable([]string{"Output", "Linked To"}, rows, []columnAlignment{alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <output> <target>",
		Short: "Replicate writes on an output's column to a target output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := parseChannel(args[0], "output")
			if err != nil {
				return err
			}
			target, err := parseChannel(args[1], "target")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SetLink(output, target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "out%d linked to out%d\n", output, target)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <output>",
		Short: "Remove an output's link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := parseChannel(args[0], "output")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ClearLink(output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "out%d unlinked\n", output)
				return nil
			})
		},
	}

	linkCmd.AddCommand(listCmd)
	linkCmd.AddCommand(setCmd)
	linkCmd.AddCommand(clearCmd)
	return linkCmd
}

func parseChannel(arg, label string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid %s channel %q: expected a number", label, arg)
	}
	if value < 1 {
		return 0, fmt.Errorf("invalid %s channel %d: channels are numbered from 1", label, value)
	}
	return value, nil
}

func parseVolume(arg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: expected a number", arg)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("invalid volume %d: must be between 0 and 100", value)
	}
	return value, nil
}
