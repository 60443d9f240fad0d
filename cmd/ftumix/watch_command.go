package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ftumix/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var fromStart bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream routing changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withClient(func(client *ipc.Client) error {
				since := uint64(0)
				if !fromStart {
					status, err := client.Status()
					if err != nil {
						return err
					}
					since = status.LastSeq
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Watching for routing changes (Ctrl+C to stop)")

				poll := time.NewTicker(interval)
				defer poll.Stop()

				for {
					select {
					case <-signalCtx.Done():
						return nil
					case <-poll.C:
						resp, err := client.Events(since)
						if err != nil {
							return err
						}
						for _, event := range resp.Events {
							fmt.Fprintln(out, formatChangeEvent(event))
						}
						if resp.LastSeq > since {
							since = resp.LastSeq
						}
					}
				}
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Poll interval for change events")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Replay journaled changes before streaming new ones")
	return cmd
}

func formatChangeEvent(event ipc.ChangeEvent) string {
	refs := make([]string, 0, len(event.Routes))
	for _, route := range event.Routes {
		refs = append(refs, fmt.Sprintf("%s in%d>out%d", route.Domain, route.Input, route.Output))
	}
	return fmt.Sprintf("%s  %-8s  %s",
		event.At.Format("15:04:05.000"),
		event.Origin,
		strings.Join(refs, ", "))
}
