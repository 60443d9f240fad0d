package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ftumix/internal/daemonctl"
	"ftumix/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ftumixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startLogLevel),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				if result.PID > 0 {
					fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				} else {
					fmt.Fprintln(stdout, "Daemon started")
				}
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override configured log level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the ftumixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the ftumixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartLogLevel),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override configured log level for the launched daemon")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and hardware status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.Snapshot(ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonStatusLines(snapshot, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snapshot.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func daemonStatusLines(snapshot *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 8)
	if snapshot.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", snapshot.PID), colorize))
		card := fmt.Sprintf("%s (%s, index %d)", snapshot.Card.ID, snapshot.Card.Name, snapshot.Card.Index)
		lines = append(lines, renderStatusLine("Card", statusOK, card, colorize))
		lines = append(lines, renderStatusLine("Channels", statusInfo, fmt.Sprintf("%dx%d routing matrix per domain", snapshot.Channels, snapshot.Channels), colorize))
		if snapshot.Watcher {
			lines = append(lines, renderStatusLine("Watcher", statusOK, "Polling hardware changes", colorize))
		} else {
			lines = append(lines, renderStatusLine("Watcher", statusWarn, "Not running", colorize))
		}
		if snapshot.Hotplug {
			lines = append(lines, renderStatusLine("Hotplug", statusOK, "Monitoring udev events", colorize))
		} else {
			lines = append(lines, renderStatusLine("Hotplug", statusInfo, "Inactive", colorize))
		}
		if !snapshot.StartedAt.IsZero() {
			lines = append(lines, renderStatusLine("Started", statusInfo, snapshot.StartedAt.Local().Format(time.RFC1123), colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running (run `ftumix start`)", colorize))
	}
	lines = append(lines, renderStatusLine("Socket", statusInfo, snapshot.SocketPath, colorize))
	if snapshot.LockPath != "" {
		lines = append(lines, renderStatusLine("Lock", statusInfo, snapshot.LockPath, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+2)

	available := 0
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			available++
		} else {
			missing = append(missing, dep.Name)
		}
	}
	summaryKind := statusOK
	if len(missing) > 0 {
		summaryKind = statusError
	}
	lines = append(lines, renderStatusLine("Summary", summaryKind, fmt.Sprintf("%d/%d available", available, len(deps)), colorize))

	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusError, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

// daemonExecutable resolves ftumixd, preferring a sibling of the running
// binary over PATH so side-by-side installs behave.
func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "ftumixd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("ftumixd")
	if err != nil {
		return "", fmt.Errorf("locate ftumixd: %w", err)
	}
	return path, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: strings.TrimSpace(logLevel)}
	if cfgPath := ctx.configPath(); cfgPath != "" {
		opts.ConfigPath = cfgPath
	}
	return opts
}
