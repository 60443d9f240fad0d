package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ftumix/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the card match list if your interface reports a different name.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			lines := make([]string, 0, 24)

			lines = append(lines, renderSectionHeader("Config", colorize)...)
			lines = append(lines, renderStatusLine("Path", statusInfo, path, colorize))
			existsKind := statusOK
			existsMessage := "yes"
			if !exists {
				existsKind = statusWarn
				existsMessage = "no (defaults in effect, run `ftumix config init`)"
			}
			lines = append(lines, renderStatusLine("File Exists", existsKind, existsMessage, colorize))

			lines = append(lines, renderSectionHeader("Card", colorize)...)
			lines = append(lines, renderStatusLine("Match", statusInfo, strings.Join(cfg.Card.Match, ", "), colorize))
			index := "auto"
			if cfg.Card.Index >= 0 {
				index = strconv.Itoa(cfg.Card.Index)
			}
			lines = append(lines, renderStatusLine("Index", statusInfo, index, colorize))

			lines = append(lines, renderSectionHeader("Startup", colorize)...)
			lines = append(lines, renderStatusLine("Disable Effects", statusInfo, yesNo(cfg.Startup.DisableEffects), colorize))
			lines = append(lines, renderStatusLine("Mute Digital Routes", statusInfo, yesNo(cfg.Startup.MuteMostDigitalRoutes), colorize))
			lines = append(lines, renderStatusLine("Mute Analog Routes", statusInfo, yesNo(cfg.Startup.MuteAnalogRoutes), colorize))
			lines = append(lines, renderStatusLine("Pass Through Inputs", statusInfo, yesNo(cfg.Startup.PassThroughInputs), colorize))
			preset := cfg.Startup.Preset
			if strings.TrimSpace(preset) == "" {
				preset = "(none)"
			}
			lines = append(lines, renderStatusLine("Preset", statusInfo, preset, colorize))

			lines = append(lines, renderSectionHeader("Watcher", colorize)...)
			lines = append(lines, renderStatusLine("Poll Timeout", statusInfo, fmt.Sprintf("%d ms", cfg.Watcher.PollTimeoutMS), colorize))
			lines = append(lines, renderStatusLine("Journal Size", statusInfo, strconv.Itoa(cfg.Watcher.JournalSize), colorize))

			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			lines = append(lines, renderStatusLine("Socket", statusInfo, cfg.Daemon.SocketPath, colorize))
			lines = append(lines, renderStatusLine("Lock", statusInfo, cfg.Daemon.LockPath, colorize))

			lines = append(lines, renderSectionHeader("Logging", colorize)...)
			lines = append(lines, renderStatusLine("Format", statusInfo, cfg.Logging.Format, colorize))
			lines = append(lines, renderStatusLine("Level", statusInfo, cfg.Logging.Level, colorize))
			logFile := cfg.Logging.File
			if strings.TrimSpace(logFile) == "" {
				logFile = "(stderr only)"
			}
			lines = append(lines, renderStatusLine("File", statusInfo, logFile, colorize))

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}
}
