package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Card selects which sound card the daemon binds to.
type Card struct {
	// Match lists name fragments; the first card whose id or description
	// contains one of them is used. Ignored when Index is set.
	Match []string `toml:"match"`
	// Index pins an explicit ALSA card index. -1 means discover by Match.
	Index int `toml:"index"`
}

// Startup describes the mutations applied right after the mixer is built.
type Startup struct {
	DisableEffects        bool   `toml:"disable_effects"`
	MuteMostDigitalRoutes bool   `toml:"mute_most_digital_routes"`
	MuteAnalogRoutes      bool   `toml:"mute_analog_routes"`
	PassThroughInputs     bool   `toml:"pass_through_inputs"`
	// Preset is an optional preset file loaded immediately after the
	// startup mutations.
	Preset string `toml:"preset"`
}

// Watcher contains hardware change-detection settings.
type Watcher struct {
	// PollTimeoutMS bounds one wait for hardware change events.
	PollTimeoutMS int `toml:"poll_timeout_ms"`
	// JournalSize is the capacity of the change journal served over IPC.
	JournalSize int `toml:"journal_size"`
}

// Daemon contains process-level paths.
type Daemon struct {
	SocketPath string `toml:"socket_path"`
	LockPath   string `toml:"lock_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for ftumix.
//
// Sections by subsystem:
//   - Card: which sound card to control
//   - Startup: mutations applied when the daemon comes up
//   - Watcher: hardware change-detection timing
//   - Daemon: socket and lock file locations
//   - Logging: log format, level, and optional file
type Config struct {
	Card    Card    `toml:"card"`
	Startup Startup `toml:"startup"`
	Watcher Watcher `toml:"watcher"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ftumix/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply and exists reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ftumix.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := make([]string, 0, 3)
	for _, path := range []string{c.Daemon.SocketPath, c.Daemon.LockPath, c.Logging.File} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AmixerBinary returns the ALSA mixer executable name.
func (c *Config) AmixerBinary() string {
	return "amixer"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
