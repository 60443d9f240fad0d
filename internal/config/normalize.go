package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeCard()
	if err := c.normalizeStartup(); err != nil {
		return err
	}
	c.normalizeWatcher()
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeCard() {
	match := make([]string, 0, len(c.Card.Match))
	for _, fragment := range c.Card.Match {
		if trimmed := strings.TrimSpace(fragment); trimmed != "" {
			match = append(match, trimmed)
		}
	}
	if len(match) == 0 {
		match = defaultCardMatch()
	}
	c.Card.Match = match
}

func (c *Config) normalizeStartup() error {
	c.Startup.Preset = strings.TrimSpace(c.Startup.Preset)
	if c.Startup.Preset == "" {
		return nil
	}
	expanded, err := expandPath(c.Startup.Preset)
	if err != nil {
		return fmt.Errorf("startup.preset: %w", err)
	}
	c.Startup.Preset = expanded
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.PollTimeoutMS == 0 {
		c.Watcher.PollTimeoutMS = defaultWatcherTimeoutMS
	}
	if c.Watcher.JournalSize == 0 {
		c.Watcher.JournalSize = defaultJournalSize
	}
}

func (c *Config) normalizeDaemon() error {
	c.Daemon.SocketPath = strings.TrimSpace(c.Daemon.SocketPath)
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = defaultSocketPath
	}
	// FTUMIX_SOCKET steps in only while the file leaves the socket at the
	// built-in default; an explicit socket_path always wins.
	if c.Daemon.SocketPath == defaultSocketPath {
		if value := strings.TrimSpace(os.Getenv("FTUMIX_SOCKET")); value != "" {
			c.Daemon.SocketPath = value
		}
	}
	var err error
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	c.Daemon.LockPath = strings.TrimSpace(c.Daemon.LockPath)
	if c.Daemon.LockPath == "" {
		c.Daemon.LockPath = defaultLockPath
	}
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if c.Logging.File != "" {
		expanded, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
