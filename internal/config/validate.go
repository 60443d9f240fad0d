package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCard(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCard() error {
	if c.Card.Index < -1 {
		return fmt.Errorf("card.index must be -1 (discover) or a card number, got %d", c.Card.Index)
	}
	if c.Card.Index == -1 && len(c.Card.Match) == 0 {
		return errors.New("card.match must list at least one name fragment when card.index is -1")
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.PollTimeoutMS < 1 {
		return fmt.Errorf("watcher.poll_timeout_ms must be positive, got %d", c.Watcher.PollTimeoutMS)
	}
	if c.Watcher.JournalSize < 1 {
		return fmt.Errorf("watcher.journal_size must be positive, got %d", c.Watcher.JournalSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
