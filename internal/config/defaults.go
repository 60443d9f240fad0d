package config

const (
	defaultCardIndex        = -1
	defaultDisableEffects   = true
	defaultMuteMostDigital  = true
	defaultWatcherTimeoutMS = 700
	defaultJournalSize      = 64
	defaultSocketPath       = "~/.local/share/ftumix/ftumixd.sock"
	defaultLockPath         = "~/.local/share/ftumix/ftumixd.lock"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

func defaultCardMatch() []string {
	// Fast Track Ultra and Ultra 8R identify themselves with these fragments.
	return []string{"Ultra", "F8R"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Card: Card{
			Match: defaultCardMatch(),
			Index: defaultCardIndex,
		},
		Startup: Startup{
			DisableEffects:        defaultDisableEffects,
			MuteMostDigitalRoutes: defaultMuteMostDigital,
		},
		Watcher: Watcher{
			PollTimeoutMS: defaultWatcherTimeoutMS,
			JournalSize:   defaultJournalSize,
		},
		Daemon: Daemon{
			SocketPath: defaultSocketPath,
			LockPath:   defaultLockPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
