package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		ControlDir: "~/.cadence",
		StateDB:    "",
		MaxClients: 10,
		LogLevel:   "info",
		AutoNext:   true,
		Volume:     100,
	}
}
