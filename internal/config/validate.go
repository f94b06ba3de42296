package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.ControlDir) == "" {
		return nil, fmt.Errorf("control_dir must not be empty")
	}
	if cfg.MaxClients <= 0 {
		return nil, fmt.Errorf("max_clients must be > 0")
	}
	if _, ok := logLevels[strings.ToLower(strings.TrimSpace(cfg.LogLevel))]; !ok {
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	if cfg.Volume < 0 || cfg.Volume > 100 {
		return nil, fmt.Errorf("volume must be between 0 and 100")
	}
	if cfg.Repeat && !cfg.AutoNext {
		warnings = append(warnings, Warning{Message: "repeat has no effect while autonext is off"})
	}

	return warnings, nil
}

// Level maps log_level onto a slog level. Unknown names fall back to info.
func (c Config) Level() slog.Level {
	if level, ok := logLevels[strings.ToLower(strings.TrimSpace(c.LogLevel))]; ok {
		return level
	}
	return slog.LevelInfo
}
