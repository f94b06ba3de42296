package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty control dir", mutate: func(c *Config) { c.ControlDir = " " }, wantErr: "control_dir"},
		{name: "zero max clients", mutate: func(c *Config) { c.MaxClients = 0 }, wantErr: "max_clients"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "volume too high", mutate: func(c *Config) { c.Volume = 101 }, wantErr: "volume"},
		{name: "negative volume", mutate: func(c *Config) { c.Volume = -1 }, wantErr: "volume"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnRepeatWithoutAutoNext(t *testing.T) {
	cfg := Default()
	cfg.Repeat = true
	cfg.AutoNext = false

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "repeat")
}

func TestLevel(t *testing.T) {
	cfg := Default()
	require.Equal(t, slog.LevelInfo, cfg.Level())

	cfg.LogLevel = "DEBUG"
	require.Equal(t, slog.LevelDebug, cfg.Level())

	cfg.LogLevel = "nope"
	require.Equal(t, slog.LevelInfo, cfg.Level())
}
