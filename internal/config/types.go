// Package config resolves, parses, validates, and defaults cadence configuration.
package config

// Config is the fully materialized runtime configuration used by cadence.
type Config struct {
	ControlDir string `koanf:"control_dir"`
	StateDB    string `koanf:"state_db"`
	MaxClients int    `koanf:"max_clients"`
	LogLevel   string `koanf:"log_level"`

	Shuffle  bool `koanf:"shuffle"`
	Repeat   bool `koanf:"repeat"`
	AutoNext bool `koanf:"autonext"`
	Volume   int  `koanf:"volume"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

var knownKeys = map[string]struct{}{
	"control_dir": {},
	"state_db":    {},
	"max_clients": {},
	"log_level":   {},
	"shuffle":     {},
	"repeat":      {},
	"autonext":    {},
	"volume":      {},
}
