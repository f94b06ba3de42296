package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/v2"
)

var ErrBadOverride = errors.New("invalid option override")

// Parse unmarshals k over base, expands ~ in paths, and validates.
// Unknown keys are rejected.
func Parse(k *koanf.Koanf, base Config) (Config, []Warning, error) {
	var unknown []string
	for _, key := range k.Keys() {
		if _, ok := knownKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, nil, fmt.Errorf("unknown config key(s): %s", strings.Join(unknown, ", "))
	}

	cfg := base
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, nil, err
	}

	var err error
	if cfg.ControlDir, err = ExpandPath(cfg.ControlDir); err != nil {
		return Config{}, nil, err
	}
	if cfg.StateDB, err = ExpandPath(cfg.StateDB); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

// ApplyOverrides sets each NAME=VALUE pair on k. Values are converted when
// unmarshalled, so "volume=40" and "shuffle=true" both work.
func ApplyOverrides(k *koanf.Koanf, overrides []string) error {
	for _, raw := range overrides {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return fmt.Errorf("%w %q: expected NAME=VALUE", ErrBadOverride, raw)
		}
		if _, known := knownKeys[name]; !known {
			return fmt.Errorf("%w %q: unknown option %q", ErrBadOverride, raw, name)
		}
		if err := k.Set(name, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w %q: %v", ErrBadOverride, raw, err)
		}
	}
	return nil
}
