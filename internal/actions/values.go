package actions

import (
	"fmt"
	"strconv"
	"strings"
)

// Control is a named server playback option.
type Control string

const (
	ControlShuffle  Control = "Shuffle"
	ControlAutoNext Control = "AutoNext"
	ControlRepeat   Control = "Repeat"
)

var controlAliases = map[string]Control{
	"shuffle":  ControlShuffle,
	"s":        ControlShuffle,
	"autonext": ControlAutoNext,
	"n":        ControlAutoNext,
	"repeat":   ControlRepeat,
	"r":        ControlRepeat,
}

// ParseControls parses a comma-separated control list such as "shuffle,r".
func ParseControls(list string) ([]Control, error) {
	var controls []Control
	for _, raw := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		control, ok := controlAliases[name]
		if !ok {
			return nil, fmt.Errorf("unknown control %q (expected shuffle, autonext or repeat)", raw)
		}
		controls = append(controls, control)
	}
	if len(controls) == 0 {
		return nil, fmt.Errorf("no control given")
	}
	return controls, nil
}

// VolumeChange is an absolute or relative mixer adjustment.
type VolumeChange struct {
	Relative bool
	Level    int
}

// ParseVolume parses "[+|-]LEVEL". A sign makes the change relative.
func ParseVolume(s string) (VolumeChange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VolumeChange{}, fmt.Errorf("volume level is empty")
	}
	relative := s[0] == '+' || s[0] == '-'
	level, err := strconv.Atoi(s)
	if err != nil {
		return VolumeChange{}, fmt.Errorf("volume level %q is not a number", s)
	}
	return VolumeChange{Relative: relative, Level: level}, nil
}

// Apply returns the resulting level for current, clamped to 0..100.
func (v VolumeChange) Apply(current int) int {
	level := v.Level
	if v.Relative {
		level = current + v.Level
	}
	return min(max(level, 0), 100)
}

// ParseJump parses "N%" or "Ns" (case-insensitive unit).
func ParseJump(s string) (int, JumpUnit, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, JumpNone, fmt.Errorf("jump target %q must be N%% or Ns", s)
	}
	unit := JumpUnit(strings.ToLower(s[len(s)-1:])[0])
	if unit != JumpPercent && unit != JumpSeconds {
		return 0, JumpNone, fmt.Errorf("jump target %q must be N%% or Ns", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, JumpNone, fmt.Errorf("jump target %q must be N%% or Ns", s)
	}
	return n, unit, nil
}
