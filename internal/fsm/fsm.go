package fsm

import (
	"fmt"

	"github.com/rbright/cadence/internal/protocol"
)

type State string

type Event string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

const (
	EventPlay    Event = "play"
	EventPause   Event = "pause"
	EventUnpause Event = "unpause"
	EventStop    Event = "stop"
	EventFinish  Event = "finish"
)

// Transition returns the playback state after event. Stop is accepted from
// every state.
func Transition(current State, event Event) (State, error) {
	if event == EventStop {
		switch current {
		case StateStopped, StatePlaying, StatePaused:
			return StateStopped, nil
		}
	}

	switch current {
	case StateStopped:
		switch event {
		case EventPlay:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventPlay:
			return StatePlaying, nil
		case EventPause:
			return StatePaused, nil
		case EventFinish:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventPlay, EventUnpause:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Wire maps s onto the value reported by GET_STATE.
func (s State) Wire() protocol.PlayState {
	switch s {
	case StatePlaying:
		return protocol.StatePlay
	case StatePaused:
		return protocol.StatePause
	default:
		return protocol.StateStop
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
