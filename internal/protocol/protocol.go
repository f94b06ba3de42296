// Package protocol defines the client/server wire vocabulary and its fixed-width codec.
package protocol

import "fmt"

// Command is a client->server opcode.
type Command int32

// Event is a server->client opcode.
type Event int32

// PlayState is the value carried by DATA after GET_STATE.
type PlayState int32

const (
	CommandPlay          Command = 0x00
	CommandListClear     Command = 0x01
	CommandListAdd       Command = 0x02
	CommandStop          Command = 0x04
	CommandPause         Command = 0x05
	CommandUnpause       Command = 0x06
	CommandSetOption     Command = 0x07
	CommandGetOption     Command = 0x08
	CommandGetCTime      Command = 0x0d
	CommandGetSName      Command = 0x0f
	CommandNext          Command = 0x10
	CommandQuit          Command = 0x11
	CommandSeek          Command = 0x12
	CommandGetState      Command = 0x13
	CommandDisconnect    Command = 0x15
	CommandPing          Command = 0x19
	CommandGetMixer      Command = 0x1a
	CommandSetMixer      Command = 0x1b
	CommandPrev          Command = 0x20
	CommandCliPlistAdd   Command = 0x24
	CommandCliPlistClear Command = 0x25
	CommandGetTag        Command = 0x2b
	CommandJumpTo        Command = 0x2e
	CommandJumpPercent   Command = 0x2f
	CommandQueueAdd      Command = 0x31
	CommandGetTTime      Command = 0x32
)

const (
	EventState    Event = 0x01
	EventCTime    Event = 0x02
	EventSrvError Event = 0x04
	EventBusy     Event = 0x05
	EventData     Event = 0x06
	EventExit     Event = 0x0a
	EventPong     Event = 0x0b
	EventText     Event = 0x0c
)

const (
	StatePlay  PlayState = 0x01
	StateStop  PlayState = 0x02
	StatePause PlayState = 0x03
)

var commandNames = map[Command]string{
	CommandPlay:          "PLAY",
	CommandListClear:     "LIST_CLEAR",
	CommandListAdd:       "LIST_ADD",
	CommandStop:          "STOP",
	CommandPause:         "PAUSE",
	CommandUnpause:       "UNPAUSE",
	CommandSetOption:     "SET_OPTION",
	CommandGetOption:     "GET_OPTION",
	CommandGetCTime:      "GET_CTIME",
	CommandGetSName:      "GET_SNAME",
	CommandNext:          "NEXT",
	CommandQuit:          "QUIT",
	CommandSeek:          "SEEK",
	CommandGetState:      "GET_STATE",
	CommandDisconnect:    "DISCONNECT",
	CommandPing:          "PING",
	CommandGetMixer:      "GET_MIXER",
	CommandSetMixer:      "SET_MIXER",
	CommandPrev:          "PREV",
	CommandCliPlistAdd:   "CLI_PLIST_ADD",
	CommandCliPlistClear: "CLI_PLIST_CLEAR",
	CommandGetTag:        "GET_TAG",
	CommandJumpTo:        "JUMP_TO",
	CommandJumpPercent:   "JUMP_PERCENT",
	CommandQueueAdd:      "QUEUE_ADD",
	CommandGetTTime:      "GET_TTIME",
}

var eventNames = map[Event]string{
	EventState:    "STATE",
	EventCTime:    "CTIME",
	EventSrvError: "SRV_ERROR",
	EventBusy:     "BUSY",
	EventData:     "DATA",
	EventExit:     "EXIT",
	EventPong:     "PONG",
	EventText:     "TEXT",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COMMAND(%#x)", int32(c))
}

// Known reports whether c belongs to the command enumeration.
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EVENT(%#x)", int32(e))
}

func (s PlayState) String() string {
	switch s {
	case StatePlay:
		return "PLAY"
	case StateStop:
		return "STOP"
	case StatePause:
		return "PAUSE"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Message is one decoded server event with its payload, if any.
type Message struct {
	Event Event
	// Value is set only for EventData.
	Value int32
	// Text is set only for EventText.
	Text string
}
