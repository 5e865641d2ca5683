package live

import (
	"encoding/json"
	"fmt"
)

// Command is an inbound frame decoded to its variant. Command names this
// server does not know decode to UnknownCommand rather than an error, so
// the vocabulary can grow without breaking older servers.
type Command interface{ inboundCommand() }

// KeepaliveCommand is a client-side liveness signal. It needs no reply.
type KeepaliveCommand struct{}

// EventCommand carries a world event for relay to subscribers.
type EventCommand struct {
	Data json.RawMessage
}

// UnknownCommand preserves the name of an unrecognized command.
type UnknownCommand struct {
	Name string
}

func (KeepaliveCommand) inboundCommand() {}
func (EventCommand) inboundCommand()     {}
func (UnknownCommand) inboundCommand()   {}

// DecodeCommand parses an inbound frame. Clients send {cmd: <string>,
// data: <any>}. An error means the frame was not a JSON object with a
// string cmd field; such frames are dropped without closing the connection.
func DecodeCommand(raw []byte) (Command, error) {
	var frame struct {
		Command string          `json:"cmd"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if frame.Command == "" {
		return nil, fmt.Errorf("frame has no cmd field")
	}

	switch frame.Command {
	case "keepalive":
		return KeepaliveCommand{}, nil
	case "event":
		return EventCommand{Data: frame.Data}, nil
	default:
		return UnknownCommand{Name: frame.Command}, nil
	}
}

// envelope is the wire shape of every frame the server sends.
type envelope struct {
	Command string `json:"command"`
	Source  string `json:"source,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// registerFrame is the first frame every connection receives; data holds
// the id the server assigned to it.
func registerFrame(id string) []byte {
	frame, err := json.Marshal(envelope{Command: "register", Data: id})
	if err != nil {
		panic(err) // unreachable: a string payload always marshals
	}
	return frame
}
