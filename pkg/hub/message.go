package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// MessageType selects the websocket frame a message is written as.
type MessageType int

const (
	// JSONMessage is sent as a text frame
	JSONMessage MessageType = iota
	// BinaryMessage is sent as a binary frame (JPEG previews)
	BinaryMessage
)

// Message is one outbound payload, shared by every client it is fanned out to.
// Data must not be modified after it is broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// Encode marshals v into a JSON message.
func Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: JSONMessage, Data: data}, nil
}

// Binary wraps an encoded frame.
func Binary(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// opcode returns the websocket frame type for m.
func (m Message) opcode() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
