// AngelaMos | 2026
// message.go

package realtime

import (
	"encoding/json"
	"fmt"
)

const (
	TypeNotification = "notification"
	TypeMessage      = "message"
	TypeChat         = "chat"
	TypeTyping       = "typing"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Message is the tagged frame exchanged over a realtime connection.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewMessage(typ string, data any) (Message, error) {
	if data == nil {
		return Message{Type: typ}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}

	return Message{Type: typ, Data: raw}, nil
}

// Decode unmarshals the payload into dst.
func (m Message) Decode(dst any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("decode %s payload: empty data", m.Type)
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Envelope addresses a message to every connection of one user. It is the
// unit carried by a Bus between instances.
type Envelope struct {
	UserID  string  `json:"userId"`
	Message Message `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
