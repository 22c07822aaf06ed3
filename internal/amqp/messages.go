package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensely/internal/core"
)

// MessageVersion is bumped on incompatible changes to ExpenseEventMessage.
const MessageVersion = 1

var ErrMalformedMessage = errors.New("malformed expense event message")

// ExpenseEventMessage carries one expense event. Consumers fetch nothing
// else; the event is self-contained.
type ExpenseEventMessage struct {
	Version     int               `json:"version"`
	Event       core.ExpenseEvent `json:"event"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewExpenseEventMessage wraps ev for publishing.
func NewExpenseEventMessage(ev core.ExpenseEvent) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Version:     MessageVersion,
		Event:       ev,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON decodes and checks a message body.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Version != MessageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedMessage, msg.Version)
	}
	switch msg.Event.Type {
	case core.ExpenseCreated, core.ExpenseUpdated, core.ExpenseDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedMessage, msg.Event.Type)
	}
	if msg.Event.ID == "" || msg.Event.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing event id or user id", ErrMalformedMessage)
	}
	return &msg, nil
}
