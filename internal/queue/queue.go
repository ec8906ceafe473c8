package queue

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrDropMessage tells the consumer a message is permanently unprocessable.
// The consumer acknowledges and drops it instead of requeueing.
var ErrDropMessage = errors.New("drop message")

// Message is the envelope published to the notifications queue.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher sends messages to a named queue.
type Publisher interface {
	Publish(ctx context.Context, target string, msg *Message) error
	Close() error
}

// Handler processes a single consumed message. Returning an error wrapped
// around ErrDropMessage acknowledges the message without retrying.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer pulls messages off a queue and feeds them to a Handler.
type Consumer interface {
	Start() error
	Stop(ctx context.Context) error
}
