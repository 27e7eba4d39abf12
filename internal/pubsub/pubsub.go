package pubsub

import (
	"context"
)

// Topics used by the relay. The HTTP boundary publishes normalized bot
// messages on TopicResponses; the WebSocket bridge fans them out. Frames
// received from connected clients are republished on TopicInbound.
const (
	TopicResponses = "relay.responses"
	TopicInbound   = "relay.inbound"
)

// Message is the structure passed between components on the bus.
// It is intentionally simple to act as a wrapper for raw data.
type Message struct {
	// Topic identifies the channel the message belongs to.
	Topic string
	// UserID identifies the user the message concerns, when known.
	UserID string
	// Payload contains the raw message data, typically JSON.
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context.
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the Pub/Sub system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the Pub/Sub system.
type Subscriber interface {
	// Subscribe starts listening to the given topic, processing messages
	// with the handler. The subscription runs until the context is canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
