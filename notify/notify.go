package notify

import "context"

// AllChannels addresses every registered channel.
const AllChannels = "*"

// Message is a notification addressed to a channel.
type Message struct {
	// Channel is the target channel name. Empty or AllChannels fans out.
	Channel  string         `json:"channel"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Channel delivers messages to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Notifier sends a message and reports the outcome per channel. A nil error
// in the map means the channel accepted the message.
type Notifier interface {
	Send(ctx context.Context, msg Message) map[string]error
}
