package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/sttkit/notify"
)

// Notifier records messages sent to it.
type Notifier struct {
	mu       sync.Mutex
	messages []notify.Message
	// Err is returned for every channel when set.
	Err error
}

// Send records msg.
func (n *Notifier) Send(_ context.Context, msg notify.Message) map[string]error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return map[string]error{"fake": n.Err}
}

// Messages returns the recorded messages.
func (n *Notifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}
