package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// ConsoleChannel writes one line per message.
type ConsoleChannel struct {
	name string
	now  func() time.Time

	mu  sync.Mutex
	out io.Writer
}

// NewConsoleChannel creates a console channel. A nil writer uses stdout.
func NewConsoleChannel(name string, out io.Writer) *ConsoleChannel {
	if name == "" {
		name = "console"
	}
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleChannel{name: name, out: out, now: time.Now}
}

// Name returns the channel name.
func (c *ConsoleChannel) Name() string { return c.name }

// Send writes msg as "<time> [name] message key=value ...", metadata keys sorted.
func (c *ConsoleChannel) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	b.WriteString(c.now().UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(c.name)
	b.WriteString("] ")
	b.WriteString(strings.ReplaceAll(msg.Message, "\n", " "))
	keys := make([]string, 0, len(msg.Metadata))
	for k := range msg.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, msg.Metadata[k])
	}
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, b.String())
	return err
}
