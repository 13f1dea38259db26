package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/observability"
)

// Dispatcher fans messages out to named channels.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
	metrics  *observability.Metrics
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the given channels. Later
// channels replace earlier ones with the same name.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{channels: make(map[string]Channel), log: logger.Get("notify")}
	for _, ch := range channels {
		d.Add(ch)
	}
	return d
}

// WithMetrics records deliveries on m.
func (d *Dispatcher) WithMetrics(m *observability.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Add registers a channel.
func (d *Dispatcher) Add(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.channels[ch.Name()]; !exists {
		d.order = append(d.order, ch.Name())
	}
	d.channels[ch.Name()] = ch
}

// Channels returns channel names in registration order.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Send delivers msg to msg.Channel, or to every channel when it is empty or
// AllChannels. Channels are sent to concurrently. The result holds one
// entry per targeted channel.
func (d *Dispatcher) Send(ctx context.Context, msg Message) map[string]error {
	targets, results := d.targets(msg.Channel)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ch.Send(ctx, msg)
			d.metrics.RecordNotification(ctx, ch.Name(), err)
			if err != nil {
				d.log.Warn("notification delivery failed", logger.Fields(
					"channel", ch.Name(),
					logger.FieldError, err,
				))
			}
			mu.Lock()
			results[ch.Name()] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) targets(name string) ([]Channel, map[string]error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	results := make(map[string]error)
	if name == "" || name == AllChannels {
		out := make([]Channel, 0, len(d.order))
		for _, n := range d.order {
			out = append(out, d.channels[n])
		}
		return out, results
	}
	ch, ok := d.channels[name]
	if !ok {
		results[name] = fmt.Errorf("notify: unknown channel %q", name)
		return nil, results
	}
	return []Channel{ch}, results
}
