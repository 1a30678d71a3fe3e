// Package outbound delivers assistant messages to chat channels. Each sender
// wraps one platform client; the registry routes by channel name.
package outbound

import (
	"context"
	"fmt"
	"sync"
)

// Delivery describes one sent message.
type Delivery struct {
	Channel   string
	To        string
	MessageID string
}

// Summary formats the delivery for a tool result.
func (d Delivery) Summary() string {
	id := d.MessageID
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("sent via %s to %s (message id %s)", d.Channel, d.To, id)
}

// Sender delivers text to one platform.
type Sender interface {
	// Channel returns the channel name this sender serves.
	Channel() string

	// Send delivers text to the recipient and returns the delivery record.
	Send(ctx context.Context, to, text string) (*Delivery, error)
}

// Registry routes deliveries by channel.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register adds a sender, replacing any prior sender for the channel.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Channel()] = s
}

// Channels returns the registered channel names.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.senders))
	for name := range r.senders {
		out = append(out, name)
	}
	return out
}

// Send routes text to the named channel.
func (r *Registry) Send(ctx context.Context, channel, to, text string) (*Delivery, error) {
	r.mu.RLock()
	s, ok := r.senders[channel]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sender for channel %q", channel)
	}
	return s.Send(ctx, to, text)
}
