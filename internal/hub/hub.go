package hub

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/protocol"
)

// Hub tracks connections and channel membership.
// All methods are safe for concurrent use.
//
// Invariant: every channel member is a registered client.
type Hub struct {
	outboxSize int
	logger     *zap.Logger

	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]struct{}
}

// New creates an empty Hub whose clients buffer up to outboxSize events.
//
// Precondition: logger must be non-nil.
func New(outboxSize int, logger *zap.Logger) *Hub {
	return &Hub{
		outboxSize: outboxSize,
		logger:     logger,
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]struct{}),
	}
}

// Register adds a connection.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the new Client, or an error if id is already registered.
func (h *Hub) Register(id string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.clients[id]; exists {
		return nil, fmt.Errorf("connection %q already registered", id)
	}
	c := newClient(id, h.outboxSize)
	h.clients[id] = c
	return c, nil
}

// Unregister removes a connection from every channel and closes its outbox.
// Unknown IDs are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		for name, members := range h.channels {
			delete(members, id)
			if len(members) == 0 {
				delete(h.channels, name)
			}
		}
	}
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Subscribe adds a registered connection to channel. Unknown connections are ignored.
func (h *Hub) Subscribe(id, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		h.logger.Debug("subscribe for unknown connection",
			observability.Conn(id), zap.String("channel", channel))
		return
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		h.channels[channel] = members
	}
	members[id] = struct{}{}
}

// Unsubscribe removes a connection from channel. Empty channels are dropped.
func (h *Hub) Unsubscribe(id, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// SendTo delivers an event to a single connection.
func (h *Hub) SendTo(id, name string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(c, protocol.Outbound{Name: name, Payload: payload})
}

// Broadcast delivers an event to every member of channel.
func (h *Hub) Broadcast(channel, name string, payload any) {
	h.BroadcastExcept(channel, "", name, payload)
}

// BroadcastExcept delivers an event to every member of channel except excludeID.
func (h *Hub) BroadcastExcept(channel, excludeID, name string, payload any) {
	ev := protocol.Outbound{Name: name, Payload: payload}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[channel]))
	for id := range h.channels[channel] {
		if id == excludeID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, ev)
	}
}

func (h *Hub) deliver(c *Client, ev protocol.Outbound) {
	if err := c.push(ev); err != nil {
		h.logger.Warn("dropping outbound event",
			observability.Conn(c.ID()),
			observability.Event(ev.Name),
			zap.Error(err),
		)
	}
}

// Members returns the sorted connection IDs subscribed to channel.
func (h *Hub) Members(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.channels[channel]))
	for id := range h.channels[channel] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelCount returns the number of non-empty channels.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
