// Package hub is the connection and broadcast layer. It tracks live
// connections, groups them into named channels, and fans outbound events into
// each connection's outbox. It knows nothing about game rules.
package hub

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/wordrace/internal/protocol"
)

// ErrClientClosed is returned when pushing to an unregistered client.
var ErrClientClosed = errors.New("client closed")

// ErrOutboxFull is returned when a client's outbox has no room.
var ErrOutboxFull = errors.New("outbox full")

// Client is one live connection's outbound queue. Transports drain Outbox
// and write each event to the wire.
type Client struct {
	id     string
	outbox chan protocol.Outbound
	mu     sync.Mutex
	closed bool
}

func newClient(id string, size int) *Client {
	if size <= 0 {
		size = 64
	}
	return &Client{id: id, outbox: make(chan protocol.Outbound, size)}
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

// Outbox returns the receive side of the client's queue. It is closed when
// the client is unregistered.
func (c *Client) Outbox() <-chan protocol.Outbound { return c.outbox }

// push enqueues without blocking.
func (c *Client) push(ev protocol.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client %s: %w", c.id, ErrClientClosed)
	}
	select {
	case c.outbox <- ev:
		return nil
	default:
		return fmt.Errorf("client %s: %w", c.id, ErrOutboxFull)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

// Closed reports whether the client has been unregistered.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
