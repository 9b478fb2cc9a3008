package core

import "sync"

// DefaultSendBuffer is the outbound queue capacity used when none is configured.
const DefaultSendBuffer = 16

// State is a position in the connection lifecycle.
type State int

const (
	// StateConnecting is the initial state, before the hub accepted the client.
	StateConnecting State = iota
	// StateOpen means the client is registered and may send and receive.
	StateOpen
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is a live connection as seen by the hub.
type Conn interface {
	ID() string
	Timetable() string
	// Send queues a message for delivery. It must not block.
	Send(msg Message) error
	// Open moves the connection from Connecting to Open.
	Open() error
	// Close moves the connection to Closed. Calling it twice is a no-op.
	Close()
}

// Client is a websocket participant viewing one timetable.
// Outbound messages are queued on Events and written by the transport.
type Client struct {
	id        string
	timetable string
	events    chan Message

	mu    sync.Mutex
	state State
}

// NewClient constructs a client in the Connecting state.
func NewClient(id, timetableID string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Client{
		id:        id,
		timetable: timetableID,
		events:    make(chan Message, sendBuffer),
	}
}

// ID returns the transient connection id.
func (c *Client) ID() string { return c.id }

// Timetable returns the timetable id declared on connect.
func (c *Client) Timetable() string { return c.timetable }

// Events is closed once the client reaches StateClosed.
func (c *Client) Events() <-chan Message { return c.events }

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open implements Conn.
func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnecting:
		c.state = StateOpen
		return nil
	case StateOpen:
		return nil
	default:
		return ErrClientClosed
	}
}

// Send implements Conn. A full queue yields ErrSlowConsumer and drops the message.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return ErrClientClosed
	}
	select {
	case c.events <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close implements Conn.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	close(c.events)
}
