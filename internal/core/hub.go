package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Scope selects which registered connections receive a broadcast.
type Scope int

const (
	// ScopeGlobal delivers every broadcast to every registered connection,
	// whatever timetable it declared.
	ScopeGlobal Scope = iota
	// ScopeTimetable delivers only to connections of the originating timetable.
	ScopeTimetable
)

// ParseScope maps a config value ("global", "timetable") to a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return ScopeGlobal, nil
	case "timetable":
		return ScopeTimetable, nil
	default:
		return ScopeGlobal, fmt.Errorf("unknown broadcast scope %q", s)
	}
}

func (s Scope) String() string {
	if s == ScopeTimetable {
		return "timetable"
	}
	return "global"
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Timetables  int `json:"timetables"`
}

// Hub is the connection registry and broadcast dispatcher.
// It is created once per process and shared by every connection handler.
type Hub struct {
	scope Scope
	log   *zerolog.Logger

	mu         sync.RWMutex
	partitions map[string]*partition
	count      int
	closed     bool
}

// NewHub creates an empty hub. A nil logger disables logging.
func NewHub(scope Scope, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		scope:      scope,
		log:        logger,
		partitions: make(map[string]*partition),
	}
}

// Scope reports the delivery scope the hub was built with.
func (h *Hub) Scope() Scope { return h.scope }

// Register opens an accepted connection and adds it to the live set.
func (h *Hub) Register(c Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if err := c.Open(); err != nil {
		return err
	}

	p, ok := h.partitions[c.Timetable()]
	if !ok {
		p = newPartition(c.Timetable())
		h.partitions[c.Timetable()] = p
	}
	if p.add(c) {
		h.count++
		h.log.Debug().
			Str("client_id", c.ID()).
			Str("timetable_id", c.Timetable()).
			Int("connections", h.count).
			Msg("client registered")
	}
	return nil
}

// Unregister removes a registered connection and closes it. Connections the
// hub does not hold are left untouched.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	removed := false
	if p, ok := h.partitions[c.Timetable()]; ok && p.remove(c) {
		removed = true
		h.count--
		if p.empty() {
			delete(h.partitions, c.Timetable())
		}
	}
	count := h.count
	h.mu.Unlock()

	if !removed {
		return
	}
	c.Close()
	h.log.Debug().
		Str("client_id", c.ID()).
		Str("timetable_id", c.Timetable()).
		Int("connections", count).
		Msg("client unregistered")
}

// Broadcast delivers msg to every recipient in scope and returns the number of
// successful deliveries. A failed send is logged and skipped.
func (h *Hub) Broadcast(msg Message) int {
	recipients := h.recipients(msg.Timetable)

	delivered := 0
	for _, c := range recipients {
		if err := c.Send(msg); err != nil {
			h.log.Warn().
				Err(err).
				Str("client_id", c.ID()).
				Str("timetable_id", msg.Timetable).
				Msg("broadcast delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}

// Publish broadcasts a server-originated payload for a timetable.
func (h *Hub) Publish(timetableID, payload string) int {
	return h.Broadcast(Message{Timetable: timetableID, Payload: payload})
}

func (h *Hub) recipients(timetableID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.scope == ScopeTimetable {
		p, ok := h.partitions[timetableID]
		if !ok {
			return nil
		}
		return p.appendTo(make([]Conn, 0, len(p.conns)))
	}

	out := make([]Conn, 0, h.count)
	for _, p := range h.partitions {
		out = p.appendTo(out)
	}
	return out
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stats returns registry counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{Connections: h.count, Timetables: len(h.partitions)}
}

// Run blocks until ctx is done and then drains the hub.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Shutdown()
}

// Shutdown closes every registered connection and rejects new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make([]Conn, 0, h.count)
	for _, p := range h.partitions {
		conns = p.appendTo(conns)
	}
	h.partitions = make(map[string]*partition)
	h.count = 0
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	h.log.Info().Int("connections", len(conns)).Msg("hub drained")
}
