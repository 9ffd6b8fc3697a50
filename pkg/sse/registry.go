package sse

import (
	"sync"
)

// Event is a single server-sent event: a name and a pre-serialized payload.
type Event struct {
	Name string
	Data []byte
}

// Conn is the receiving end of a registered live connection. Events are
// delivered on a buffered channel; when the connection is replaced or the
// registry shuts down, the channel is closed.
type Conn struct {
	mu     sync.RWMutex
	events chan Event
	closed bool
}

func newConn(bufferSize int) *Conn {
	return &Conn{events: make(chan Event, bufferSize)}
}

// Events returns the channel the transport handler drains. The channel is
// closed when the connection is evicted or the registry closes.
func (c *Conn) Events() <-chan Event {
	return c.events
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

// send enqueues without blocking. A full buffer means a slow consumer; the
// event is dropped rather than stalling the sender. The closed check and
// the channel send share the connection lock, so a reconnect closing this
// channel concurrently cannot panic an in-flight send.
func (c *Conn) send(ev Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// Registry is the process-wide map of live connections, at most one per
// user. Opening a second connection for a user forcibly closes the first.
// All methods are safe for concurrent use; no other component may touch the
// map directly.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*Conn
	bufferSize int
	closed     bool
}

// NewRegistry creates a connection registry. bufferSize is the per-connection
// event buffer; a minimum of 1 is enforced so sends stay non-blocking.
func NewRegistry(bufferSize int) *Registry {
	return &Registry{
		conns:      make(map[string]*Conn),
		bufferSize: max(bufferSize, 1),
	}
}

// Register creates a live connection for the user, replacing and closing any
// prior one. Returns a closed connection if the registry has shut down.
func (r *Registry) Register(userID string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := newConn(r.bufferSize)
	if r.closed {
		conn.close()
		return conn
	}

	if prev, ok := r.conns[userID]; ok {
		prev.close()
	}
	r.conns[userID] = conn
	return conn
}

// Unregister removes the mapping if conn is still the user's current
// connection. A replaced connection unregistering late must not evict its
// successor.
func (r *Registry) Unregister(userID string, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[userID]; ok && cur == conn {
		delete(r.conns, userID)
	}
	conn.close()
}

// Send pushes an event to the user's live connection if one exists.
// Returns true only when the event was enqueued; false means the user is
// offline or the consumer is too slow. Never blocks and never errors: the
// durable notification log is the record of truth, live push is an
// accelerant.
func (r *Registry) Send(userID string, ev Event) bool {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	return conn.send(ev)
}

// Len reports the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close shuts down the registry and closes every connection. Subsequent
// Register calls return already-closed connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, conn := range r.conns {
		conn.close()
	}
	clear(r.conns)
}
