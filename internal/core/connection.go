package core

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vovakirdan/pairroom-server/internal/utils"
)

// DefaultSendBuffer is the outbound queue length used when none is configured.
const DefaultSendBuffer = 64

// User is the identity a connection claims when it authenticates.
type User struct {
	ID          int64
	Username    string
	DisplayName string
}

// State is the lifecycle position of a connection.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	default:
		return "unauthenticated"
	}
}

// Connection is one live socket as seen by the core layer.
type Connection struct {
	ID        string
	SessionID string
	Events    chan *Event

	mu           sync.Mutex
	user         *User
	roomCode     string
	lastActivity time.Time
	closed       bool
}

func newConnection(id string, buffer int, now time.Time) *Connection {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Connection{
		ID:           id,
		SessionID:    utils.NewID(),
		Events:       make(chan *Event, buffer),
		lastActivity: now,
	}
}

// User returns the authenticated identity, if any.
func (c *Connection) User() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

func (c *Connection) setUser(u User) {
	c.mu.Lock()
	c.user = &u
	c.mu.Unlock()
}

// RoomCode returns the code of the room the connection sits in, or "".
func (c *Connection) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *Connection) setRoomCode(code string) {
	c.mu.Lock()
	c.roomCode = code
	c.mu.Unlock()
}

// State derives the lifecycle state from identity and room membership.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.user == nil:
		return StateUnauthenticated
	case c.roomCode == "":
		return StateAuthenticated
	default:
		return StateInRoom
	}
}

// LastActivity reports when the connection last sent a message.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Connection) touch(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.mu.Unlock()
}

// Send queues an event without blocking. It returns false when the event was
// dropped because the queue is full or the connection is closed.
func (c *Connection) Send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}

// ConnectionRegistry tracks live connections by id.
type ConnectionRegistry struct {
	conns   *xsync.MapOf[string, *Connection]
	buffer  int
	now     func() time.Time
	onLeave func(*Connection)
}

// NewConnectionRegistry creates an empty registry whose connections queue up
// to buffer outbound events.
func NewConnectionRegistry(buffer int) *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:  xsync.NewMapOf[string, *Connection](),
		buffer: buffer,
		now:    time.Now,
	}
}

// Register allocates a connection with a fresh unique id.
func (r *ConnectionRegistry) Register() *Connection {
	for {
		c := newConnection(utils.NewID(), r.buffer, r.now())
		if _, loaded := r.conns.LoadOrStore(c.ID, c); !loaded {
			return c
		}
	}
}

// Get looks up a live connection.
func (r *ConnectionRegistry) Get(id string) (*Connection, bool) {
	return r.conns.Load(id)
}

// Remove leaves the connection's room, if any, then forgets and closes it.
// Removing an unknown id is a no-op.
func (r *ConnectionRegistry) Remove(id string) {
	c, ok := r.conns.Load(id)
	if !ok {
		return
	}
	if r.onLeave != nil && c.RoomCode() != "" {
		r.onLeave(c)
	}
	r.conns.Delete(id)
	c.close()
}

// Len returns the number of live connections.
func (r *ConnectionRegistry) Len() int {
	return r.conns.Size()
}
