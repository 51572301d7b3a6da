package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vovakirdan/pairroom-server/internal/utils"
)

const (
	// MaxMembers is the capacity of every room: one host and one guest.
	MaxMembers = 2
	// maxCodeAttempts bounds the retries when a drawn code is already taken.
	maxCodeAttempts = 100
)

// NormalizeCode upper-cases a user supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Member is one seat in a room.
type Member struct {
	ConnID string
	User   User
}

// Room is a two-seat pairing session.
type Room struct {
	Code      string
	CreatedAt time.Time

	mu           sync.Mutex
	members      []Member
	hostID       int64
	lastActivity time.Time
	closed       bool
}

// Size returns the number of seated connections.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// HostID returns the user id that currently holds the host role.
func (r *Room) HostID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// IsHost reports whether userID holds the host role.
func (r *Room) IsHost(userID int64) bool {
	return r.HostID() == userID
}

// Members returns a snapshot of the seats in join order.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// HasConnection reports whether connID is seated in the room.
func (r *Room) HasConnection(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOf(connID) >= 0
}

// Peers returns the connection ids of every member except exclude, in join
// order.
func (r *Room) Peers(exclude string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m.ConnID != exclude {
			out = append(out, m.ConnID)
		}
	}
	return out
}

// ConnectionForUser finds a seat belonging to userID other than exclude.
func (r *Room) ConnectionForUser(userID int64, exclude string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.User.ID == userID && m.ConnID != exclude {
			return m.ConnID, true
		}
	}
	return "", false
}

// LastActivity reports when the room last saw a message.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// Touch records activity at now.
func (r *Room) Touch(now time.Time) {
	r.mu.Lock()
	if now.After(r.lastActivity) {
		r.lastActivity = now
	}
	r.mu.Unlock()
}

// refreshUser replaces the identity stored in connID's seat. It reports
// whether connID was seated.
func (r *Room) refreshUser(connID string, user User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(connID)
	if idx < 0 {
		return false
	}
	r.members[idx].User = user
	return true
}

func (r *Room) indexOf(connID string) int {
	for i, m := range r.members {
		if m.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) hasUser(userID int64) bool {
	for _, m := range r.members {
		if m.User.ID == userID {
			return true
		}
	}
	return false
}

// JoinResult describes the room right after a successful join.
type JoinResult struct {
	// Others are the members already seated, in join order.
	Others      []Member
	MemberCount int
	IsHost      bool
	// HostConnID is a connection of the host other than the joiner, if any.
	HostConnID string
	// Rejoined is set when the connection was already seated.
	Rejoined bool
}

// LeaveResult describes the room right after a member left.
type LeaveResult struct {
	Member    Member
	Remaining []Member
	Deleted   bool
	// NewHostID is non-zero when the host role moved to another user.
	NewHostID int64
}

// RoomStats is a point-in-time summary of one room.
type RoomStats struct {
	Code         string
	MemberCount  int
	HostID       int64
	CreatedAt    time.Time
	LastActivity time.Time
}

// RoomRegistry owns every live room keyed by code.
type RoomRegistry struct {
	rooms   *xsync.MapOf[string, *Room]
	now     func() time.Time
	newCode func() (string, error)
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:   xsync.NewMapOf[string, *Room](),
		now:     time.Now,
		newCode: utils.NewRoomCode,
	}
}

// CreateRoom publishes a new room with connID already seated as host.
func (g *RoomRegistry) CreateRoom(connID string, host User) (*Room, error) {
	now := g.now()
	for range maxCodeAttempts {
		code, err := g.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		room := &Room{
			Code:         code,
			CreatedAt:    now,
			members:      []Member{{ConnID: connID, User: host}},
			hostID:       host.ID,
			lastActivity: now,
		}
		if _, loaded := g.rooms.LoadOrStore(code, room); !loaded {
			return room, nil
		}
	}
	return nil, ErrCapacityExhausted
}

// Get looks up a live room. Codes are matched case-insensitively.
func (g *RoomRegistry) Get(code string) (*Room, bool) {
	room, ok := g.rooms.Load(NormalizeCode(code))
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	closed := room.closed
	room.mu.Unlock()
	if closed {
		return nil, false
	}
	return room, true
}

// Join seats connID in room. It fails with ErrRoomFull when both seats are
// taken and ErrRoomNotFound when the room was removed concurrently.
func (g *RoomRegistry) Join(room *Room, connID string, user User) (JoinResult, error) {
	now := g.now()

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed {
		return JoinResult{}, ErrRoomNotFound
	}
	if idx := room.indexOf(connID); idx >= 0 {
		return room.joinResultLocked(connID, room.members[idx].User, true), nil
	}
	if len(room.members) >= MaxMembers {
		return JoinResult{}, ErrRoomFull
	}

	room.members = append(room.members, Member{ConnID: connID, User: user})
	if room.hostID == 0 || !room.hasUser(room.hostID) {
		room.hostID = user.ID
	}
	if now.After(room.lastActivity) {
		room.lastActivity = now
	}
	return room.joinResultLocked(connID, user, false), nil
}

func (r *Room) joinResultLocked(connID string, user User, rejoined bool) JoinResult {
	res := JoinResult{
		MemberCount: len(r.members),
		IsHost:      r.hostID == user.ID,
		Rejoined:    rejoined,
	}
	for _, m := range r.members {
		if m.ConnID == connID {
			continue
		}
		res.Others = append(res.Others, m)
		if m.User.ID == r.hostID && res.HostConnID == "" {
			res.HostConnID = m.ConnID
		}
	}
	return res
}

// Leave unseats connID. The room is removed once empty; otherwise the host
// role moves to the next member when the host user has no seat left. The
// boolean is false when connID was not seated.
func (g *RoomRegistry) Leave(room *Room, connID string) (LeaveResult, bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	idx := room.indexOf(connID)
	if idx < 0 {
		return LeaveResult{}, false
	}
	res := LeaveResult{Member: room.members[idx]}
	room.members = append(room.members[:idx], room.members[idx+1:]...)

	if len(room.members) == 0 {
		room.closed = true
		g.rooms.Compute(room.Code, func(cur *Room, loaded bool) (*Room, bool) {
			return cur, !loaded || cur == room
		})
		res.Deleted = true
		return res, true
	}

	if !room.hasUser(room.hostID) {
		room.hostID = room.members[0].User.ID
		res.NewHostID = room.hostID
	}
	res.Remaining = make([]Member, len(room.members))
	copy(res.Remaining, room.members)
	return res, true
}

// Sweep removes rooms that are empty or idle for longer than timeout and
// returns their codes.
func (g *RoomRegistry) Sweep(timeout time.Duration) []string {
	now := g.now()
	var removed []string
	g.rooms.Range(func(code string, room *Room) bool {
		room.mu.Lock()
		if !room.closed && (len(room.members) == 0 || now.Sub(room.lastActivity) > timeout) {
			room.closed = true
			g.rooms.Compute(code, func(cur *Room, loaded bool) (*Room, bool) {
				return cur, !loaded || cur == room
			})
			removed = append(removed, code)
		}
		room.mu.Unlock()
		return true
	})
	sort.Strings(removed)
	return removed
}

// Len returns the number of live rooms.
func (g *RoomRegistry) Len() int {
	return g.rooms.Size()
}

// Stats summarizes every live room, ordered by code.
func (g *RoomRegistry) Stats() []RoomStats {
	var out []RoomStats
	g.rooms.Range(func(code string, room *Room) bool {
		room.mu.Lock()
		if !room.closed {
			out = append(out, RoomStats{
				Code:         code,
				MemberCount:  len(room.members),
				HostID:       room.hostID,
				CreatedAt:    room.CreatedAt,
				LastActivity: room.lastActivity,
			})
		}
		room.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
