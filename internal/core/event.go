package core

import "time"

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventConnected greets a freshly registered connection.
	EventConnected EventKind = iota
	// EventAuthenticated confirms the identity the connection now holds.
	EventAuthenticated
	EventRoomCreated
	EventRoomFound
	EventRoomNotFound
	EventRoomFull
	// EventRoomJoined confirms a seat to the joiner.
	EventRoomJoined
	// EventUserJoined tells seated members about a newcomer.
	EventUserJoined
	// EventUserLeft tells remaining members that someone left.
	EventUserLeft
	// EventRequestContent asks the host to send its document to a guest.
	EventRequestContent
	// EventReceiveContent carries the host's document to a guest.
	EventReceiveContent
	EventTextOperation
	EventContentSync
	EventCursorPosition
	EventSelectionChange
	EventTypingIndicator
	EventHeartbeatAck
	// EventSignal carries a signaling frame that must be written verbatim.
	EventSignal
	// EventError notifies the connection about a domain error.
	EventError
)

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind     EventKind
	At       time.Time
	ClientID string
	Room     string

	// User is the subject of the event: the sender of a relay, the member
	// who joined or left, the guest content was requested for, or the host
	// content came from.
	User *User

	// Set on EventConnected.
	SessionID    string
	ConnectionID string

	// Set on EventRoomJoined and EventRoomFound.
	Collaborators []User
	MemberCount   int
	CreatedAt     time.Time
	IsHost        bool

	Operation []byte
	Position  []byte
	Selection []byte
	Content   string
	Typing    bool

	// Raw is set on EventSignal.
	Raw []byte

	Message string
	Error   *CoreError
}
