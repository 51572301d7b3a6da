package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate claims an identity for the connection.
	CommandAuthenticate CommandKind = iota
	// CommandCreateRoom opens a new room with the caller as host.
	CommandCreateRoom
	// CommandValidateRoom asks whether a room exists.
	CommandValidateRoom
	// CommandJoinRoom takes the free seat of a room.
	CommandJoinRoom
	// CommandLeaveRoom gives up the caller's seat.
	CommandLeaveRoom
	// CommandTextOperation relays an edit to the peer.
	CommandTextOperation
	// CommandContentSync relays a full document snapshot to the peer.
	CommandContentSync
	// CommandSendContentToGuest delivers the host's document to one guest.
	CommandSendContentToGuest
	// CommandCursorPosition relays the caller's cursor.
	CommandCursorPosition
	// CommandSelectionChange relays the caller's selection.
	CommandSelectionChange
	// CommandTypingIndicator relays whether the caller is typing.
	CommandTypingIndicator
	// CommandHeartbeat keeps the connection and its room alive.
	CommandHeartbeat
	// CommandSignal forwards a media signaling frame verbatim.
	CommandSignal
)

var commandNames = [...]string{
	CommandAuthenticate:       "authenticate",
	CommandCreateRoom:         "create_room",
	CommandValidateRoom:       "validate_room",
	CommandJoinRoom:           "join_room",
	CommandLeaveRoom:          "leave_room",
	CommandTextOperation:      "text_operation",
	CommandContentSync:        "content_sync",
	CommandSendContentToGuest: "send_content_to_guest",
	CommandCursorPosition:     "cursor_position",
	CommandSelectionChange:    "selection_change",
	CommandTypingIndicator:    "typing_indicator",
	CommandHeartbeat:          "heartbeat",
	CommandSignal:             "signal",
}

func (k CommandKind) String() string {
	if int(k) >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Command represents an action requested by a connection.
type Command struct {
	Kind     CommandKind
	ClientID string

	// User is the claimed identity for CommandAuthenticate. A zero ID or an
	// empty Username is filled in by the broker.
	User User
	Room string

	// Operation, Position and Selection hold the raw JSON values the client
	// sent; the broker relays them without re-encoding.
	Operation []byte
	Position  []byte
	Selection []byte

	Content      string
	TargetUserID int64
	Typing       bool

	// Signal is the wire type of a CommandSignal and Raw the frame to forward.
	Signal string
	Raw    []byte
}
