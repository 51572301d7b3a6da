package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Inbound message types.
const (
	InboundTypeAuthenticate       = "authenticate"
	InboundTypeCreateRoom         = "create_room"
	InboundTypeValidateRoom       = "validate_room"
	InboundTypeJoinRoom           = "join_room"
	InboundTypeLeaveRoom          = "leave_room"
	InboundTypeTextOperation      = "text_operation"
	InboundTypeContentSync        = "content_sync"
	InboundTypeSendContentToGuest = "send_content_to_guest"
	InboundTypeCursorPosition     = "cursor_position"
	InboundTypeSelectionChange    = "selection_change"
	InboundTypeTypingIndicator    = "typing_indicator"
	InboundTypeHeartbeat          = "heartbeat"
)

// Outbound message types.
const (
	OutboundTypeConnected       = "connected"
	OutboundTypeAuthenticated   = "authenticated"
	OutboundTypeRoomCreated     = "room_created"
	OutboundTypeRoomFound       = "room_found"
	OutboundTypeRoomNotFound    = "room_not_found"
	OutboundTypeRoomFull        = "room_full"
	OutboundTypeRoomJoined      = "room_joined"
	OutboundTypeUserJoined      = "user_joined"
	OutboundTypeUserLeft        = "user_left"
	OutboundTypeRequestContent  = "request_content_for_guest"
	OutboundTypeReceiveContent  = "receive_content_from_host"
	OutboundTypeTextOperation   = "text_operation"
	OutboundTypeContentSync     = "content_sync"
	OutboundTypeCursorPosition  = "cursor_position"
	OutboundTypeSelectionChange = "selection_change"
	OutboundTypeTypingIndicator = "typing_indicator"
	OutboundTypeHeartbeatAck    = "heartbeat_ack"
	OutboundTypeError           = "error"
)

// Signaling message types, relayed to the peer unchanged.
const (
	SignalWebRTCOffer            = "webrtc_offer"
	SignalWebRTCAnswer           = "webrtc_answer"
	SignalWebRTCCandidate        = "webrtc_candidate"
	SignalWebRTCVideoOff         = "webrtc_video_off"
	SignalWebRTCReady            = "webrtc_ready"
	SignalWebRTCPeerDisconnected = "webrtc_peer_disconnected"
	SignalScreenShareStarted     = "screen_share_started"
	SignalScreenShareStopped     = "screen_share_stopped"
)

var signalingTypes = map[string]struct{}{
	SignalWebRTCOffer:            {},
	SignalWebRTCAnswer:           {},
	SignalWebRTCCandidate:        {},
	SignalWebRTCVideoOff:         {},
	SignalWebRTCReady:            {},
	SignalWebRTCPeerDisconnected: {},
	SignalScreenShareStarted:     {},
	SignalScreenShareStopped:     {},
}

// IsSignaling reports whether t names a media signaling message that is
// forwarded to the peer unchanged.
func IsSignaling(t string) bool {
	_, ok := signalingTypes[t]
	return ok
}

// ID is a user id that accepts both JSON numbers and numeric strings.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", data)
	}
	*id = ID(n)
	return nil
}

// SessionData is the identity a client claims in authenticate.
type SessionData struct {
	UserID   ID     `json:"user_id"`
	Username string `json:"username"`
}

// Inbound is every field a client message may carry. Which fields are
// meaningful depends on Type.
type Inbound struct {
	Type        string          `json:"type"`
	ClientID    string          `json:"client_id,omitempty"`
	SessionData *SessionData    `json:"sessionData,omitempty"`
	RoomCode    string          `json:"room_code,omitempty"`
	Operation   json.RawMessage `json:"operation,omitempty"`
	Content     *string         `json:"content,omitempty"`
	GuestUserID *ID             `json:"guest_user_id,omitempty"`
	Position    json.RawMessage `json:"position,omitempty"`
	Selection   json.RawMessage `json:"selection,omitempty"`
	IsTyping    *bool           `json:"is_typing,omitempty"`
}

// Envelope peeks at the type of a raw frame.
type Envelope struct {
	Type string `json:"type"`
}

// UserInfo is the public view of a user.
type UserInfo struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// Outbound is the flat JSON object sent to clients.
type Outbound struct {
	Type         string `json:"type"`
	Timestamp    int64  `json:"timestamp"`
	ClientID     string `json:"client_id,omitempty"`
	SessionID    string `json:"sessionId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`

	User          *UserInfo   `json:"user,omitempty"`
	GuestID       *int64      `json:"guestId,omitempty"`
	GuestUser     *UserInfo   `json:"guest_user,omitempty"`
	HostUser      *UserInfo   `json:"host_user,omitempty"`
	RoomCode      string      `json:"room_code,omitempty"`
	Collaborators *[]UserInfo `json:"collaborators,omitempty"`
	MemberCount   *int        `json:"member_count,omitempty"`
	CreatedAt     *time.Time  `json:"created_at,omitempty"`
	IsHost        *bool       `json:"is_host,omitempty"`

	Operation json.RawMessage `json:"operation,omitempty"`
	Content   *string         `json:"content,omitempty"`
	Position  json.RawMessage `json:"position,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
	IsTyping  *bool           `json:"is_typing,omitempty"`

	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
