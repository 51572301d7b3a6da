package http

import (
	"encoding/json"

	"github.com/vovakirdan/pairroom-server/internal/core"
	"github.com/vovakirdan/pairroom-server/internal/proto"
)

func badRequest(msg string) *proto.Outbound {
	return &proto.Outbound{Type: proto.OutboundTypeError, Code: core.ErrCodeBadRequest, Message: msg}
}

// inboundToCommand decodes a raw frame into a command. A non-nil Outbound is
// an error reply for the sender; the frame is otherwise ignored.
func inboundToCommand(raw []byte) (*core.Command, *proto.Outbound) {
	var env proto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, badRequest("Invalid message format")
	}
	if env.Type == "" {
		return nil, badRequest("type is required")
	}

	if proto.IsSignaling(env.Type) {
		var in struct {
			ClientID string `json:"client_id"`
		}
		_ = json.Unmarshal(raw, &in)
		return &core.Command{Kind: core.CommandSignal, Signal: env.Type, ClientID: in.ClientID, Raw: raw}, nil
	}

	var in proto.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, badRequest("Invalid message fields")
	}
	cmd := &core.Command{ClientID: in.ClientID}

	switch in.Type {
	case proto.InboundTypeAuthenticate:
		cmd.Kind = core.CommandAuthenticate
		if in.SessionData != nil {
			cmd.User = core.User{ID: int64(in.SessionData.UserID), Username: in.SessionData.Username}
		}
	case proto.InboundTypeCreateRoom:
		cmd.Kind = core.CommandCreateRoom
	case proto.InboundTypeValidateRoom, proto.InboundTypeJoinRoom:
		if in.RoomCode == "" {
			return nil, badRequest("room_code is required")
		}
		cmd.Kind = core.CommandValidateRoom
		if in.Type == proto.InboundTypeJoinRoom {
			cmd.Kind = core.CommandJoinRoom
		}
		cmd.Room = in.RoomCode
	case proto.InboundTypeLeaveRoom:
		cmd.Kind = core.CommandLeaveRoom
	case proto.InboundTypeTextOperation:
		if len(in.Operation) == 0 {
			return nil, badRequest("operation is required")
		}
		cmd.Kind = core.CommandTextOperation
		cmd.Operation = in.Operation
	case proto.InboundTypeContentSync:
		if in.Content == nil {
			return nil, badRequest("content must be a string")
		}
		cmd.Kind = core.CommandContentSync
		cmd.Content = *in.Content
	case proto.InboundTypeSendContentToGuest:
		if in.GuestUserID == nil || *in.GuestUserID == 0 || in.Content == nil {
			return nil, badRequest("Invalid guest content data")
		}
		cmd.Kind = core.CommandSendContentToGuest
		cmd.TargetUserID = int64(*in.GuestUserID)
		cmd.Content = *in.Content
	case proto.InboundTypeCursorPosition:
		if len(in.Position) == 0 {
			return nil, badRequest("position is required")
		}
		cmd.Kind = core.CommandCursorPosition
		cmd.Position = in.Position
	case proto.InboundTypeSelectionChange:
		if len(in.Selection) == 0 {
			return nil, badRequest("selection is required")
		}
		cmd.Kind = core.CommandSelectionChange
		cmd.Selection = in.Selection
	case proto.InboundTypeTypingIndicator:
		if in.IsTyping == nil {
			return nil, badRequest("is_typing must be a boolean")
		}
		cmd.Kind = core.CommandTypingIndicator
		cmd.Typing = *in.IsTyping
	case proto.InboundTypeHeartbeat:
		cmd.Kind = core.CommandHeartbeat
	default:
		return nil, &proto.Outbound{
			Type:     proto.OutboundTypeError,
			Code:     core.ErrCodeUnknownType,
			Message:  "Unknown message type: " + in.Type,
			ClientID: in.ClientID,
		}
	}
	return cmd, nil
}

func userInfo(u *core.User) *proto.UserInfo {
	if u == nil {
		return nil
	}
	return &proto.UserInfo{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

// outboundFromEvent maps an event to its wire form. Signaling events are
// written from their raw bytes and never reach this function.
func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{
		Timestamp: event.At.UnixMilli(),
		ClientID:  event.ClientID,
	}

	switch event.Kind {
	case core.EventConnected:
		out.Type = proto.OutboundTypeConnected
		out.SessionID = event.SessionID
		out.ConnectionID = event.ConnectionID
	case core.EventAuthenticated:
		out.Type = proto.OutboundTypeAuthenticated
		out.User = userInfo(event.User)
	case core.EventRoomCreated:
		out.Type = proto.OutboundTypeRoomCreated
		out.RoomCode = event.Room
	case core.EventRoomFound:
		out.Type = proto.OutboundTypeRoomFound
		out.RoomCode = event.Room
		out.MemberCount = &event.MemberCount
	case core.EventRoomNotFound:
		out.Type = proto.OutboundTypeRoomNotFound
		out.RoomCode = event.Room
	case core.EventRoomFull:
		out.Type = proto.OutboundTypeRoomFull
		out.RoomCode = event.Room
		out.Message = event.Message
	case core.EventRoomJoined:
		collaborators := make([]proto.UserInfo, 0, len(event.Collaborators))
		for i := range event.Collaborators {
			collaborators = append(collaborators, *userInfo(&event.Collaborators[i]))
		}
		out.Type = proto.OutboundTypeRoomJoined
		out.RoomCode = event.Room
		out.Collaborators = &collaborators
		out.MemberCount = &event.MemberCount
		out.CreatedAt = &event.CreatedAt
		out.IsHost = &event.IsHost
	case core.EventUserJoined:
		out.Type = proto.OutboundTypeUserJoined
		out.RoomCode = event.Room
		out.User = userInfo(event.User)
		if event.User != nil {
			out.GuestID = &event.User.ID
		}
	case core.EventUserLeft:
		out.Type = proto.OutboundTypeUserLeft
		out.RoomCode = event.Room
		if event.User != nil {
			out.User = &proto.UserInfo{ID: event.User.ID, Username: event.User.Username}
		}
	case core.EventRequestContent:
		out.Type = proto.OutboundTypeRequestContent
		out.RoomCode = event.Room
		out.GuestUser = userInfo(event.User)
	case core.EventReceiveContent:
		out.Type = proto.OutboundTypeReceiveContent
		out.RoomCode = event.Room
		out.HostUser = userInfo(event.User)
		out.Content = &event.Content
	case core.EventTextOperation:
		out.Type = proto.OutboundTypeTextOperation
		out.User = userInfo(event.User)
		out.Operation = event.Operation
	case core.EventContentSync:
		out.Type = proto.OutboundTypeContentSync
		out.User = userInfo(event.User)
		out.Content = &event.Content
	case core.EventCursorPosition:
		out.Type = proto.OutboundTypeCursorPosition
		out.User = userInfo(event.User)
		out.Position = event.Position
	case core.EventSelectionChange:
		out.Type = proto.OutboundTypeSelectionChange
		out.User = userInfo(event.User)
		out.Selection = event.Selection
	case core.EventTypingIndicator:
		out.Type = proto.OutboundTypeTypingIndicator
		out.User = userInfo(event.User)
		out.IsTyping = &event.Typing
	case core.EventHeartbeatAck:
		out.Type = proto.OutboundTypeHeartbeatAck
	case core.EventError:
		out.Type = proto.OutboundTypeError
		out.Message = event.Message
		if event.Error != nil {
			out.Code = event.Error.Code
			if out.Message == "" {
				out.Message = event.Error.Message
			}
		}
	default:
		out.Type = proto.OutboundTypeError
		out.Code = core.ErrCodeInternal
		out.Message = "unknown event"
	}
	return out
}
