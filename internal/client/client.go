// Package client is a small protocol client for the pairing server, used by
// the smoke command and by end-to-end tests.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairroom-server/internal/ot"
	"github.com/vovakirdan/pairroom-server/internal/proto"
)

// ErrUnexpectedType is returned when the greeting frame is not "connected".
var ErrUnexpectedType = errors.New("unexpected message type")

// ServerError is an error frame received while waiting for another type.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Options tunes Dial.
type Options struct {
	// ClientID is attached to every outbound message.
	ClientID string
	// Retries is the number of extra dial attempts with exponential backoff.
	Retries uint64
	// InitialText seeds the local document.
	InitialText string
	Logger      *zerolog.Logger
}

// Message is one decoded server frame.
type Message struct {
	Type   string
	Raw    []byte
	Fields map[string]json.RawMessage
}

// Decode unmarshals the named field into v.
func (m Message) Decode(name string, v any) error {
	raw, ok := m.Fields[name]
	if !ok {
		return fmt.Errorf("field %q missing from %s", name, m.Type)
	}
	return json.Unmarshal(raw, v)
}

// String returns a string field or "".
func (m Message) String(name string) string {
	var s string
	_ = m.Decode(name, &s)
	return s
}

// Client is one protocol session.
type Client struct {
	ws       *websocket.Conn
	doc      *ot.Document
	clientID string
	log      *zerolog.Logger

	ConnectionID string
	SessionID    string
}

// Dial connects to url, retrying with exponential backoff, and consumes the
// server greeting.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var ws *websocket.Conn
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.Retries), ctx)
	err := backoff.Retry(func() error {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			logger.Debug().Err(err).Str("url", url).Msg("dial failed")
			return err
		}
		ws = conn
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		ws:       ws,
		doc:      ot.NewDocument(opts.InitialText),
		clientID: opts.ClientID,
		log:      logger,
	}
	greeting, err := c.Next(ctx)
	if err != nil {
		ws.Close(websocket.StatusInternalError, "greeting failed")
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if greeting.Type != proto.OutboundTypeConnected {
		ws.Close(websocket.StatusProtocolError, "unexpected greeting")
		return nil, fmt.Errorf("%w: greeting %q", ErrUnexpectedType, greeting.Type)
	}
	c.ConnectionID = greeting.String("connectionId")
	c.SessionID = greeting.String("sessionId")
	return c, nil
}

// Document returns the local document that received edits are applied to.
func (c *Client) Document() *ot.Document {
	return c.doc
}

// Send writes msg as JSON. Map messages get the client id attached.
func (c *Client) Send(ctx context.Context, msg map[string]any) error {
	if c.clientID != "" {
		if _, ok := msg["client_id"]; !ok {
			msg["client_id"] = c.clientID
		}
	}
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		return fmt.Errorf("write %v: %w", msg["type"], err)
	}
	return nil
}

// Next reads one frame. Edits and snapshots are applied to the local
// document before the message is returned.
func (c *Client) Next(ctx context.Context) (Message, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return Message{}, err
	}
	msg := Message{Raw: data}
	if err := json.Unmarshal(data, &msg.Fields); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	msg.Type = msg.String("type")

	switch msg.Type {
	case proto.OutboundTypeTextOperation:
		op, err := ot.Parse(msg.Fields["operation"])
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed remote operation")
			break
		}
		if _, err := c.doc.ApplyRemote(op); err != nil {
			c.log.Warn().Err(err).Msg("remote operation rejected")
		}
	case proto.OutboundTypeContentSync, proto.OutboundTypeReceiveContent:
		c.doc.Reset(msg.String("content"))
	}
	return msg, nil
}

// Expect reads frames until one of type typ arrives. An error frame aborts
// the wait with a *ServerError.
func (c *Client) Expect(ctx context.Context, typ string) (Message, error) {
	for {
		msg, err := c.Next(ctx)
		if err != nil {
			return Message{}, err
		}
		if msg.Type == typ {
			return msg, nil
		}
		if msg.Type == proto.OutboundTypeError {
			return msg, &ServerError{Code: msg.String("code"), Message: msg.String("message")}
		}
	}
}

// Authenticate claims an identity. A zero id lets the server pick one.
func (c *Client) Authenticate(ctx context.Context, id int64, username string) (proto.UserInfo, error) {
	session := map[string]any{"username": username}
	if id != 0 {
		session["user_id"] = id
	}
	if err := c.Send(ctx, map[string]any{"type": proto.InboundTypeAuthenticate, "sessionData": session}); err != nil {
		return proto.UserInfo{}, err
	}
	msg, err := c.Expect(ctx, proto.OutboundTypeAuthenticated)
	if err != nil {
		return proto.UserInfo{}, err
	}
	var user proto.UserInfo
	if err := msg.Decode("user", &user); err != nil {
		return proto.UserInfo{}, err
	}
	return user, nil
}

// CreateRoom opens a room and returns its code.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	if err := c.Send(ctx, map[string]any{"type": proto.InboundTypeCreateRoom}); err != nil {
		return "", err
	}
	msg, err := c.Expect(ctx, proto.OutboundTypeRoomCreated)
	if err != nil {
		return "", err
	}
	return msg.String("room_code"), nil
}

// JoinRoom takes the free seat of room code and returns the room_joined
// message. A full or unknown room is reported as a *ServerError.
func (c *Client) JoinRoom(ctx context.Context, code string) (Message, error) {
	if err := c.Send(ctx, map[string]any{"type": proto.InboundTypeJoinRoom, "room_code": code}); err != nil {
		return Message{}, err
	}
	for {
		msg, err := c.Next(ctx)
		if err != nil {
			return Message{}, err
		}
		switch msg.Type {
		case proto.OutboundTypeRoomJoined:
			return msg, nil
		case proto.OutboundTypeRoomFull, proto.OutboundTypeRoomNotFound:
			return msg, &ServerError{Code: msg.Type, Message: msg.String("message")}
		case proto.OutboundTypeError:
			return msg, &ServerError{Code: msg.String("code"), Message: msg.String("message")}
		}
	}
}

// SendOperation applies op locally and sends it to the peer.
func (c *Client) SendOperation(ctx context.Context, op ot.Operation) error {
	if op.Timestamp == 0 {
		op.Timestamp = time.Now().UnixMilli()
	}
	op.ClientID = c.clientID
	if err := c.doc.ApplyLocal(op); err != nil {
		return err
	}
	return c.Send(ctx, map[string]any{"type": proto.InboundTypeTextOperation, "operation": op})
}

// SendContent delivers the local document to guest as host.
func (c *Client) SendContent(ctx context.Context, guestID int64) error {
	return c.Send(ctx, map[string]any{
		"type":          proto.InboundTypeSendContentToGuest,
		"guest_user_id": guestID,
		"content":       c.doc.Text(),
	})
}

// Heartbeat pings the server and waits for the ack.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.Send(ctx, map[string]any{"type": proto.InboundTypeHeartbeat}); err != nil {
		return err
	}
	_, err := c.Expect(ctx, proto.OutboundTypeHeartbeatAck)
	return err
}

// Close ends the session with a normal closure.
func (c *Client) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
