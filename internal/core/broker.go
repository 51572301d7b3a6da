package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairroom-server/internal/ot"
)

// DefaultMaxContentBytes caps document snapshots when no limit is configured.
const DefaultMaxContentBytes = 10 * 1024 * 1024

// BrokerConfig tunes the broker.
type BrokerConfig struct {
	MaxContentBytes int
}

// Broker routes commands from connections to rooms and peers.
type Broker struct {
	conns      *ConnectionRegistry
	rooms      *RoomRegistry
	log        *zerolog.Logger
	maxContent int
	now        func() time.Time
}

// NewBroker wires the registries together. The broker installs itself as the
// connection registry's leave handler so dropped sockets give up their seat.
func NewBroker(conns *ConnectionRegistry, rooms *RoomRegistry, cfg BrokerConfig, logger *zerolog.Logger) *Broker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.MaxContentBytes <= 0 {
		cfg.MaxContentBytes = DefaultMaxContentBytes
	}
	b := &Broker{
		conns:      conns,
		rooms:      rooms,
		log:        logger,
		maxContent: cfg.MaxContentBytes,
		now:        time.Now,
	}
	conns.onLeave = b.leaveCurrentRoom
	return b
}

// Rooms exposes the room registry.
func (b *Broker) Rooms() *RoomRegistry {
	return b.rooms
}

// Stats is a point-in-time summary of the broker.
type Stats struct {
	Connections int
	Rooms       []RoomStats
}

// Stats snapshots connection and room counts.
func (b *Broker) Stats() Stats {
	return Stats{
		Connections: b.conns.Len(),
		Rooms:       b.rooms.Stats(),
	}
}

// Connect registers a new connection and queues its greeting.
func (b *Broker) Connect() *Connection {
	conn := b.conns.Register()
	conn.Send(&Event{
		Kind:         EventConnected,
		At:           b.now(),
		SessionID:    conn.SessionID,
		ConnectionID: conn.ID,
	})
	b.log.Debug().Str("connection_id", conn.ID).Msg("connection registered")
	return conn
}

// Disconnect leaves any room the connection sits in and releases it.
func (b *Broker) Disconnect(conn *Connection) {
	b.conns.Remove(conn.ID)
	b.log.Debug().Str("connection_id", conn.ID).Msg("connection removed")
}

// Dispatch handles one command. A failing or panicking handler answers the
// caller with an error event and leaves the connection open.
func (b *Broker) Dispatch(conn *Connection, cmd *Command) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("connection_id", conn.ID).
				Stringer("command", cmd.Kind).
				Msg("command handler panicked")
			b.sendError(conn, cmd, errInternal)
		}
	}()

	conn.touch(b.now())

	if err := b.handle(conn, cmd); err != nil {
		var coreErr *CoreError
		if !errors.As(err, &coreErr) {
			b.log.Error().Err(err).Str("connection_id", conn.ID).Stringer("command", cmd.Kind).Msg("command failed")
			coreErr = errInternal
		}
		b.sendError(conn, cmd, coreErr)
	}
}

func (b *Broker) handle(conn *Connection, cmd *Command) error {
	switch cmd.Kind {
	case CommandAuthenticate:
		return b.authenticate(conn, cmd)
	case CommandCreateRoom:
		return b.createRoom(conn, cmd)
	case CommandValidateRoom:
		return b.validateRoom(conn, cmd)
	case CommandJoinRoom:
		return b.joinRoom(conn, cmd)
	case CommandLeaveRoom:
		return b.leaveRoom(conn)
	case CommandTextOperation:
		return b.textOperation(conn, cmd)
	case CommandContentSync:
		return b.contentSync(conn, cmd)
	case CommandSendContentToGuest:
		return b.sendContentToGuest(conn, cmd)
	case CommandCursorPosition:
		return b.relay(conn, cmd, &Event{Kind: EventCursorPosition, Position: cmd.Position})
	case CommandSelectionChange:
		return b.relay(conn, cmd, &Event{Kind: EventSelectionChange, Selection: cmd.Selection})
	case CommandTypingIndicator:
		return b.relay(conn, cmd, &Event{Kind: EventTypingIndicator, Typing: cmd.Typing})
	case CommandHeartbeat:
		return b.heartbeat(conn, cmd)
	case CommandSignal:
		return b.signal(conn, cmd)
	default:
		return ProtocolError(ErrCodeUnknownType, fmt.Sprintf("Unknown command %d", cmd.Kind))
	}
}

func (b *Broker) authenticate(conn *Connection, cmd *Command) error {
	user := cmd.User
	if user.ID == 0 {
		user.ID = rand.Int64N(1000) + 1
	}
	if user.Username == "" {
		user.Username = fmt.Sprintf("user_%d", user.ID)
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}

	if prev, ok := conn.User(); ok && prev.ID != user.ID {
		b.leaveCurrentRoom(conn)
	}
	conn.setUser(user)
	if code := conn.RoomCode(); code != "" {
		if room, ok := b.rooms.Get(code); ok {
			room.refreshUser(conn.ID, user)
		}
	}

	b.log.Info().
		Str("connection_id", conn.ID).
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("connection authenticated")
	b.reply(conn, cmd, &Event{Kind: EventAuthenticated, User: &user})
	return nil
}

func (b *Broker) createRoom(conn *Connection, cmd *Command) error {
	user, ok := conn.User()
	if !ok {
		return errNotAuthenticated
	}
	b.leaveCurrentRoom(conn)

	room, err := b.rooms.CreateRoom(conn.ID, user)
	if errors.Is(err, ErrCapacityExhausted) {
		b.log.Warn().Str("connection_id", conn.ID).Msg("room code space exhausted")
		return errCodesExhausted
	}
	if err != nil {
		return err
	}
	conn.setRoomCode(room.Code)

	b.log.Info().Str("room", room.Code).Int64("host_id", user.ID).Msg("room created")
	b.reply(conn, cmd, &Event{Kind: EventRoomCreated, Room: room.Code})
	return nil
}

func (b *Broker) validateRoom(conn *Connection, cmd *Command) error {
	if _, ok := conn.User(); !ok {
		return errNotAuthenticated
	}
	code := NormalizeCode(cmd.Room)
	room, ok := b.rooms.Get(code)
	if !ok {
		b.reply(conn, cmd, &Event{Kind: EventRoomNotFound, Room: code})
		return nil
	}
	b.reply(conn, cmd, &Event{Kind: EventRoomFound, Room: room.Code, MemberCount: room.Size()})
	return nil
}

func (b *Broker) joinRoom(conn *Connection, cmd *Command) error {
	user, ok := conn.User()
	if !ok {
		return errNotAuthenticated
	}
	code := NormalizeCode(cmd.Room)
	if current := conn.RoomCode(); current != "" && current != code {
		b.leaveCurrentRoom(conn)
	}

	room, ok := b.rooms.Get(code)
	if !ok {
		conn.setRoomCode("")
		b.reply(conn, cmd, &Event{Kind: EventRoomNotFound, Room: code})
		return nil
	}

	res, err := b.rooms.Join(room, conn.ID, user)
	switch {
	case errors.Is(err, ErrRoomFull):
		b.reply(conn, cmd, &Event{Kind: EventRoomFull, Room: code, Message: "Room is full (maximum 2 users)"})
		return nil
	case errors.Is(err, ErrRoomNotFound):
		conn.setRoomCode("")
		b.reply(conn, cmd, &Event{Kind: EventRoomNotFound, Room: code})
		return nil
	case err != nil:
		return err
	}
	conn.setRoomCode(room.Code)

	collaborators := make([]User, 0, len(res.Others))
	for _, m := range res.Others {
		collaborators = append(collaborators, m.User)
	}
	b.reply(conn, cmd, &Event{
		Kind:          EventRoomJoined,
		Room:          room.Code,
		Collaborators: collaborators,
		MemberCount:   res.MemberCount,
		CreatedAt:     room.CreatedAt,
		IsHost:        res.IsHost,
	})
	if res.Rejoined {
		return nil
	}

	b.log.Info().
		Str("room", room.Code).
		Int64("user_id", user.ID).
		Int("members", res.MemberCount).
		Msg("user joined room")

	joined := b.event(cmd, &Event{Kind: EventUserJoined, Room: room.Code, User: &user})
	for _, m := range res.Others {
		b.deliver(m.ConnID, joined)
	}
	if res.HostConnID != "" {
		b.deliver(res.HostConnID, b.event(cmd, &Event{Kind: EventRequestContent, Room: room.Code, User: &user}))
	}
	return nil
}

func (b *Broker) leaveRoom(conn *Connection) error {
	if _, ok := conn.User(); !ok {
		return errNotAuthenticated
	}
	if conn.RoomCode() == "" {
		return errNotInRoom
	}
	b.leaveCurrentRoom(conn)
	return nil
}

// leaveCurrentRoom gives up the connection's seat and notifies the members
// left behind. It is a no-op when the connection is not seated.
func (b *Broker) leaveCurrentRoom(conn *Connection) {
	code := conn.RoomCode()
	if code == "" {
		return
	}
	conn.setRoomCode("")

	room, ok := b.rooms.Get(code)
	if !ok {
		return
	}
	res, ok := b.rooms.Leave(room, conn.ID)
	if !ok {
		return
	}

	logEv := b.log.Info().Str("room", code).Int64("user_id", res.Member.User.ID)
	if res.Deleted {
		logEv.Msg("last member left, room removed")
		return
	}
	if res.NewHostID != 0 {
		logEv = logEv.Int64("new_host_id", res.NewHostID)
	}
	logEv.Msg("user left room")

	left := res.Member.User
	ev := &Event{Kind: EventUserLeft, At: b.now(), Room: code, User: &left}
	for _, m := range res.Remaining {
		b.deliver(m.ConnID, ev)
	}
}

// seat resolves the caller's room, clearing a stale room code.
func (b *Broker) seat(conn *Connection) (User, *Room, error) {
	user, ok := conn.User()
	if !ok {
		return User{}, nil, errNotAuthenticated
	}
	code := conn.RoomCode()
	if code == "" {
		return User{}, nil, errNotInRoom
	}
	room, ok := b.rooms.Get(code)
	if !ok || !room.HasConnection(conn.ID) {
		conn.setRoomCode("")
		return User{}, nil, errNotInRoom
	}
	room.Touch(b.now())
	return user, room, nil
}

func (b *Broker) textOperation(conn *Connection, cmd *Command) error {
	user, room, err := b.seat(conn)
	if err != nil {
		return err
	}
	if _, err := ot.Parse(cmd.Operation); err != nil {
		b.log.Debug().Err(err).Str("connection_id", conn.ID).Msg("rejected text operation")
		return errInvalidOperation
	}
	b.fanOut(conn, room, user, cmd, &Event{Kind: EventTextOperation, Operation: cmd.Operation})
	return nil
}

func (b *Broker) contentSync(conn *Connection, cmd *Command) error {
	user, room, err := b.seat(conn)
	if err != nil {
		return err
	}
	if len(cmd.Content) > b.maxContent {
		return errContentTooLarge
	}
	b.fanOut(conn, room, user, cmd, &Event{Kind: EventContentSync, Content: cmd.Content})
	return nil
}

func (b *Broker) sendContentToGuest(conn *Connection, cmd *Command) error {
	user, room, err := b.seat(conn)
	if err != nil {
		return err
	}
	if !room.IsHost(user.ID) {
		return errNotHost
	}
	if len(cmd.Content) > b.maxContent {
		return errContentTooLarge
	}
	guestConn, ok := room.ConnectionForUser(cmd.TargetUserID, conn.ID)
	if !ok {
		return errGuestNotFound
	}
	if _, ok := b.conns.Get(guestConn); !ok {
		return errGuestNotFound
	}
	b.deliver(guestConn, b.event(cmd, &Event{Kind: EventReceiveContent, Room: room.Code, User: &user, Content: cmd.Content}))
	return nil
}

// relay fans ev out to every other member of the caller's room.
func (b *Broker) relay(conn *Connection, cmd *Command, ev *Event) error {
	user, room, err := b.seat(conn)
	if err != nil {
		return err
	}
	b.fanOut(conn, room, user, cmd, ev)
	return nil
}

// fanOut tags ev with the sender and queues it for every other member.
func (b *Broker) fanOut(conn *Connection, room *Room, sender User, cmd *Command, ev *Event) {
	ev.Room = room.Code
	ev.User = &sender
	b.event(cmd, ev)
	for _, id := range room.Peers(conn.ID) {
		b.deliver(id, ev)
	}
}

func (b *Broker) heartbeat(conn *Connection, cmd *Command) error {
	if code := conn.RoomCode(); code != "" {
		if room, ok := b.rooms.Get(code); ok {
			room.Touch(b.now())
		}
	}
	b.reply(conn, cmd, &Event{Kind: EventHeartbeatAck})
	return nil
}

func (b *Broker) signal(conn *Connection, cmd *Command) error {
	_, room, err := b.seat(conn)
	if err != nil {
		return err
	}
	peers := room.Peers(conn.ID)
	if len(peers) == 0 {
		b.log.Debug().Str("room", room.Code).Str("signal", cmd.Signal).Msg("no peer for signaling message, dropped")
		return nil
	}
	ev := b.event(cmd, &Event{Kind: EventSignal, Room: room.Code, Raw: cmd.Raw})
	for _, id := range peers {
		b.deliver(id, ev)
	}
	return nil
}

// event stamps ev with the time and the client id of cmd.
func (b *Broker) event(cmd *Command, ev *Event) *Event {
	ev.At = b.now()
	ev.ClientID = cmd.ClientID
	return ev
}

func (b *Broker) reply(conn *Connection, cmd *Command, ev *Event) {
	if !conn.Send(b.event(cmd, ev)) {
		b.log.Warn().Str("connection_id", conn.ID).Msg("reply dropped, send queue full")
	}
}

func (b *Broker) sendError(conn *Connection, cmd *Command, err *CoreError) {
	b.reply(conn, cmd, &Event{Kind: EventError, Error: err, Message: err.Message})
}

func (b *Broker) deliver(connID string, ev *Event) {
	target, ok := b.conns.Get(connID)
	if !ok {
		return
	}
	if !target.Send(ev) {
		b.log.Warn().Str("connection_id", connID).Msg("event dropped, send queue full")
	}
}
