package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustError(t *testing.T, ch <-chan *Event, code string) *Event {
	t.Helper()

	ev := mustEvent(t, ch, EventError)
	if ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected error %q, got %+v", code, ev.Error)
	}
	return ev
}

// expectNoEvent drains ch and fails if an event of kind shows up.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.After(50 * time.Millisecond)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

func newTestBroker(t *testing.T, cfg BrokerConfig) *Broker {
	t.Helper()
	return NewBroker(NewConnectionRegistry(DefaultSendBuffer), NewRoomRegistry(), cfg, nil)
}

func connectAs(t *testing.T, b *Broker, id int64, name string) *Connection {
	t.Helper()

	conn := b.Connect()
	mustEvent(t, conn.Events, EventConnected)
	b.Dispatch(conn, &Command{Kind: CommandAuthenticate, User: User{ID: id, Username: name}})
	mustEvent(t, conn.Events, EventAuthenticated)
	return conn
}

func createRoom(t *testing.T, b *Broker, host *Connection) string {
	t.Helper()

	b.Dispatch(host, &Command{Kind: CommandCreateRoom})
	return mustEvent(t, host.Events, EventRoomCreated).Room
}

// pair returns a host and a guest seated in the same room.
func pair(t *testing.T, b *Broker) (host, guest *Connection, code string) {
	t.Helper()

	host = connectAs(t, b, 7, "alice")
	guest = connectAs(t, b, 8, "bob")
	code = createRoom(t, b, host)
	b.Dispatch(guest, &Command{Kind: CommandJoinRoom, Room: code})
	mustEvent(t, guest.Events, EventRoomJoined)
	mustEvent(t, host.Events, EventRequestContent)
	return host, guest, code
}
