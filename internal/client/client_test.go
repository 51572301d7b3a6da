package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/pairroom-server/internal/config"
	"github.com/vovakirdan/pairroom-server/internal/core"
	"github.com/vovakirdan/pairroom-server/internal/log"
	"github.com/vovakirdan/pairroom-server/internal/ot"
	transporthttp "github.com/vovakirdan/pairroom-server/internal/transport/http"
)

func startServer(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	logger := log.New("error")
	broker := core.NewBroker(core.NewConnectionRegistry(cfg.SendBuffer), core.NewRoomRegistry(), core.BrokerConfig{}, logger)
	ts := httptest.NewServer(transporthttp.NewServer(broker, cfg, logger).Handler)
	t.Cleanup(ts.Close)

	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dialClient(t *testing.T, ctx context.Context, url string, opts Options) *Client {
	t.Helper()

	c, err := Dial(ctx, url, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientsConvergeThroughServer(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dialClient(t, ctx, url, Options{ClientID: "host", InitialText: "hello"})
	guest := dialClient(t, ctx, url, Options{ClientID: "guest"})
	if host.ConnectionID == "" || host.ConnectionID == guest.ConnectionID {
		t.Fatalf("unexpected connection ids %q / %q", host.ConnectionID, guest.ConnectionID)
	}

	if _, err := host.Authenticate(ctx, 1, "alice"); err != nil {
		t.Fatalf("authenticate host: %v", err)
	}
	guestUser, err := guest.Authenticate(ctx, 2, "bob")
	if err != nil {
		t.Fatalf("authenticate guest: %v", err)
	}

	code, err := host.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := guest.JoinRoom(ctx, code); err != nil {
		t.Fatalf("join room: %v", err)
	}
	if _, err := host.Expect(ctx, "request_content_for_guest"); err != nil {
		t.Fatalf("wait for content request: %v", err)
	}

	if err := host.SendContent(ctx, guestUser.ID); err != nil {
		t.Fatalf("send content: %v", err)
	}
	if _, err := guest.Expect(ctx, "receive_content_from_host"); err != nil {
		t.Fatalf("wait for content: %v", err)
	}
	if guest.Document().Text() != "hello" {
		t.Fatalf("guest document %q", guest.Document().Text())
	}

	if err := host.SendOperation(ctx, ot.Operation{Kind: ot.KindInsert, Position: 5, Content: " world"}); err != nil {
		t.Fatalf("send operation: %v", err)
	}
	if _, err := guest.Expect(ctx, "text_operation"); err != nil {
		t.Fatalf("wait for operation: %v", err)
	}
	if host.Document().Text() != "hello world" || guest.Document().Text() != "hello world" {
		t.Fatalf("documents diverged: %q / %q", host.Document().Text(), guest.Document().Text())
	}

	if err := guest.Heartbeat(ctx); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
}

func TestClientJoinUnknownRoom(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialClient(t, ctx, url, Options{})
	if _, err := c.Authenticate(ctx, 0, ""); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err := c.JoinRoom(ctx, "NOPE00")
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.Code != "room_not_found" {
		t.Fatalf("expected room_not_found, got %v", err)
	}
}

func TestClientSurfacesErrorFrames(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialClient(t, ctx, url, Options{})
	_, err := c.CreateRoom(ctx)
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.Code != core.ErrCodeNotAuthenticated {
		t.Fatalf("expected not_authenticated, got %v", err)
	}
}

func TestDialGivesUpAfterRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Dial(ctx, "ws://127.0.0.1:1/ws", Options{Retries: 1}); err == nil {
		t.Fatal("dial to closed port succeeded")
	}
}
