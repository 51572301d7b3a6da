package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/pairroom-server/internal/config"
	"github.com/vovakirdan/pairroom-server/internal/core"
	"github.com/vovakirdan/pairroom-server/internal/log"
	transporthttp "github.com/vovakirdan/pairroom-server/internal/transport/http"
)

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		":8080":          "ws://127.0.0.1:8080/ws",
		"0.0.0.0:9000":   "ws://0.0.0.0:9000/ws",
		"localhost:1234": "ws://localhost:1234/ws",
	}
	for addr, want := range cases {
		if got := wsURL(addr); got != want {
			t.Fatalf("wsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestSmokeAgainstServer(t *testing.T) {
	cfg := config.Default()
	logger := log.New("error")
	broker := core.NewBroker(core.NewConnectionRegistry(cfg.SendBuffer), core.NewRoomRegistry(), core.BrokerConfig{}, logger)
	ts := httptest.NewServer(transporthttp.NewServer(broker, cfg, logger).Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := &smokeOptions{url: strings.Replace(ts.URL, "http", "ws", 1) + "/ws", timeout: 5 * time.Second}
	if err := runSmoke(ctx, opts); err != nil {
		t.Fatalf("smoke: %v", err)
	}
}

func TestRootCommandFlags(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"config", "addr", "log-level"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("missing persistent flag %q", name)
		}
	}
	if cmd, _, err := root.Find([]string{"smoke"}); err != nil || cmd.Name() != "smoke" {
		t.Fatalf("smoke subcommand missing: %v", err)
	}
}
