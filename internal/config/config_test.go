package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = nil
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "addr: \":9090\"\nroom_inactivity_timeout: 10m\nmax_content_bytes: 2048\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAIRROOM_ADDR", ":7070")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("env did not override file: %q", cfg.Addr)
	}
	if cfg.RoomInactivityTimeout != 10*time.Minute || cfg.MaxContentBytes != 2048 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RoomSweepInterval != time.Minute {
		t.Fatalf("default lost: %v", cfg.RoomSweepInterval)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("send_buffer: -1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", LogLevel: "debug", RateLimitPerMinute: 30})
	if cfg.Addr != ":1" || cfg.LogLevel != "debug" || cfg.RateLimitPerMinute != 30 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != Default().ShutdownTimeout {
		t.Fatalf("zero value overwrote default")
	}
}

func TestReadLimitCoversEscapedContent(t *testing.T) {
	cfg := Default()
	if got, want := cfg.ReadLimit(), MinMessageBytes(cfg.MaxContentBytes); got != want {
		t.Fatalf("derived read limit = %d, want %d", got, want)
	}
	if MinMessageBytes(200) < 6*200 {
		t.Fatalf("read limit does not admit fully escaped content")
	}

	cfg.MaxMessageBytes = 2 * int64(cfg.MaxContentBytes)
	if err := cfg.Validate(); err == nil {
		t.Fatal("read limit below escaped content size accepted")
	}
	cfg.MaxMessageBytes = MinMessageBytes(cfg.MaxContentBytes)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("explicit read limit rejected: %v", err)
	}
	if cfg.ReadLimit() != cfg.MaxMessageBytes {
		t.Fatalf("explicit read limit ignored")
	}
}
