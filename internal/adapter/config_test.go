package adapter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/spf13/viper"
)

func tempConfig(t *testing.T, body string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := tempConfig(t, `
server:
  url: http://localhost:8000
  timeout: 5s
realtime:
  driver: supabase
  url: https://abc.supabase.co
  key: anon
refresh:
  debounce: 250ms
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.URL != "http://localhost:8000" {
		t.Fatalf("server url = %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Realtime.Driver != FeedDriverSupabase {
		t.Fatalf("driver = %q", cfg.Realtime.Driver)
	}
	if cfg.Refresh.Debounce != 250*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Refresh.Debounce)
	}
	// Untouched sections keep defaults
	if cfg.Realtime.RetryDelay != 5*time.Second {
		t.Fatalf("retry delay = %v", cfg.Realtime.RetryDelay)
	}
	if !cfg.IsConfigured() {
		t.Fatal("expected configured")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := tempConfig(t, "server:\n  url: http://file\n")
	t.Setenv("LIBDESK_SERVER_URL", "http://env")
	t.Setenv("LIBDESK_REFRESH_DEBOUNCE", "1s")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.URL != "http://env" {
		t.Fatalf("server url = %q, want env override", cfg.Server.URL)
	}
	if cfg.Refresh.Debounce != time.Second {
		t.Fatalf("debounce = %v", cfg.Refresh.Debounce)
	}
}

func TestSaveAndClearSession(t *testing.T) {
	path := tempConfig(t, "server:\n  url: http://localhost:8000\n")
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if err := SaveSession("tok", "admin@library.com", domain.RoleAdmin); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	viper.Reset()
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Session.Token != "tok" || cfg.Session.Role != "admin" {
		t.Fatalf("session not persisted: %+v", cfg.Session)
	}
	if cfg.Server.URL != "http://localhost:8000" {
		t.Fatalf("server url lost: %q", cfg.Server.URL)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	viper.Reset()
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Session.Token != "" {
		t.Fatalf("token survived ClearSession: %q", cfg.Session.Token)
	}
}

func TestCacheDirFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Dir = "/tmp/cache"
	cfg.Server.URL = "http://Example.com/"

	a := cfg.CacheDirFor("Ada@example.com")
	cfg.Server.URL = "http://example.com"
	b := cfg.CacheDirFor("ada@example.com")
	if a != b {
		t.Fatalf("expected normalized paths to match: %s vs %s", a, b)
	}
	if c := cfg.CacheDirFor("bob@example.com"); c == a {
		t.Fatal("different users must not share a cache dir")
	}

	cfg.Cache.Dir = ""
	if cfg.CacheDirFor("x") != "" {
		t.Fatal("empty cache dir means memory only")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARN":    "WARN",
		"warning": "WARN",
		" error ": "ERROR",
		"INFO+2":  "INFO+2",
		"bogus":   "INFO",
		"":        "INFO",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSetupLoggerWritesJSONWithPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "libdesk.log")
	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	logger.Debug("refreshed", "books", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("log line is not JSON: %q", data)
	}
	if line["msg"] != "refreshed" || line["books"] != float64(3) || line["pid"] != float64(os.Getpid()) {
		t.Fatalf("unexpected log line %v", line)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("log file mode = %v, want 0600", perm)
	}
}

func TestSetupLoggerWithoutFile(t *testing.T) {
	logger, closer, err := SetupLogger(&LoggingConfig{})
	if err != nil || closer != nil || logger == nil {
		t.Fatalf("got logger=%v closer=%v err=%v", logger, closer, err)
	}
}
