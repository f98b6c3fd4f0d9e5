package relay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != ":8080" {
		t.Errorf("unexpected default port %q", cfg.Server.Port)
	}
	if cfg.Socket.SendBuffer != 256 {
		t.Errorf("unexpected default send buffer %d", cfg.Socket.SendBuffer)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestLoadConfigWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != ":8080" {
		t.Errorf("expected defaults, got port %q", cfg.Server.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/relay.yaml"); err == nil {
		t.Error("expected an error for an unreadable config path")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	content := `
server:
  port: ":9090"
  shutdown_timeout: "5s"
socket:
  allowed_origins: ["https://chat.example.com", "*"]
  max_message_size: 2048
  ping_interval: "20s"
  pong_wait: "25s"
rate_limit:
  burst: 50
  refill_interval: "2s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != ":9090" {
		t.Errorf("port not loaded, got %q", cfg.Server.Port)
	}
	if time.Duration(cfg.Server.ShutdownTimeout) != 5*time.Second {
		t.Errorf("shutdown_timeout not parsed, got %v", time.Duration(cfg.Server.ShutdownTimeout))
	}
	if time.Duration(cfg.Socket.PingInterval) != 20*time.Second {
		t.Errorf("ping_interval not parsed, got %v", time.Duration(cfg.Socket.PingInterval))
	}
	if cfg.Socket.MaxMessageSize != 2048 {
		t.Errorf("max_message_size not loaded, got %d", cfg.Socket.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 50 {
		t.Errorf("burst not loaded, got %d", cfg.RateLimit.Burst)
	}
	// Untouched sections keep their defaults.
	if time.Duration(cfg.Server.ReadTimeout) != 15*time.Second {
		t.Errorf("read_timeout default lost, got %v", time.Duration(cfg.Server.ReadTimeout))
	}
}

func TestLoadConfigExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_RELAY_PORT_VALUE", ":7070")

	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"${TEST_RELAY_PORT_VALUE}\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != ":7070" {
		t.Errorf("expected env-expanded port, got %q", cfg.Server.Port)
	}
}

func TestLoadConfigRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error for invalid yaml")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("server:\n  read_timeout: \"soon\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error for an unparseable duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_PORT", ":6060")
	t.Setenv("RELAY_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RELAY_MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RELAY_RATE_BURST", "7")
	t.Setenv("RELAY_RATE_REFILL_SECONDS", "3")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != ":6060" {
		t.Errorf("RELAY_PORT not applied, got %q", cfg.Server.Port)
	}
	if len(cfg.Socket.AllowedOrigins) != 2 || cfg.Socket.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("RELAY_ALLOWED_ORIGINS not applied, got %v", cfg.Socket.AllowedOrigins)
	}
	if cfg.Socket.MaxMessageSize != 1024 {
		t.Errorf("RELAY_MAX_MESSAGE_SIZE not applied, got %d", cfg.Socket.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 7 {
		t.Errorf("RELAY_RATE_BURST not applied, got %d", cfg.RateLimit.Burst)
	}
	if time.Duration(cfg.RateLimit.RefillInterval) != 3*time.Second {
		t.Errorf("RELAY_RATE_REFILL_SECONDS not applied, got %v", time.Duration(cfg.RateLimit.RefillInterval))
	}
}

func TestValidateRejectsInconsistentKeepalive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Socket.PingInterval = cfg.Socket.PongWait

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation to reject ping_interval >= pong_wait")
	}
}
