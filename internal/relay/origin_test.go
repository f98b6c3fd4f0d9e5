package relay

import (
	"net/http/httptest"
	"testing"
)

func TestOriginPolicyAllowsConfiguredOrigin(t *testing.T) {
	p := newOriginPolicy([]string{"https://chat.example.com"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "HTTPS://Chat.Example.COM")
	if !p.check(r) {
		t.Error("expected configured origin to be allowed case-insensitively")
	}
}

func TestOriginPolicyBlocksUnknownOrigin(t *testing.T) {
	p := newOriginPolicy([]string{"https://chat.example.com"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	if p.check(r) {
		t.Error("expected unknown origin to be blocked")
	}
}

func TestOriginPolicyAllowsMissingOriginHeader(t *testing.T) {
	// Non-browser clients send no Origin header.
	p := newOriginPolicy([]string{"https://chat.example.com"}, discardLogger())

	if !p.check(httptest.NewRequest("GET", "/ws", nil)) {
		t.Error("expected a request without an Origin header to be allowed")
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	p := newOriginPolicy([]string{"*"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example.com")
	if !p.check(r) {
		t.Error("expected wildcard policy to allow any origin")
	}
}

func TestOriginPolicyIgnoresInvalidConfigEntries(t *testing.T) {
	p := newOriginPolicy([]string{"", "not a url", "ftp//missing", "https://ok.example.com"}, discardLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://ok.example.com")
	if !p.check(r) {
		t.Error("valid entry lost while skipping invalid ones")
	}
}
