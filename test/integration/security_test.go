package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/server"
	"github.com/Tyrowin/gochat-rooms/test/testhelpers"
	"github.com/gorilla/websocket"
)

// TestOriginValidation verifies the upgrade honours the configured origins.
func TestOriginValidation(t *testing.T) {
	srv := testhelpers.StartServer(t, func(cfg *server.Config) {
		cfg.AllowedOrigins = []string{"http://example.com"}
	})

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "allowed origin", origin: "http://example.com", allowed: true},
		{name: "case insensitive", origin: "HTTP://Example.COM", allowed: true},
		{name: "missing origin", origin: "", allowed: false},
		{name: "other origin", origin: "http://evil.com", allowed: false},
		{name: "malformed origin", origin: "javascript:alert(1)", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := testhelpers.ConnectWebSocket(srv.WebSocketURL(), tt.origin)
			if tt.allowed {
				if err != nil {
					t.Fatalf("Expected origin %q to be allowed: %v", tt.origin, err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatalf("Expected origin %q to be rejected", tt.origin)
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status %d for origin %q", http.StatusForbidden, tt.origin)
			}
		})
	}
}

// TestWildcardOrigin verifies "*" admits any well-formed origin.
func TestWildcardOrigin(t *testing.T) {
	srv := testhelpers.StartServer(t, func(cfg *server.Config) {
		cfg.AllowedOrigins = []string{"*"}
	})

	conn, _, err := testhelpers.ConnectWebSocket(srv.WebSocketURL(), "https://anywhere.test")
	if err != nil {
		t.Fatalf("Expected wildcard to allow origin: %v", err)
	}
	_ = conn.Close()
}

// TestMessageSizeLimit verifies that an oversized frame closes the sender
// and that the rest of the room is told.
func TestMessageSizeLimit(t *testing.T) {
	srv := testhelpers.StartServer(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = 256
	})
	alice := srv.Dial(t)
	bob := srv.Dial(t)
	alice.Join("alice", "general")
	bob.Join("bob", "general")

	payload := `{"type":"message","room":"general","message":"` + strings.Repeat("x", 1024) + `"}`
	if err := bob.SendRaw(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("Failed to send oversized frame: %v", err)
	}

	for {
		if _, err := bob.Next(2 * time.Second); err != nil {
			break
		}
	}
	alice.ExpectMessage(func(ev testhelpers.Event) bool { return ev.Message == "bob has disconnected." })
}
