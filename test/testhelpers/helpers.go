// Package testhelpers provides common utilities for the end-to-end tests of
// the chat server.
//
// It starts a real App behind an httptest server, dials WebSocket clients
// with an allowed Origin, and reads typed events off the wire so tests can
// wait for a specific frame without caring about unrelated broadcasts.
package testhelpers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/chat"
	"github.com/Tyrowin/gochat-rooms/internal/server"
	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by every test client.
const TestOrigin = "http://localhost:8080"

// Server is a running chat server with its event loop.
type Server struct {
	*httptest.Server
	App  *server.App
	Loop *chat.Loop
	stop context.CancelFunc
}

// StartServer starts the full stack on a random port. The loop is stopped
// and the HTTP server closed when the test ends.
func StartServer(t *testing.T, customize func(cfg *server.Config)) *Server {
	t.Helper()

	cfg := server.DefaultConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	if customize != nil {
		customize(&cfg)
	}
	cfg = cfg.Sanitize()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := server.NewLoop(cfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	app := server.NewApp(cfg, loop, log)
	srv := &Server{
		Server: httptest.NewServer(app.Routes()),
		App:    app,
		Loop:   loop,
		stop:   cancel,
	}
	t.Cleanup(func() {
		srv.Stop()
		srv.Close()
	})
	return srv
}

// Stop cancels the event loop and waits for it to finish. It is safe to call
// more than once.
func (s *Server) Stop() {
	s.stop()
	<-s.Loop.Done()
}

// WebSocketURL returns the ws:// address of the chat endpoint.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// ConnectWebSocket dials url with the given Origin. An empty origin sends
// no header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Client is a test-side WebSocket connection.
type Client struct {
	t    *testing.T
	Conn *websocket.Conn
}

// Dial connects a new client to s and closes it when the test ends.
func (s *Server) Dial(t *testing.T) *Client {
	t.Helper()
	conn, _, err := ConnectWebSocket(s.WebSocketURL(), TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &Client{t: t, Conn: conn}
}

// Event is a decoded outbound frame. Fields not used by a type stay zero.
type Event struct {
	Type      string              `json:"type"`
	ID        string              `json:"id"`
	Username  string              `json:"username"`
	Message   string              `json:"message"`
	Emoji     string              `json:"emoji"`
	System    bool                `json:"system"`
	Timestamp int64               `json:"timestamp"`
	File      *chat.FilePayload   `json:"file"`
	Reactions []chat.Reaction     `json:"reactions"`
	Messages  []chat.MessageEvent `json:"messages"`
	Rooms     []string            `json:"rooms"`
	Users     []string            `json:"users"`
}

// Send writes one JSON request.
func (c *Client) Send(req map[string]any) {
	c.t.Helper()
	if err := c.Conn.WriteJSON(req); err != nil {
		c.t.Fatalf("Failed to send %v: %v", req, err)
	}
}

// SendRaw writes one frame as-is.
func (c *Client) SendRaw(messageType int, data []byte) error {
	return c.Conn.WriteMessage(messageType, data)
}

// Join sends a join request and waits for the welcome or room notice that
// completes it.
func (c *Client) Join(username, room string) {
	c.t.Helper()
	c.Send(map[string]any{"type": chat.TypeJoin, "username": username, "room": room})
	c.ExpectMessage(func(ev Event) bool {
		return ev.System && (strings.HasPrefix(ev.Message, "Welcome to "+room) || ev.Message == "You joined "+room+".")
	})
}

// Next reads the next event within timeout.
func (c *Client) Next(timeout time.Duration) (Event, error) {
	var ev Event
	if err := c.Conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return ev, err
	}
	_, data, err := c.Conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	err = json.Unmarshal(data, &ev)
	return ev, err
}

// Expect reads events until one of type typ satisfying match arrives, and
// fails the test if none does within two seconds.
func (c *Client) Expect(typ string, match func(Event) bool) Event {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("Timed out waiting for %s event", typ)
		}
		ev, err := c.Next(remaining)
		if err != nil {
			c.t.Fatalf("Failed waiting for %s event: %v", typ, err)
		}
		if ev.Type == typ && (match == nil || match(ev)) {
			return ev
		}
	}
}

// ExpectMessage waits for a message event satisfying match.
func (c *Client) ExpectMessage(match func(Event) bool) Event {
	c.t.Helper()
	return c.Expect(chat.TypeMessage, match)
}

// ExpectError waits for an error event and returns its text.
func (c *Client) ExpectError() string {
	c.t.Helper()
	return c.Expect(chat.TypeError, nil).Message
}

// ExpectNone fails the test if an event of type typ arrives within timeout.
// The read deadline that ends the wait leaves the connection unreadable, so
// it must be the last read on c.
func (c *Client) ExpectNone(typ string, timeout time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		ev, err := c.Next(remaining)
		if err != nil {
			return
		}
		if ev.Type == typ {
			c.t.Fatalf("Expected no %s event, got %+v", typ, ev)
		}
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}
