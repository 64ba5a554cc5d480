package chat_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/chat"
)

var errPeerGone = errors.New("peer gone")

// recordingConn stores every event it is sent.
type recordingConn struct {
	id string

	mu     sync.Mutex
	events []chat.Outbound
	fail   bool
	closed bool
}

func newConn(id string) *recordingConn {
	return &recordingConn{id: id}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(ev chat.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errPeerGone
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns and forgets everything received so far.
func (c *recordingConn) drain() []chat.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	registry   *chat.Registry
	rooms      *chat.RoomStore
	controller *chat.Controller
	now        time.Time
}

func newHarness(t *testing.T, rooms ...string) *harness {
	t.Helper()
	h := &harness{
		registry: chat.NewRegistry(),
		rooms:    chat.NewRoomStore(rooms...),
		now:      time.UnixMilli(1_700_000_000_000),
	}
	log := discardLogger()
	router := chat.NewRouter(h.registry, h.rooms, log)
	h.controller = chat.NewController(h.registry, h.rooms, router, log, chat.WithClock(func() time.Time { return h.now }))
	return h
}

func (h *harness) connect(id string) *recordingConn {
	conn := newConn(id)
	h.controller.Connect(conn)
	return conn
}

// joined connects a client and joins it, discarding the join traffic on
// every connection passed in others.
func (h *harness) joined(id, username, room string, others ...*recordingConn) *recordingConn {
	conn := h.connect(id)
	h.controller.Handle(conn, chat.JoinRequest{Username: username, Room: room})
	conn.drain()
	for _, other := range others {
		other.drain()
	}
	return conn
}

func ofType[T chat.Outbound](events []chat.Outbound) []T {
	var out []T
	for _, ev := range events {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
