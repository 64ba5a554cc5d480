package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ErrLoopStopped is returned when an event is offered to a loop that has
// finished running.
var ErrLoopStopped = errors.New("event loop stopped")

type loopEventKind int

const (
	connectEvent loopEventKind = iota
	requestEvent
	disconnectEvent
)

type loopEvent struct {
	kind loopEventKind
	conn Conn
	req  Inbound
}

// Loop serializes connects, requests and disconnects from every connection
// into one queue and feeds them to the Controller on a single goroutine.
// Transport goroutines only enqueue.
type Loop struct {
	controller *Controller
	registry   *Registry
	events     chan loopEvent
	done       chan struct{}
	log        *slog.Logger
}

// NewLoop returns a loop driving controller. Run must be called to start it.
func NewLoop(controller *Controller, log *slog.Logger) *Loop {
	return &Loop{
		controller: controller,
		registry:   controller.registry,
		events:     make(chan loopEvent),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Connect queues the attachment of a newly accepted connection.
func (l *Loop) Connect(conn Conn) error {
	return l.enqueue(loopEvent{kind: connectEvent, conn: conn})
}

// Submit queues one decoded request from conn.
func (l *Loop) Submit(conn Conn, req Inbound) error {
	return l.enqueue(loopEvent{kind: requestEvent, conn: conn, req: req})
}

// Disconnect queues the closure of conn as reported by the transport.
func (l *Loop) Disconnect(conn Conn) error {
	return l.enqueue(loopEvent{kind: disconnectEvent, conn: conn})
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) enqueue(ev loopEvent) error {
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Run handles queued events until ctx is cancelled, then closes every
// attached connection. It should be called exactly once, typically in its own
// goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.log.Info("Event loop started")

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

func (l *Loop) dispatch(ev loopEvent) {
	if ev.conn == nil {
		l.log.Warn("Received event without connection; skipping", "kind", ev.kind)
		return
	}

	switch ev.kind {
	case connectEvent:
		l.controller.Connect(ev.conn)
	case requestEvent:
		l.controller.Handle(ev.conn, ev.req)
	case disconnectEvent:
		l.controller.Disconnect(ev.conn)
		closeConn(l.log, ev.conn)
	}
}

func (l *Loop) shutdown() {
	l.log.Info("Shutting down all client connections...")
	conns := l.registry.Connections()
	for _, conn := range conns {
		l.registry.Remove(conn)
		closeConn(l.log, conn)
	}
	l.log.Info("Closed client connections", "count", len(conns))
}

func closeConn(log *slog.Logger, conn Conn) {
	closer, ok := conn.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Debug("Error closing connection", "conn", conn.ID(), "error", err)
	}
}
