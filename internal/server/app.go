// Package server coordinates the WebSocket transport for the chat core: it
// upgrades connections, starts their pumps, and waits for them on shutdown.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/chat"
	"github.com/gorilla/websocket"
)

// App owns the transport side of the service. Every accepted connection is
// attached to the event loop and gets one read and one write goroutine.
type App struct {
	cfg      Config
	loop     *chat.Loop
	upgrader websocket.Upgrader
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewApp creates an App that feeds loop from WebSocket connections.
func NewApp(cfg Config, loop *chat.Loop, log *slog.Logger) *App {
	cfg = cfg.Sanitize()
	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	return &App{
		cfg:  cfg,
		loop: loop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}
}

// NewLoop builds the chat core for cfg: registry, room store with the
// configured default rooms, router, controller and the loop that drives them.
func NewLoop(cfg Config, log *slog.Logger, opts ...chat.Option) *chat.Loop {
	registry := chat.NewRegistry()
	rooms := chat.NewRoomStore(cfg.DefaultRooms...)
	router := chat.NewRouter(registry, rooms, log)
	controller := chat.NewController(registry, rooms, router, log, opts...)
	return chat.NewLoop(controller, log)
}

// start attaches client to the loop and launches its pumps.
func (a *App) start(client *Client) error {
	if err := a.loop.Connect(client); err != nil {
		return err
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		client.writePump()
	}()
	go func() {
		defer a.wg.Done()
		client.readPump()
	}()
	return nil
}

// Wait blocks until every client goroutine has finished or the timeout is
// reached. Call it after the loop has stopped, which closes all clients.
func (a *App) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.log.Info("All client connections finished")
		return nil
	case <-time.After(timeout):
		a.log.Warn("Client shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
