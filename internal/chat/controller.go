package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// SystemUsername is the author of notices generated by the server.
const SystemUsername = "System"

var validate = validator.New()

// Controller applies one inbound request at a time against the registry and
// room store and issues the resulting broadcasts. It is not safe for
// concurrent use; Loop serializes every call.
type Controller struct {
	registry *Registry
	rooms    *RoomStore
	router   *Router
	log      *slog.Logger
	now      func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the time source used for message ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController wires a controller over the given state.
func NewController(registry *Registry, rooms *RoomStore, router *Router, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		registry: registry,
		rooms:    rooms,
		router:   router,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect attaches a newly accepted connection. It has no identity until its
// first successful join.
func (c *Controller) Connect(conn Conn) {
	c.registry.Attach(conn)
	c.log.Debug("Connection attached", "conn", conn.ID(), "connections", len(c.registry.Connections()))
}

// Handle processes one request from conn to completion. Rejected requests
// produce a single error event for conn and nothing else.
func (c *Controller) Handle(conn Conn, req Inbound) {
	if !c.registry.Attached(conn) {
		c.log.Warn("Dropping request from detached connection", "conn", conn.ID())
		return
	}

	var err error
	switch r := req.(type) {
	case JoinRequest:
		err = c.join(conn, r)
	case SendRequest:
		err = c.send(conn, r)
	case EditRequest:
		err = c.edit(conn, r)
	case DeleteRequest:
		err = c.delete(conn, r)
	case ReactRequest:
		err = c.react(conn, r)
	case CreateRoomRequest:
		err = c.createRoom(conn, r)
	case LeaveRequest:
		err = c.leave(conn, r)
	default:
		return
	}

	if err != nil {
		c.reject(conn, err)
	}
}

// Disconnect removes conn from its room, releases its username and tells
// everyone what changed. Rooms are left in place even when they empty out.
func (c *Controller) Disconnect(conn Conn) {
	if !c.registry.Attached(conn) {
		return
	}

	identity, registered := c.registry.Lookup(conn)
	if room, ok := c.registry.Room(conn); ok {
		c.rooms.Leave(room, conn)
		c.router.ToRoom(room, c.notice("%s has disconnected.", identity.Username))
		c.router.ToRoom(room, c.userList(room))
	}
	c.registry.Remove(conn)
	c.router.ToAll(c.roomList())

	if registered {
		c.log.Info("User disconnected", "conn", conn.ID(), "username", identity.Username)
	} else {
		c.log.Debug("Connection detached", "conn", conn.ID())
	}
}

func (c *Controller) join(conn Conn, req JoinRequest) error {
	if err := check(req, "Username and room are required to join."); err != nil {
		return err
	}

	identity, registered := c.registry.Lookup(conn)
	if !registered {
		identity = Identity{Username: req.Username}
		if err := c.registry.Register(conn, identity); err != nil {
			return err
		}
	}

	previous, switching := c.registry.Room(conn)
	if switching && previous == req.Room {
		c.sendRoomState(conn, req.Room, false)
		return nil
	}
	if switching {
		c.rooms.Leave(previous, conn)
		c.router.ToRoom(previous, c.notice("%s has left the room.", identity.Username))
		c.router.ToRoom(previous, c.userList(previous))
	}

	_, created := c.rooms.EnsureRoom(req.Room)
	if err := c.rooms.Join(req.Room, conn); err != nil {
		return err
	}
	c.registry.SetRoom(conn, req.Room)

	c.sendRoomState(conn, req.Room, created)
	if !registered {
		c.router.ToRoom(req.Room, c.notice("%s has joined the chat.", identity.Username), conn)
		c.router.Unicast(conn, c.notice("Welcome to %s, %s!", req.Room, identity.Username))
	} else {
		c.router.ToRoom(req.Room, c.notice("%s has joined the room.", identity.Username), conn)
		c.router.Unicast(conn, c.notice("You joined %s.", req.Room))
	}

	c.log.Info("User joined room", "conn", conn.ID(), "username", identity.Username, "room", req.Room, "from", previous)
	return nil
}

// sendRoomState gives conn the room's history and the room list, and the
// room's members the current user list. A newly created room is announced
// to every connection.
func (c *Controller) sendRoomState(conn Conn, room string, created bool) {
	c.router.Unicast(conn, c.history(room))
	if created {
		c.router.ToAll(c.roomList())
	} else {
		c.router.Unicast(conn, c.roomList())
	}
	c.router.ToRoom(room, c.userList(room))
}

func (c *Controller) send(conn Conn, req SendRequest) error {
	identity, room, err := c.active(conn)
	if err != nil {
		return err
	}
	if req.Room != "" && req.Room != room {
		return validationf("You are not in this room.")
	}
	if err := check(req, "Message text or file is required."); err != nil {
		return err
	}
	if req.File != nil {
		file := *req.File
		if err := file.normalize(); err != nil {
			return err
		}
		req.File = &file
	}

	msg, err := c.rooms.AppendMessage(room, Message{
		Author:    identity.Username,
		Text:      req.Message,
		File:      req.File,
		CreatedAt: c.now(),
	})
	if err != nil {
		return err
	}
	c.router.ToRoom(room, msg.Event())
	return nil
}

func (c *Controller) edit(conn Conn, req EditRequest) error {
	identity, room, err := c.active(conn)
	if err != nil {
		return err
	}
	if err := check(req, "Message id and text are required to edit."); err != nil {
		return err
	}
	if _, err := c.rooms.EditMessage(room, req.ID, req.Message, identity.Username); err != nil {
		return err
	}
	c.router.ToRoom(room, MessageEditedEvent{ID: req.ID, Message: req.Message})
	return nil
}

func (c *Controller) delete(conn Conn, req DeleteRequest) error {
	identity, room, err := c.active(conn)
	if err != nil {
		return err
	}
	if err := check(req, "Message id is required to delete."); err != nil {
		return err
	}
	if err := c.rooms.DeleteMessage(room, req.ID, identity.Username); err != nil {
		return err
	}
	c.router.ToRoom(room, MessageDeletedEvent{ID: req.ID})
	return nil
}

func (c *Controller) react(conn Conn, req ReactRequest) error {
	identity, room, err := c.active(conn)
	if err != nil {
		return err
	}
	if err := check(req, "Message id and emoji are required to react."); err != nil {
		return err
	}
	if _, err := c.rooms.AddReaction(room, req.ID, identity.Username, req.Emoji); err != nil {
		return err
	}
	c.router.ToRoom(room, MessageReactedEvent{ID: req.ID, Emoji: req.Emoji, Username: identity.Username})
	return nil
}

func (c *Controller) createRoom(conn Conn, req CreateRoomRequest) error {
	if err := check(req, "Room name is required."); err != nil {
		return err
	}
	if _, err := c.rooms.CreateRoom(req.Room); err != nil {
		return err
	}
	c.router.ToAll(c.roomList())
	c.router.Unicast(conn, c.notice("Room '%s' created.", req.Room))
	c.log.Info("Room created", "conn", conn.ID(), "room", req.Room)
	return nil
}

func (c *Controller) leave(conn Conn, req LeaveRequest) error {
	if err := check(req, "Room is required to leave."); err != nil {
		return err
	}
	identity, ok := c.registry.Lookup(conn)
	if !ok {
		return validationf("Authentication required.")
	}
	room, ok := c.registry.Room(conn)
	if !ok || room != req.Room {
		return validationf("You are not in this room.")
	}

	c.rooms.Leave(room, conn)
	c.registry.SetRoom(conn, "")
	c.router.ToRoom(room, c.notice("%s has left the room.", identity.Username))
	c.router.ToRoom(room, c.userList(room))
	c.log.Info("User left room", "conn", conn.ID(), "username", identity.Username, "room", room)
	return nil
}

// active returns conn's identity and current room, or a validation error if
// it has not joined one.
func (c *Controller) active(conn Conn) (Identity, string, error) {
	identity, ok := c.registry.Lookup(conn)
	if !ok {
		return Identity{}, "", validationf("Authentication required.")
	}
	room, ok := c.registry.Room(conn)
	if !ok {
		return Identity{}, "", validationf("You are not in a room.")
	}
	return identity, room, nil
}

func (c *Controller) reject(conn Conn, err error) {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		c.log.Info("Request rejected", "conn", conn.ID(), "error", err)
	} else {
		c.log.Error("Request failed", "conn", conn.ID(), "error", err)
	}
	c.router.Unicast(conn, ErrorEvent{Message: ClientMessage(err)})
}

func (c *Controller) notice(format string, args ...any) MessageEvent {
	return MessageEvent{
		Username:  SystemUsername,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: c.now().UnixMilli(),
		System:    true,
	}
}

func (c *Controller) history(room string) HistoryEvent {
	rm, ok := c.rooms.Room(room)
	if !ok {
		return HistoryEvent{Messages: []MessageEvent{}}
	}
	return HistoryEvent{Messages: lo.Map(rm.History(), func(m Message, _ int) MessageEvent { return m.Event() })}
}

func (c *Controller) roomList() RoomListEvent {
	return RoomListEvent{Rooms: c.rooms.ListRoomNames()}
}

func (c *Controller) userList(room string) UserListEvent {
	rm, ok := c.rooms.Room(room)
	if !ok {
		return UserListEvent{Users: []string{}}
	}
	return UserListEvent{Users: lo.FilterMap(rm.Members(), func(conn Conn, _ int) (string, bool) {
		identity, ok := c.registry.Lookup(conn)
		return identity.Username, ok
	})}
}

// check runs the struct tags of req and maps any failure to a validation
// error carrying message.
func check(req any, message string) error {
	if err := validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return validationf("%s", message)
		}
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}
