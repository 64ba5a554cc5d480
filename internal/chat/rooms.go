package chat

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Reaction is one emoji attached to a message by one user. A user may react
// any number of times with the same emoji.
type Reaction struct {
	Username string `json:"username"`
	Emoji    string `json:"emoji"`
}

// Message is a retained chat message. Exactly one of Text and File carries
// the body.
type Message struct {
	ID        string
	Author    string
	Text      string
	File      *FilePayload
	CreatedAt time.Time
	Reactions []Reaction
}

// Event renders m as it appears on the wire.
func (m Message) Event() MessageEvent {
	return MessageEvent{
		ID:        m.ID,
		Username:  m.Author,
		Message:   m.Text,
		File:      m.File,
		Timestamp: m.CreatedAt.UnixMilli(),
		Reactions: slices.Clone(m.Reactions),
	}
}

func (m *Message) clone() Message {
	c := *m
	c.Reactions = slices.Clone(m.Reactions)
	return c
}

// Room is a named group of connections with an ordered message history.
type Room struct {
	Name    string
	members []Conn
	history []*Message
	issued  map[string]struct{}
}

func newRoom(name string) *Room {
	return &Room{Name: name, issued: make(map[string]struct{})}
}

// Members returns a snapshot of the room's connections in join order.
func (r *Room) Members() []Conn {
	return slices.Clone(r.members)
}

// HasMember reports whether conn is currently in the room.
func (r *Room) HasMember(conn Conn) bool {
	return slices.Contains(r.members, conn)
}

// History returns copies of the retained messages in append order.
func (r *Room) History() []Message {
	return lo.Map(r.history, func(m *Message, _ int) Message { return m.clone() })
}

func (r *Room) find(id string) (int, *Message) {
	for i, m := range r.history {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

// nextID derives a message id from author and time. Ids issued earlier in
// this room, including deleted ones, get a numeric suffix instead.
func (r *Room) nextID(author string, at time.Time) string {
	base := fmt.Sprintf("%s-%d", author, at.UnixMilli())
	id := base
	for n := 1; ; n++ {
		if _, used := r.issued[id]; !used {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// RoomStore owns every room, its membership and its history. Rooms are never
// removed.
type RoomStore struct {
	rooms map[string]*Room
	order []string
}

// NewRoomStore returns a store that already contains the given rooms.
func NewRoomStore(initial ...string) *RoomStore {
	s := &RoomStore{rooms: make(map[string]*Room)}
	for _, name := range initial {
		if name != "" {
			s.EnsureRoom(name)
		}
	}
	return s
}

// EnsureRoom returns the named room, creating it if needed. created reports
// whether this call created it.
func (s *RoomStore) EnsureRoom(name string) (room *Room, created bool) {
	if existing, ok := s.rooms[name]; ok {
		return existing, false
	}
	room = newRoom(name)
	s.rooms[name] = room
	s.order = append(s.order, name)
	return room, true
}

// CreateRoom creates the named room and fails with a conflict if it exists.
func (s *RoomStore) CreateRoom(name string) (*Room, error) {
	if _, ok := s.rooms[name]; ok {
		return nil, conflictf("Room '%s' already exists.", name)
	}
	room, _ := s.EnsureRoom(name)
	return room, nil
}

// Room looks up an existing room.
func (s *RoomStore) Room(name string) (*Room, bool) {
	room, ok := s.rooms[name]
	return room, ok
}

// ListRoomNames returns room names in order of creation.
func (s *RoomStore) ListRoomNames() []string {
	return slices.Clone(s.order)
}

func (s *RoomStore) mustRoom(name string) (*Room, error) {
	room, ok := s.rooms[name]
	if !ok {
		return nil, notFoundf("Room '%s' does not exist.", name)
	}
	return room, nil
}

// Join adds conn to the room's membership. Joining twice is a no-op.
func (s *RoomStore) Join(name string, conn Conn) error {
	room, err := s.mustRoom(name)
	if err != nil {
		return err
	}
	if !room.HasMember(conn) {
		room.members = append(room.members, conn)
	}
	return nil
}

// Leave removes conn from the room's membership. Leaving a room conn is not
// in, or one that does not exist, is a no-op.
func (s *RoomStore) Leave(name string, conn Conn) {
	if room, ok := s.rooms[name]; ok {
		room.members = slices.DeleteFunc(room.members, func(c Conn) bool { return c == conn })
	}
}

// AppendMessage stores msg at the end of the room's history. An empty ID is
// derived from the author and CreatedAt; an explicit ID that was ever issued
// in the room is rejected.
func (s *RoomStore) AppendMessage(name string, msg Message) (Message, error) {
	room, err := s.mustRoom(name)
	if err != nil {
		return Message{}, err
	}
	if msg.ID == "" {
		msg.ID = room.nextID(msg.Author, msg.CreatedAt)
	} else if _, used := room.issued[msg.ID]; used {
		return Message{}, conflictf("Message id '%s' was already used.", msg.ID)
	}
	room.issued[msg.ID] = struct{}{}
	stored := msg.clone()
	room.history = append(room.history, &stored)
	return stored.clone(), nil
}

// FindMessage returns a copy of the message with the given id.
func (s *RoomStore) FindMessage(name, id string) (Message, bool) {
	room, ok := s.rooms[name]
	if !ok {
		return Message{}, false
	}
	_, m := room.find(id)
	if m == nil {
		return Message{}, false
	}
	return m.clone(), true
}

func (s *RoomStore) authoredMessage(name, id, username string) (*Room, int, *Message, error) {
	room, err := s.mustRoom(name)
	if err != nil {
		return nil, -1, nil, err
	}
	i, m := room.find(id)
	if m == nil {
		return nil, -1, nil, notFoundf("Message not found.")
	}
	if m.Author != username {
		return nil, -1, nil, unauthorizedf("You are not authorized to modify this message.")
	}
	return room, i, m, nil
}

// EditMessage replaces the body of a message on behalf of username, who must
// be its author. The id and author are unchanged.
func (s *RoomStore) EditMessage(name, id, body, username string) (Message, error) {
	_, _, m, err := s.authoredMessage(name, id, username)
	if err != nil {
		return Message{}, err
	}
	m.Text = body
	m.File = nil
	return m.clone(), nil
}

// DeleteMessage removes a message on behalf of its author. Its id stays
// reserved.
func (s *RoomStore) DeleteMessage(name, id, username string) error {
	room, i, _, err := s.authoredMessage(name, id, username)
	if err != nil {
		return err
	}
	room.history = slices.Delete(room.history, i, i+1)
	return nil
}

// AddReaction appends a reaction to a message. Anyone may react; reactions
// are not deduplicated.
func (s *RoomStore) AddReaction(name, id, username, emoji string) (Message, error) {
	room, err := s.mustRoom(name)
	if err != nil {
		return Message{}, err
	}
	_, m := room.find(id)
	if m == nil {
		return Message{}, notFoundf("Message not found.")
	}
	m.Reactions = append(m.Reactions, Reaction{Username: username, Emoji: emoji})
	return m.clone(), nil
}
