//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_conn.go -package=mocks
package chat

import "slices"

// Conn is the transport's handle for one live connection. The core only
// compares handles and hands them events; Send must not block.
type Conn interface {
	ID() string
	Send(ev Outbound) error
}

// Identity is the username bound to a connection for its lifetime.
type Identity struct {
	Username string
}

type session struct {
	identity *Identity
	room     string
}

// Registry records who is connected, as whom, and in which room. It holds
// room names only; membership and history belong to RoomStore.
type Registry struct {
	sessions  map[Conn]*session
	order     []Conn
	usernames map[string]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[Conn]*session),
		usernames: make(map[string]Conn),
	}
}

// Attach records a freshly accepted connection that has no identity yet.
// Attaching twice is a no-op.
func (r *Registry) Attach(conn Conn) {
	if _, ok := r.sessions[conn]; ok {
		return
	}
	r.sessions[conn] = &session{}
	r.order = append(r.order, conn)
}

// Attached reports whether conn has been attached and not yet removed.
func (r *Registry) Attached(conn Conn) bool {
	_, ok := r.sessions[conn]
	return ok
}

// Register binds identity to conn. It fails with a conflict if the username
// belongs to a different live connection.
func (r *Registry) Register(conn Conn, identity Identity) error {
	if owner, taken := r.usernames[identity.Username]; taken && owner != conn {
		return conflictf("Username '%s' is already taken.", identity.Username)
	}

	r.Attach(conn)
	s := r.sessions[conn]
	if s.identity != nil && s.identity.Username != identity.Username {
		delete(r.usernames, s.identity.Username)
	}
	s.identity = &Identity{Username: identity.Username}
	r.usernames[identity.Username] = conn
	return nil
}

// Lookup returns the identity bound to conn, if any.
func (r *Registry) Lookup(conn Conn) (Identity, bool) {
	s, ok := r.sessions[conn]
	if !ok || s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Room returns the name of the room conn is currently in.
func (r *Registry) Room(conn Conn) (string, bool) {
	s, ok := r.sessions[conn]
	if !ok || s.room == "" {
		return "", false
	}
	return s.room, true
}

// SetRoom records conn's current room; an empty name means no room. Unknown
// connections are ignored.
func (r *Registry) SetRoom(conn Conn, room string) {
	if s, ok := r.sessions[conn]; ok {
		s.room = room
	}
}

// Remove forgets conn and releases its username. It is idempotent.
func (r *Registry) Remove(conn Conn) {
	s, ok := r.sessions[conn]
	if !ok {
		return
	}
	if s.identity != nil && r.usernames[s.identity.Username] == conn {
		delete(r.usernames, s.identity.Username)
	}
	delete(r.sessions, conn)
	r.order = slices.DeleteFunc(r.order, func(c Conn) bool { return c == conn })
}

// Connections returns a snapshot of every attached connection in attach order.
func (r *Registry) Connections() []Conn {
	return slices.Clone(r.order)
}
