package chat

import (
	"log/slog"
	"slices"
)

// Router fans outbound events out to connections. Delivery is best effort:
// a failed Send is logged and the rest of the batch continues.
type Router struct {
	registry *Registry
	rooms    *RoomStore
	log      *slog.Logger
}

// NewRouter returns a router that resolves recipients through registry and
// rooms.
func NewRouter(registry *Registry, rooms *RoomStore, log *slog.Logger) *Router {
	return &Router{registry: registry, rooms: rooms, log: log}
}

// Unicast delivers ev to a single connection.
func (r *Router) Unicast(conn Conn, ev Outbound) {
	if err := conn.Send(ev); err != nil {
		r.log.Debug("Delivery failed", "conn", conn.ID(), "event", eventName(ev), "error", err)
	}
}

// ToRoom delivers ev to every member of the room, except the listed
// connections. Membership is snapshotted before the first send.
func (r *Router) ToRoom(room string, ev Outbound, except ...Conn) {
	rm, ok := r.rooms.Room(room)
	if !ok {
		return
	}
	r.deliver(rm.Members(), ev, except)
}

// ToAll delivers ev to every attached connection.
func (r *Router) ToAll(ev Outbound) {
	r.deliver(r.registry.Connections(), ev, nil)
}

func (r *Router) deliver(targets []Conn, ev Outbound, except []Conn) {
	for _, conn := range targets {
		if slices.Contains(except, conn) {
			continue
		}
		r.Unicast(conn, ev)
	}
}

func eventName(ev Outbound) string {
	switch ev.(type) {
	case MessageEvent:
		return TypeMessage
	case HistoryEvent:
		return TypeHistory
	case RoomListEvent:
		return TypeRoomList
	case UserListEvent:
		return TypeUserList
	case MessageEditedEvent:
		return TypeMessageEdited
	case MessageDeletedEvent:
		return TypeMessageDeleted
	case MessageReactedEvent:
		return TypeMessageReacted
	case ErrorEvent:
		return TypeError
	default:
		return "unknown"
	}
}
