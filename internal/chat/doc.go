// Package chat is the room and session core of the group-messaging service.
//
// It tracks which connection speaks as which username, keeps every room's
// membership and message history, and decides which connections see each
// state change. All state is owned by a single Loop goroutine, so none of the
// types in this package lock.
package chat
