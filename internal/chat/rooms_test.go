package chat_test

import (
	"testing"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/chat"
	"github.com/stretchr/testify/require"
)

func TestRoomStore_EnsureRoom_IsIdempotent(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")

	// When the same room is ensured twice
	first, created := store.EnsureRoom("random")
	req.True(created)
	second, created := store.EnsureRoom("random")

	// Then the second call returns the existing room
	req.False(created)
	req.Same(first, second)
	req.Equal([]string{"general", "random"}, store.ListRoomNames())
}

func TestRoomStore_CreateRoom_Conflict(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")

	_, err := store.CreateRoom("general")
	req.ErrorIs(err, chat.ErrConflict)

	_, err = store.CreateRoom("random")
	req.NoError(err)
	req.Equal([]string{"general", "random"}, store.ListRoomNames())
}

func TestRoomStore_JoinLeave_Membership(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	alice, bob := newConn("a"), newConn("b")

	req.NoError(store.Join("general", alice))
	req.NoError(store.Join("general", alice))
	req.NoError(store.Join("general", bob))

	room, ok := store.Room("general")
	req.True(ok)
	snapshot := room.Members()
	req.Len(snapshot, 2)

	// Leaving twice is a no-op and does not touch earlier snapshots
	store.Leave("general", alice)
	store.Leave("general", alice)
	req.Len(snapshot, 2)
	req.False(room.HasMember(alice))
	req.True(room.HasMember(bob))

	// Joining a room that was never created fails
	req.ErrorIs(store.Join("missing", alice), chat.ErrNotFound)
}

func TestRoomStore_AppendMessage_DerivesUniqueIDs(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	at := time.UnixMilli(1_000)

	first, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "one", CreatedAt: at})
	req.NoError(err)
	req.Equal("alice-1000", first.ID)

	// Given the first message is deleted
	req.NoError(store.DeleteMessage("general", first.ID, "alice"))

	// When another message is created at the same instant
	second, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "two", CreatedAt: at})
	req.NoError(err)
	third, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "three", CreatedAt: at})
	req.NoError(err)

	// Then no id is ever reused
	req.Equal("alice-1000-1", second.ID)
	req.Equal("alice-1000-2", third.ID)

	// And history keeps arrival order
	room, _ := store.Room("general")
	history := room.History()
	req.Len(history, 2)
	req.Equal("two", history[0].Text)
	req.Equal("three", history[1].Text)
}

func TestRoomStore_AppendMessage_RejectsReusedExplicitID(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")

	_, err := store.AppendMessage("general", chat.Message{ID: "m1", Author: "alice"})
	req.NoError(err)
	req.NoError(store.DeleteMessage("general", "m1", "alice"))

	_, err = store.AppendMessage("general", chat.Message{ID: "m1", Author: "bob"})
	req.ErrorIs(err, chat.ErrConflict)
}

func TestRoomStore_EditMessage_OnlyAuthor(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	msg, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "hi", CreatedAt: time.UnixMilli(5)})
	req.NoError(err)

	// When someone else edits it
	_, err = store.EditMessage("general", msg.ID, "hacked", "bob")

	// Then the edit is refused and the message is unchanged
	req.ErrorIs(err, chat.ErrAuthorization)
	found, ok := store.FindMessage("general", msg.ID)
	req.True(ok)
	req.Equal("hi", found.Text)

	// When the author edits it
	edited, err := store.EditMessage("general", msg.ID, "hello", "alice")
	req.NoError(err)
	req.Equal(msg.ID, edited.ID)
	req.Equal("alice", edited.Author)
	req.Equal("hello", edited.Text)

	_, err = store.EditMessage("general", "nope", "x", "alice")
	req.ErrorIs(err, chat.ErrNotFound)
}

func TestRoomStore_DeleteMessage_OnlyAuthor(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	msg, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "hi"})
	req.NoError(err)

	req.ErrorIs(store.DeleteMessage("general", msg.ID, "bob"), chat.ErrAuthorization)
	_, ok := store.FindMessage("general", msg.ID)
	req.True(ok)

	req.NoError(store.DeleteMessage("general", msg.ID, "alice"))
	_, ok = store.FindMessage("general", msg.ID)
	req.False(ok)

	req.ErrorIs(store.DeleteMessage("general", msg.ID, "alice"), chat.ErrNotFound)
}

func TestRoomStore_AddReaction_NotDeduplicated(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	msg, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "hi"})
	req.NoError(err)

	_, err = store.AddReaction("general", msg.ID, "bob", "👍")
	req.NoError(err)
	reacted, err := store.AddReaction("general", msg.ID, "bob", "👍")
	req.NoError(err)

	req.Equal([]chat.Reaction{{Username: "bob", Emoji: "👍"}, {Username: "bob", Emoji: "👍"}}, reacted.Reactions)

	_, err = store.AddReaction("general", "nope", "bob", "👍")
	req.ErrorIs(err, chat.ErrNotFound)
}

func TestRoom_History_ReturnsCopies(t *testing.T) {
	req := require.New(t)
	store := chat.NewRoomStore("general")
	msg, err := store.AppendMessage("general", chat.Message{Author: "alice", Text: "hi"})
	req.NoError(err)
	_, err = store.AddReaction("general", msg.ID, "bob", "🎉")
	req.NoError(err)

	room, _ := store.Room("general")
	history := room.History()
	history[0].Text = "changed"
	history[0].Reactions[0].Emoji = "💥"

	found, _ := store.FindMessage("general", msg.ID)
	req.Equal("hi", found.Text)
	req.Equal("🎉", found.Reactions[0].Emoji)
}
