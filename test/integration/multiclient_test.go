package integration

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/gochat-rooms/internal/chat"
	"github.com/Tyrowin/gochat-rooms/test/testhelpers"
)

// TestRoomIsolation verifies messages only reach members of the sender's room.
func TestRoomIsolation(t *testing.T) {
	srv := testhelpers.StartServer(t, nil)
	alice := srv.Dial(t)
	bob := srv.Dial(t)
	carol := srv.Dial(t)
	alice.Join("alice", "general")
	bob.Join("bob", "general")
	carol.Join("carol", "random")

	alice.Send(map[string]any{"type": "message", "room": "general", "message": "general only"})
	bob.ExpectMessage(func(ev testhelpers.Event) bool { return ev.Message == "general only" })
	carol.ExpectNone(chat.TypeMessage, 300*time.Millisecond)
}

// TestUsernameTaken verifies a second client cannot claim a bound username.
func TestUsernameTaken(t *testing.T) {
	srv := testhelpers.StartServer(t, nil)
	alice := srv.Dial(t)
	bob := srv.Dial(t)
	alice.Join("alice", "general")

	bob.Send(map[string]any{"type": "join", "username": "alice", "room": "general"})
	if msg := bob.ExpectError(); !strings.Contains(msg, "already taken") {
		t.Errorf("Expected username taken error, got %q", msg)
	}
	alice.ExpectNone(chat.TypeUserList, 200*time.Millisecond)
}

// TestCreateRoomBroadcast verifies every connection, joined or not, learns
// about a new room and that a duplicate create is rejected privately.
func TestCreateRoomBroadcast(t *testing.T) {
	srv := testhelpers.StartServer(t, nil)
	lurker := srv.Dial(t)
	alice := srv.Dial(t)

	// An error reply proves the lurker is attached before the room exists.
	lurker.Send(map[string]any{"type": "message", "message": "hi"})
	lurker.ExpectError()
	alice.Join("alice", "general")

	alice.Send(map[string]any{"type": "createRoom", "room": "random"})
	hasRandom := func(ev testhelpers.Event) bool {
		return len(ev.Rooms) == 2 && ev.Rooms[1] == "random"
	}
	lurker.Expect(chat.TypeRoomList, hasRandom)
	alice.Expect(chat.TypeRoomList, hasRandom)
	alice.ExpectMessage(func(ev testhelpers.Event) bool { return ev.Message == "Room 'random' created." })

	lurker.Send(map[string]any{"type": "createRoom", "room": "random"})
	if msg := lurker.ExpectError(); msg != "Room 'random' already exists." {
		t.Errorf("Unexpected error %q", msg)
	}
	alice.ExpectNone(chat.TypeError, 200*time.Millisecond)
}

// TestDisconnectReleasesUsername verifies the room is told when a member
// drops and that the name can be reused.
func TestDisconnectReleasesUsername(t *testing.T) {
	srv := testhelpers.StartServer(t, nil)
	alice := srv.Dial(t)
	bob := srv.Dial(t)
	alice.Join("alice", "general")
	bob.Join("bob", "general")

	if err := testhelpers.CloseWebSocket(bob.Conn); err != nil {
		t.Fatalf("Failed to close bob: %v", err)
	}

	alice.ExpectMessage(func(ev testhelpers.Event) bool { return ev.Message == "bob has disconnected." })
	users := alice.Expect(chat.TypeUserList, nil)
	if len(users.Users) != 1 || users.Users[0] != "alice" {
		t.Errorf("Expected [alice], got %v", users.Users)
	}

	again := srv.Dial(t)
	again.Join("bob", "general")
}

// TestConcurrentSenders verifies every member receives every message when
// many clients post at once.
func TestConcurrentSenders(t *testing.T) {
	srv := testhelpers.StartServer(t, nil)

	const numClients = 8
	clients := make([]*testhelpers.Client, numClients)
	for i := range clients {
		clients[i] = srv.Dial(t)
		clients[i].Join(fmt.Sprintf("user-%d", i), "general")
	}

	var wg sync.WaitGroup
	errs := make(chan error, numClients)
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client *testhelpers.Client) {
			defer wg.Done()
			errs <- client.Conn.WriteJSON(map[string]any{
				"type":    "message",
				"room":    "general",
				"message": fmt.Sprintf("hello from %d", i),
			})
		}(i, client)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
	}

	for i, client := range clients {
		seen := map[string]bool{}
		for len(seen) < numClients {
			ev := client.ExpectMessage(func(ev testhelpers.Event) bool {
				return !ev.System && strings.HasPrefix(ev.Message, "hello from ")
			})
			seen[ev.ID] = true
		}
		if len(seen) != numClients {
			t.Errorf("Client %d saw %d messages, want %d", i, len(seen), numClients)
		}
	}
}
