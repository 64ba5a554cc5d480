package chat

// Inbound is a client request. The set of implementations is closed: every
// variant below is handled by Controller.Handle.
type Inbound interface {
	inbound()
}

// JoinRequest binds a username on first use and moves the connection into Room.
type JoinRequest struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

// SendRequest posts a text message or a file to the sender's current room.
type SendRequest struct {
	Room    string       `json:"room"`
	Message string       `json:"message" validate:"required_without=File"`
	File    *FilePayload `json:"file,omitempty"`
}

// EditRequest replaces the text of a message the sender authored.
type EditRequest struct {
	ID      string `json:"id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// DeleteRequest removes a message the sender authored.
type DeleteRequest struct {
	ID string `json:"id" validate:"required"`
}

// ReactRequest attaches an emoji to any message in the sender's room.
type ReactRequest struct {
	ID    string `json:"id" validate:"required"`
	Emoji string `json:"emoji" validate:"required"`
}

// CreateRoomRequest creates an empty room.
type CreateRoomRequest struct {
	Room string `json:"room" validate:"required"`
}

// LeaveRequest removes the sender from Room without releasing its username.
type LeaveRequest struct {
	Username string `json:"username"`
	Room     string `json:"room" validate:"required"`
}

func (JoinRequest) inbound()       {}
func (SendRequest) inbound()       {}
func (EditRequest) inbound()       {}
func (DeleteRequest) inbound()     {}
func (ReactRequest) inbound()      {}
func (CreateRoomRequest) inbound() {}
func (LeaveRequest) inbound()      {}

// Outbound is an event delivered to one or more connections.
type Outbound interface {
	outbound()
}

// MessageEvent carries a chat message or a system notice.
type MessageEvent struct {
	ID        string       `json:"id,omitempty"`
	Username  string       `json:"username"`
	Message   string       `json:"message,omitempty"`
	File      *FilePayload `json:"file,omitempty"`
	Timestamp int64        `json:"timestamp"`
	System    bool         `json:"system,omitempty"`
	Reactions []Reaction   `json:"reactions,omitempty"`
}

// HistoryEvent replays a room's retained messages, oldest first.
type HistoryEvent struct {
	Messages []MessageEvent `json:"messages"`
}

type RoomListEvent struct {
	Rooms []string `json:"rooms"`
}

type UserListEvent struct {
	Users []string `json:"users"`
}

type MessageEditedEvent struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type MessageDeletedEvent struct {
	ID string `json:"id"`
}

type MessageReactedEvent struct {
	ID       string `json:"id"`
	Emoji    string `json:"emoji"`
	Username string `json:"username"`
}

// ErrorEvent reports a rejected request to the connection that sent it.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (MessageEvent) outbound()        {}
func (HistoryEvent) outbound()        {}
func (RoomListEvent) outbound()       {}
func (UserListEvent) outbound()       {}
func (MessageEditedEvent) outbound()  {}
func (MessageDeletedEvent) outbound() {}
func (MessageReactedEvent) outbound() {}
func (ErrorEvent) outbound()          {}
