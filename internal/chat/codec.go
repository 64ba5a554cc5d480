package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire values of the "type" tag.
const (
	TypeJoin           = "join"
	TypeMessage        = "message"
	TypeEditMessage    = "editMessage"
	TypeDeleteMessage  = "deleteMessage"
	TypeReactMessage   = "reactMessage"
	TypeCreateRoom     = "createRoom"
	TypeLeave          = "leave"
	TypeHistory        = "history"
	TypeRoomList       = "roomList"
	TypeUserList       = "userList"
	TypeMessageEdited  = "messageEdited"
	TypeMessageDeleted = "messageDeleted"
	TypeMessageReacted = "messageReacted"
	TypeError          = "error"
)

// ErrUnknownType is returned by Decode for frames whose type tag names no
// known request. Callers drop such frames without replying.
var ErrUnknownType = errors.New("unknown event type")

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame. Room and user names are trimmed so that
// blank values fail validation later.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeJoin:
		var req JoinRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Room = strings.TrimSpace(req.Room)
		return req, nil
	case TypeMessage:
		var req SendRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		req.Room = strings.TrimSpace(req.Room)
		return req, nil
	case TypeEditMessage:
		var req EditRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return req, nil
	case TypeDeleteMessage:
		var req DeleteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return req, nil
	case TypeReactMessage:
		var req ReactRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return req, nil
	case TypeCreateRoom:
		var req CreateRoomRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		req.Room = strings.TrimSpace(req.Room)
		return req, nil
	case TypeLeave:
		var req LeaveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Room = strings.TrimSpace(req.Room)
		return req, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// Encode renders an outbound event as a JSON frame with its type tag.
func Encode(ev Outbound) ([]byte, error) {
	var frame any
	switch e := ev.(type) {
	case MessageEvent:
		frame = struct {
			Type string `json:"type"`
			MessageEvent
		}{TypeMessage, e}
	case HistoryEvent:
		if e.Messages == nil {
			e.Messages = []MessageEvent{}
		}
		frame = struct {
			Type string `json:"type"`
			HistoryEvent
		}{TypeHistory, e}
	case RoomListEvent:
		if e.Rooms == nil {
			e.Rooms = []string{}
		}
		frame = struct {
			Type string `json:"type"`
			RoomListEvent
		}{TypeRoomList, e}
	case UserListEvent:
		if e.Users == nil {
			e.Users = []string{}
		}
		frame = struct {
			Type string `json:"type"`
			UserListEvent
		}{TypeUserList, e}
	case MessageEditedEvent:
		frame = struct {
			Type string `json:"type"`
			MessageEditedEvent
		}{TypeMessageEdited, e}
	case MessageDeletedEvent:
		frame = struct {
			Type string `json:"type"`
			MessageDeletedEvent
		}{TypeMessageDeleted, e}
	case MessageReactedEvent:
		frame = struct {
			Type string `json:"type"`
			MessageReactedEvent
		}{TypeMessageReacted, e}
	case ErrorEvent:
		frame = struct {
			Type string `json:"type"`
			ErrorEvent
		}{TypeError, e}
	default:
		return nil, fmt.Errorf("encode: unsupported outbound event %T", ev)
	}
	return json.Marshal(frame)
}
