package service

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("invalid room code format")
	ErrRoomCodeLength  = errors.New("room code must be 6 characters")
	ErrNotInRoom       = errors.New("connection is not a member of the room")
	ErrNoSession       = errors.New("connection has no active session")
	ErrInternalServer  = errors.New("internal server error")
)

// PublicMessage 把服务层错误转换为可以直接展示给用户的提示。
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRoomCode):
		return "Invalid room code format"
	case errors.Is(err, ErrRoomCodeLength):
		return "Room code must be 6 characters"
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrNotInRoom), errors.Is(err, ErrNoSession):
		return "Not in a room"
	default:
		return "An unexpected error occurred"
	}
}
