package gameserver

import "errors"

// Join failures. Each is reported to the requesting connection only.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrGameInProgress = errors.New("game already in progress")
	ErrRoomFull       = errors.New("room is full")
)

// clientMessage maps a join failure to the text the client displays.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, ErrGameInProgress):
		return "Game already in progress"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	default:
		return err.Error()
	}
}
