// Package protocol defines the client event surface: the closed set of
// inbound event kinds, their payloads, the outbound events, and the JSON
// envelope shared by the websocket and gRPC transports.
package protocol

import (
	"encoding/json"

	"github.com/cory-johannsen/wordrace/internal/game/room"
)

// EventKind enumerates inbound client events.
type EventKind int

// Inbound event kinds.
const (
	EventCreateRoom EventKind = iota + 1
	EventJoinRoom
	EventPlayerReady
	EventPlayerMove
	EventPlayerWin
	EventLeaveRoom
)

var kindNames = map[EventKind]string{
	EventCreateRoom:  "createRoom",
	EventJoinRoom:    "joinRoom",
	EventPlayerReady: "playerReady",
	EventPlayerMove:  "playerMove",
	EventPlayerWin:   "playerWin",
	EventLeaveRoom:   "leaveRoom",
}

var kindsByName = func() map[string]EventKind {
	m := make(map[string]EventKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether k is one of the defined kinds.
func (k EventKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseEventKind maps a wire name to its kind.
func ParseEventKind(name string) (EventKind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds returns every inbound kind in declaration order.
func Kinds() []EventKind {
	return []EventKind{
		EventCreateRoom, EventJoinRoom, EventPlayerReady,
		EventPlayerMove, EventPlayerWin, EventLeaveRoom,
	}
}

// RequiresRoomCode reports whether the kind targets an existing room.
func (k EventKind) RequiresRoomCode() bool {
	return k != EventCreateRoom
}

// Inbound is a decoded client event.
//
// Row, Text, and Status are only set for EventPlayerMove and are relayed
// verbatim; the server never interprets them.
type Inbound struct {
	Kind     EventKind
	RoomCode string
	Row      json.RawMessage
	Text     json.RawMessage
	Status   json.RawMessage
}

// Outbound event names.
const (
	OutRoomCreated       = "roomCreated"
	OutRoomJoined        = "roomJoined"
	OutPlayerJoined      = "playerJoined"
	OutPlayerReadyUpdate = "playerReadyUpdate"
	OutGameStart         = "gameStart"
	OutOpponentMove      = "opponentMove"
	OutRoundComplete     = "roundComplete"
	OutNewRound          = "newRound"
	OutPlayerLeft        = "playerLeft"
	OutError             = "error"
)

// Outbound is a server event addressed to one or more connections.
type Outbound struct {
	Name    string
	Payload any
}

// RoomAssignment answers createRoom and joinRoom.
type RoomAssignment struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// PlayerList carries the room roster for playerJoined, playerReadyUpdate, and playerLeft.
type PlayerList struct {
	Players []room.Player `json:"players"`
}

// WordPayload carries the target word for gameStart and newRound.
type WordPayload struct {
	WordToGuess string `json:"wordToGuess"`
}

// OpponentMove relays one player's guess to the rest of the room.
type OpponentMove struct {
	PlayerID string          `json:"playerId"`
	Row      json.RawMessage `json:"row,omitempty"`
	Text     json.RawMessage `json:"text,omitempty"`
	Status   json.RawMessage `json:"status,omitempty"`
}

// RoundComplete announces a round winner with the updated scores.
type RoundComplete struct {
	Winner      string         `json:"winner"`
	Scores      map[string]int `json:"scores"`
	WordToGuess string         `json:"wordToGuess"`
}

// ErrorPayload reports a rejected request to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}
