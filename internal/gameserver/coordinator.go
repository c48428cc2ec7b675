// Package gameserver owns the live rooms and applies client events to them.
package gameserver

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/history"
	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/protocol"
)

// WordSource supplies target words.
type WordSource interface {
	RandomWord() string
}

// Rules holds the tunable game rules.
type Rules struct {
	MaxPlayers        int
	MinPlayersToStart int
	NewRoundDelay     time.Duration
}

// DefaultRules returns four players per room, two to start, and a five
// second pause between rounds.
func DefaultRules() Rules {
	return Rules{MaxPlayers: 4, MinPlayersToStart: 2, NewRoundDelay: 5 * time.Second}
}

type handlerFunc func(c *Coordinator, connID string, in protocol.Inbound) error

// Coordinator applies inbound events to rooms and emits the resulting
// outbound events through the hub. Every operation touching a room holds that
// room's lock for its whole duration, so events on one room apply one at a
// time and their broadcasts are queued in the same order.
type Coordinator struct {
	registry  *Registry
	hub       *hub.Hub
	words     WordSource
	scheduler Scheduler
	recorder  history.Recorder
	rules     Rules
	logger    *zap.Logger
	now       func() time.Time
	handlers  map[protocol.EventKind]handlerFunc
}

// NewCoordinator wires a Coordinator. A nil recorder records nothing.
//
// Precondition: registry, h, words, scheduler and logger must be non-nil.
func NewCoordinator(
	registry *Registry,
	h *hub.Hub,
	words WordSource,
	scheduler Scheduler,
	recorder history.Recorder,
	rules Rules,
	logger *zap.Logger,
) *Coordinator {
	if recorder == nil {
		recorder = history.Nop{}
	}
	return &Coordinator{
		registry:  registry,
		hub:       h,
		words:     words,
		scheduler: scheduler,
		recorder:  recorder,
		rules:     rules,
		logger:    logger,
		now:       time.Now,
		handlers: map[protocol.EventKind]handlerFunc{
			protocol.EventCreateRoom: func(c *Coordinator, id string, _ protocol.Inbound) error {
				c.CreateRoom(id)
				return nil
			},
			protocol.EventJoinRoom: func(c *Coordinator, id string, in protocol.Inbound) error {
				return c.JoinRoom(id, in.RoomCode)
			},
			protocol.EventPlayerReady: func(c *Coordinator, id string, in protocol.Inbound) error {
				c.PlayerReady(id, in.RoomCode)
				return nil
			},
			protocol.EventPlayerMove: func(c *Coordinator, id string, in protocol.Inbound) error {
				c.PlayerMove(id, in.RoomCode, in.Row, in.Text, in.Status)
				return nil
			},
			protocol.EventPlayerWin: func(c *Coordinator, id string, in protocol.Inbound) error {
				c.PlayerWin(id, in.RoomCode)
				return nil
			},
			protocol.EventLeaveRoom: func(c *Coordinator, id string, in protocol.Inbound) error {
				c.LeaveRoom(id, in.RoomCode)
				return nil
			},
		},
	}
}

// Connect registers a new connection with the hub.
//
// Postcondition: Returns the connection's outbox, or an error if connID is in use.
func (c *Coordinator) Connect(connID string) (*hub.Client, error) {
	client, err := c.hub.Register(connID)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("connection opened", observability.Conn(connID))
	return client, nil
}

// Dispatch routes a decoded event to its handler.
func (c *Coordinator) Dispatch(connID string, in protocol.Inbound) error {
	h, ok := c.handlers[in.Kind]
	if !ok {
		c.logger.Warn("no handler for event", observability.Conn(connID), zap.Stringer("kind", in.Kind))
		return nil
	}
	return h(c, connID, in)
}

// Reject answers a frame that could not be decoded.
func (c *Coordinator) Reject(connID string, err error) {
	c.logger.Debug("rejecting malformed event", observability.Conn(connID), zap.Error(err))
	c.hub.SendTo(connID, protocol.OutError, protocol.ErrorPayload{Message: protocol.MalformedMessage(err)})
}

// lookup returns the open room under code, locked, or nil.
func (c *Coordinator) lookup(code string) *room.Room {
	rm := c.registry.Get(room.NormalizeCode(code))
	if rm == nil {
		return nil
	}
	rm.Lock()
	if rm.Closed() {
		rm.Unlock()
		return nil
	}
	return rm
}

// CreateRoom opens a room hosted by connID.
//
// Postcondition: connID is the room's sole unready player and has been sent roomCreated.
func (c *Coordinator) CreateRoom(connID string) string {
	word := c.words.RandomWord()
	rm := c.registry.Create(connID, word)
	defer rm.Unlock()

	c.hub.Subscribe(connID, rm.Code)
	c.hub.SendTo(connID, protocol.OutRoomCreated, protocol.RoomAssignment{RoomCode: rm.Code, PlayerID: connID})
	c.logger.Info("room created", observability.Room(rm.Code), observability.Conn(connID))
	return rm.Code
}

// JoinRoom adds connID to the room under code.
//
// Postcondition: On failure the sender alone receives an error event and the
// returned error matches ErrRoomNotFound, ErrGameInProgress, or ErrRoomFull.
func (c *Coordinator) JoinRoom(connID, code string) error {
	err := c.joinRoom(connID, code)
	if err != nil {
		c.hub.SendTo(connID, protocol.OutError, protocol.ErrorPayload{Message: clientMessage(err)})
		c.logger.Debug("join rejected",
			observability.Room(code), observability.Conn(connID), zap.Error(err))
	}
	return err
}

func (c *Coordinator) joinRoom(connID, code string) error {
	rm := c.lookup(code)
	if rm == nil {
		return ErrRoomNotFound
	}
	defer rm.Unlock()

	if rm.HasPlayer(connID) {
		c.hub.SendTo(connID, protocol.OutRoomJoined, protocol.RoomAssignment{RoomCode: rm.Code, PlayerID: connID})
		return nil
	}
	if rm.Started() {
		return ErrGameInProgress
	}
	if rm.Len() >= c.rules.MaxPlayers {
		return ErrRoomFull
	}

	rm.AddPlayer(connID)
	c.hub.Subscribe(connID, rm.Code)
	c.hub.SendTo(connID, protocol.OutRoomJoined, protocol.RoomAssignment{RoomCode: rm.Code, PlayerID: connID})
	c.hub.Broadcast(rm.Code, protocol.OutPlayerJoined, protocol.PlayerList{Players: rm.Players()})
	c.logger.Info("player joined",
		observability.Room(rm.Code), observability.Conn(connID), zap.Int("players", rm.Len()))
	return nil
}

// PlayerReady marks connID ready and starts the game once every player is
// ready and the room holds enough players. Unknown rooms are ignored.
func (c *Coordinator) PlayerReady(connID, code string) {
	rm := c.lookup(code)
	if rm == nil {
		return
	}
	defer rm.Unlock()

	rm.SetReady(connID)
	c.hub.Broadcast(rm.Code, protocol.OutPlayerReadyUpdate, protocol.PlayerList{Players: rm.Players()})
	if rm.TryStart(c.rules.MinPlayersToStart) {
		c.hub.Broadcast(rm.Code, protocol.OutGameStart, protocol.WordPayload{WordToGuess: rm.Word()})
		c.logger.Info("game started", observability.Room(rm.Code), zap.Int("players", rm.Len()))
	}
}

// PlayerMove relays a guess to every other player in the room. Unknown rooms
// and senders that are not players are ignored.
func (c *Coordinator) PlayerMove(connID, code string, row, text, status json.RawMessage) {
	rm := c.lookup(code)
	if rm == nil {
		return
	}
	defer rm.Unlock()

	if !rm.HasPlayer(connID) {
		return
	}
	c.hub.BroadcastExcept(rm.Code, connID, protocol.OutOpponentMove, protocol.OpponentMove{
		PlayerID: connID,
		Row:      row,
		Text:     text,
		Status:   status,
	})
}

// PlayerWin credits connID with the round and schedules the next one.
// Unknown rooms and senders that are not players are ignored.
func (c *Coordinator) PlayerWin(connID, code string) {
	rm := c.lookup(code)
	if rm == nil {
		return
	}
	defer rm.Unlock()

	if !rm.HasPlayer(connID) {
		return
	}
	rm.RecordWin(connID)
	scores := rm.Scores()
	c.hub.Broadcast(rm.Code, protocol.OutRoundComplete, protocol.RoundComplete{
		Winner:      connID,
		Scores:      scores,
		WordToGuess: rm.Word(),
	})
	c.recorder.Record(history.RoundResult{
		RoomID:      rm.ID,
		RoomCode:    rm.Code,
		Round:       rm.Round(),
		Winner:      connID,
		Word:        rm.Word(),
		Scores:      scores,
		PlayerCount: rm.Len(),
		FinishedAt:  c.now(),
	})
	c.logger.Info("round complete",
		observability.Room(rm.Code), zap.String("winner", connID), zap.Int("round", rm.Round()))

	code, roomID := rm.Code, rm.ID
	c.scheduler.Schedule(code, c.rules.NewRoundDelay, func() {
		c.startNextRound(code, roomID)
	})
}

// startNextRound runs after the post-win delay. The room is fetched again by
// code; a deleted room, or a newer room reusing the code, is left alone.
func (c *Coordinator) startNextRound(code, roomID string) {
	rm := c.lookup(code)
	if rm == nil {
		return
	}
	defer rm.Unlock()

	if rm.ID != roomID {
		return
	}
	rm.NextRound(c.words.RandomWord())
	c.hub.Broadcast(rm.Code, protocol.OutNewRound, protocol.WordPayload{WordToGuess: rm.Word()})
	c.logger.Debug("new round", observability.Room(rm.Code), zap.Int("round", rm.Round()))
}

// LeaveRoom removes connID from the room under code. Unknown rooms are ignored.
func (c *Coordinator) LeaveRoom(connID, code string) {
	rm := c.registry.Get(room.NormalizeCode(code))
	if rm == nil {
		return
	}
	c.leave(connID, rm)
}

// Disconnect removes connID from every room it occupies, then unregisters it
// from the hub. Calling it again, or for a connection in no room, does nothing
// beyond the unregister.
func (c *Coordinator) Disconnect(connID string) {
	for _, rm := range c.registry.RoomsWithPlayer(connID) {
		c.leave(connID, rm)
	}
	c.hub.Unregister(connID)
	c.logger.Debug("connection closed", observability.Conn(connID))
}

// leave is the shared leave path. The registry lock is taken first because
// the last player out deletes the room.
func (c *Coordinator) leave(connID string, rm *room.Room) {
	c.registry.mu.Lock()
	rm.Lock()
	defer rm.Unlock()

	if rm.Closed() || !rm.RemovePlayer(connID) {
		c.registry.mu.Unlock()
		return
	}
	c.hub.Unsubscribe(connID, rm.Code)

	if rm.Empty() {
		c.registry.removeLocked(rm)
		c.scheduler.Cancel(rm.Code)
		c.registry.mu.Unlock()
		c.logger.Info("room closed", observability.Room(rm.Code))
		return
	}
	c.registry.mu.Unlock()

	c.hub.Broadcast(rm.Code, protocol.OutPlayerLeft, protocol.PlayerList{Players: rm.Players()})
	c.logger.Info("player left",
		observability.Room(rm.Code), observability.Conn(connID), zap.Int("players", rm.Len()))
}

// Snapshot returns a copy of the room under code.
func (c *Coordinator) Snapshot(code string) (room.Snapshot, bool) {
	rm := c.lookup(code)
	if rm == nil {
		return room.Snapshot{}, false
	}
	defer rm.Unlock()
	return rm.Snapshot(), true
}

// RoomCount returns the number of live rooms.
func (c *Coordinator) RoomCount() int {
	return c.registry.Len()
}
