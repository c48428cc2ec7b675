// Package room holds the per-room game state and the room-code generator.
//
// A Room is not safe for concurrent use on its own; callers serialize access
// through Lock/Unlock. The gameserver package owns that discipline.
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Player is one occupant of a room.
type Player struct {
	// ID is the connection identifier assigned by the transport.
	ID string `json:"id"`
	// Ready reports whether the player is ready for the next game or round.
	Ready bool `json:"ready"`
}

// Room is an isolated game session.
//
// Invariant: the key set of scores equals the set of player IDs.
// Invariant: players holds no duplicate IDs.
type Room struct {
	mu sync.Mutex

	// ID distinguishes this room instance from a later room that reuses its code.
	ID   string
	Code string

	players     []*Player
	wordToGuess string
	started     bool
	scores      map[string]int
	round       int
	closed      bool
}

// New creates a room whose sole player is hostID.
//
// Precondition: code, hostID, and word must be non-empty.
// Postcondition: The room has one unready player with a zero score and
// started == false.
func New(code, hostID, word string) *Room {
	return &Room{
		ID:          uuid.NewString(),
		Code:        code,
		players:     []*Player{{ID: hostID}},
		wordToGuess: word,
		scores:      map[string]int{hostID: 0},
		round:       1,
	}
}

// Lock acquires the room's mutex.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's mutex.
func (r *Room) Unlock() { r.mu.Unlock() }

// Closed reports whether the room has been removed from its registry.
// A closed room must be treated as absent.
func (r *Room) Closed() bool { return r.closed }

// Close marks the room as removed. It is idempotent.
func (r *Room) Close() { r.closed = true }

// Started reports whether the all-ready transition has fired.
func (r *Room) Started() bool { return r.started }

// Word returns the current round's target word.
func (r *Room) Word() string { return r.wordToGuess }

// Round returns the 1-based round number.
func (r *Room) Round() int { return r.round }

// Len returns the number of players.
func (r *Room) Len() int { return len(r.players) }

// Empty reports whether the room has no players.
func (r *Room) Empty() bool { return len(r.players) == 0 }

// HasPlayer reports whether id is a player in this room.
func (r *Room) HasPlayer(id string) bool {
	return r.indexOf(id) >= 0
}

func (r *Room) indexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// AddPlayer appends an unready player and creates its zero score.
//
// Precondition: id is not already a player; the caller has checked capacity.
// Postcondition: Len() grows by one and scores[id] == 0.
func (r *Room) AddPlayer(id string) {
	r.players = append(r.players, &Player{ID: id})
	r.scores[id] = 0
}

// RemovePlayer deletes the player and its score entry.
//
// Postcondition: Returns false and changes nothing when id is not a player.
func (r *Room) RemovePlayer(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	delete(r.scores, id)
	return true
}

// SetReady marks the player ready.
//
// Postcondition: Returns false and changes nothing when id is not a player.
func (r *Room) SetReady(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.players[i].Ready = true
	return true
}

// AllReady reports whether every player is ready. An empty room is not ready.
func (r *Room) AllReady() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// TryStart fires the all-ready transition when every player is ready and the
// room holds at least minPlayers.
//
// Postcondition: Returns true exactly when started flipped from false to true.
func (r *Room) TryStart(minPlayers int) bool {
	if r.started || len(r.players) < minPlayers || !r.AllReady() {
		return false
	}
	r.started = true
	return true
}

// RecordWin adds one to the player's score. A missing entry counts as zero.
//
// Postcondition: Returns the new score.
func (r *Room) RecordWin(id string) int {
	r.scores[id]++
	return r.scores[id]
}

// NextRound replaces the target word and clears every player's readiness.
// started is left untouched.
func (r *Room) NextRound(word string) {
	r.wordToGuess = word
	for _, p := range r.players {
		p.Ready = false
	}
	r.round++
}

// Players returns a copy of the players in join order.
func (r *Room) Players() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// Scores returns a copy of the score table.
func (r *Room) Scores() map[string]int {
	out := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		out[id] = s
	}
	return out
}

// Snapshot is a point-in-time copy of a room, safe to read without the lock.
type Snapshot struct {
	ID          string
	Code        string
	Players     []Player
	WordToGuess string
	Started     bool
	Scores      map[string]int
	Round       int
}

// Snapshot copies the room's state.
func (r *Room) Snapshot() Snapshot {
	return Snapshot{
		ID:          r.ID,
		Code:        r.Code,
		Players:     r.Players(),
		WordToGuess: r.wordToGuess,
		Started:     r.started,
		Scores:      r.Scores(),
		Round:       r.round,
	}
}
