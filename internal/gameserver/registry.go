package gameserver

import (
	"sort"
	"sync"

	"github.com/cory-johannsen/wordrace/internal/game/room"
)

// Registry maps live room codes to rooms.
//
// Lock order is registry, then room: a caller holding a room lock must not
// acquire the registry lock.
//
// Invariant: every registered room is non-empty and not closed.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
	codes *room.CodeGenerator
}

// NewRegistry creates an empty Registry that allocates codes from gen.
//
// Precondition: gen must be non-nil.
func NewRegistry(gen *room.CodeGenerator) *Registry {
	return &Registry{rooms: make(map[string]*room.Room), codes: gen}
}

// Get returns the room registered under code, or nil.
func (r *Registry) Get(code string) *room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[code]
}

// Exists reports whether code is registered.
func (r *Registry) Exists(code string) bool {
	return r.Get(code) != nil
}

// Create registers a new room hosted by hostID under a fresh code.
// The room is returned locked; the caller must Unlock it.
//
// Postcondition: the returned room's code was unused at the time of the call.
func (r *Registry) Create(hostID, word string) *room.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.codes.Unique(func(c string) bool {
		_, taken := r.rooms[c]
		return taken
	})
	rm := room.New(code, hostID, word)
	rm.Lock()
	r.rooms[code] = rm
	return rm
}

// removeLocked drops rm if it is still the room registered under its code.
//
// Precondition: the caller holds r.mu for writing and rm's lock.
func (r *Registry) removeLocked(rm *room.Room) {
	if r.rooms[rm.Code] == rm {
		delete(r.rooms, rm.Code)
	}
	rm.Close()
}

// Remove drops rm from the registry and marks it closed.
func (r *Registry) Remove(rm *room.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm.Lock()
	defer rm.Unlock()
	r.removeLocked(rm)
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomsWithPlayer returns every room in which connID is a player.
func (r *Registry) RoomsWithPlayer(connID string) []*room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*room.Room
	for _, rm := range r.rooms {
		rm.Lock()
		if rm.HasPlayer(connID) {
			out = append(out, rm)
		}
		rm.Unlock()
	}
	return out
}

// PlayerCount returns the total number of players across all rooms.
func (r *Registry) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rm := range r.rooms {
		rm.Lock()
		n += rm.Len()
		rm.Unlock()
	}
	return n
}
