package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/random"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	reg := NewRegistry(room.NewCodeGenerator(random.NewSequence(10, 11, 1, 2, 3, 4, 5, 6), 4))

	rm := reg.Create("p1", "CRANE")
	rm.Unlock()
	assert.Equal(t, "AB12", rm.Code)
	assert.True(t, reg.Exists("AB12"))
	assert.Same(t, rm, reg.Get("AB12"))

	other := reg.Create("p2", "SLATE")
	other.Unlock()
	assert.Equal(t, []string{"3456", "AB12"}, reg.Codes())
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, reg.PlayerCount())

	reg.Remove(rm)
	assert.False(t, reg.Exists("AB12"))
	assert.Nil(t, reg.Get("AB12"))
	rm.Lock()
	assert.True(t, rm.Closed())
	rm.Unlock()
}

func TestRegistry_RemoveStaleRoomKeepsReplacement(t *testing.T) {
	reg := NewRegistry(room.NewCodeGenerator(random.NewSequence(10, 11, 1, 2), 4))
	old := reg.Create("p1", "CRANE")
	old.Unlock()
	reg.Remove(old)

	fresh := reg.Create("p2", "SLATE")
	fresh.Unlock()
	require.Equal(t, old.Code, fresh.Code)

	reg.Remove(old)
	assert.Same(t, fresh, reg.Get(fresh.Code))
}

func TestRegistry_RoomsWithPlayer(t *testing.T) {
	reg := NewRegistry(room.NewCodeGenerator(random.NewSeededSource(7), 4))
	a := reg.Create("p1", "CRANE")
	a.AddPlayer("p2")
	a.Unlock()
	b := reg.Create("p2", "SLATE")
	b.Unlock()

	assert.Len(t, reg.RoomsWithPlayer("p2"), 2)
	assert.Len(t, reg.RoomsWithPlayer("p1"), 1)
	assert.Empty(t, reg.RoomsWithPlayer("nobody"))
}
