package room_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/random"
)

func TestNew(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "AB12", r.Code)
	assert.Equal(t, []room.Player{{ID: "p1"}}, r.Players())
	assert.Equal(t, map[string]int{"p1": 0}, r.Scores())
	assert.Equal(t, "CRANE", r.Word())
	assert.False(t, r.Started())
	assert.Equal(t, 1, r.Round())
}

func TestNew_DistinctInstanceIDs(t *testing.T) {
	a := room.New("AB12", "p1", "CRANE")
	b := room.New("AB12", "p1", "CRANE")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAddAndRemovePlayer(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	r.AddPlayer("p2")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]int{"p1": 0, "p2": 0}, r.Scores())

	assert.True(t, r.RemovePlayer("p1"))
	assert.Equal(t, []room.Player{{ID: "p2"}}, r.Players())
	assert.Equal(t, map[string]int{"p2": 0}, r.Scores())

	assert.False(t, r.RemovePlayer("nobody"))
	assert.True(t, r.RemovePlayer("p2"))
	assert.True(t, r.Empty())
}

func TestSetReady_UnknownPlayer(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	assert.False(t, r.SetReady("ghost"))
	assert.False(t, r.Players()[0].Ready)
}

func TestTryStart(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	r.SetReady("p1")
	assert.False(t, r.TryStart(2), "single-player room must not start")

	r.AddPlayer("p2")
	assert.False(t, r.TryStart(2), "p2 not ready")
	r.SetReady("p2")
	assert.True(t, r.TryStart(2))
	assert.True(t, r.Started())
	assert.False(t, r.TryStart(2), "transition fires once")
}

func TestRecordWinAndNextRound(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	r.AddPlayer("p2")
	r.SetReady("p1")
	r.SetReady("p2")
	require.True(t, r.TryStart(2))

	assert.Equal(t, 1, r.RecordWin("p1"))
	assert.Equal(t, map[string]int{"p1": 1, "p2": 0}, r.Scores())

	r.NextRound("SLATE")
	assert.Equal(t, "SLATE", r.Word())
	assert.Equal(t, 2, r.Round())
	assert.True(t, r.Started(), "started survives a new round")
	for _, p := range r.Players() {
		assert.False(t, p.Ready)
	}
}

func TestPlayersReturnsCopy(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	players := r.Players()
	players[0].Ready = true
	scores := r.Scores()
	scores["p1"] = 99

	assert.False(t, r.Players()[0].Ready)
	assert.Equal(t, 0, r.Scores()["p1"])
}

func TestSnapshot(t *testing.T) {
	r := room.New("AB12", "p1", "CRANE")
	r.AddPlayer("p2")
	s := r.Snapshot()
	assert.Equal(t, r.ID, s.ID)
	assert.Equal(t, "AB12", s.Code)
	assert.Len(t, s.Players, 2)
	assert.Equal(t, "CRANE", s.WordToGuess)
	assert.False(t, s.Started)
}

// Property: after any sequence of adds and removes, scores keys equal player IDs.
func TestProperty_ScoresTrackPlayers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := room.New("AB12", "p0", "CRANE")
		ids := []string{"p0", "p1", "p2", "p3", "p4"}
		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				if !r.HasPlayer(id) {
					r.AddPlayer(id)
				}
			case 1:
				r.RemovePlayer(id)
			case 2:
				if r.HasPlayer(id) {
					r.RecordWin(id)
				}
			}
			players := r.Players()
			scores := r.Scores()
			if len(players) != len(scores) {
				rt.Fatalf("players=%v scores=%v out of sync", players, scores)
			}
			for _, p := range players {
				if _, ok := scores[p.ID]; !ok {
					rt.Fatalf("player %s has no score entry", p.ID)
				}
			}
		}
	})
}

func TestCodeGenerator_Generate(t *testing.T) {
	g := room.NewCodeGenerator(random.NewSequence(10, 11, 1, 2), 4)
	assert.Equal(t, "AB12", g.Generate())
}

func TestCodeGenerator_UniqueRetriesOnCollision(t *testing.T) {
	g := room.NewCodeGenerator(random.NewSequence(10, 11, 1, 2, 10, 11, 1, 3), 4)
	taken := map[string]bool{"AB12": true}
	code := g.Unique(func(c string) bool { return taken[c] })
	assert.Equal(t, "AB13", code)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12", room.NormalizeCode("  ab12 "))
}

func TestProperty_CodeShape(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 8).Draw(rt, "length")
		seed := rapid.Uint64().Draw(rt, "seed")
		code := room.NewCodeGenerator(random.NewSeededSource(seed), length).Generate()
		if len(code) != length {
			rt.Fatalf("code %q has length %d, want %d", code, len(code), length)
		}
		for _, c := range code {
			if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
				rt.Fatalf("code %q contains %q outside base-36", code, c)
			}
		}
	})
}

// Property: Unique never returns a code already taken.
func TestProperty_UniqueAvoidsTaken(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := room.NewCodeGenerator(random.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), 4)
		taken := make(map[string]bool)
		n := rapid.IntRange(1, 200).Draw(rt, "n")
		for i := 0; i < n; i++ {
			code := g.Unique(func(c string) bool { return taken[c] })
			if taken[code] {
				rt.Fatalf("duplicate code %s", code)
			}
			taken[code] = true
		}
	})
}
