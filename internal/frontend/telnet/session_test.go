package telnet

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wordrace/internal/config"
	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/game/words"
	"github.com/cory-johannsen/wordrace/internal/gameserver"
	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/random"
	"github.com/cory-johannsen/wordrace/internal/testutil"
)

const wait = 2 * time.Second

var createdPattern = regexp.MustCompile(`Room ([0-9A-Z]{4}) created\.`)

func startGame(t *testing.T) (*gameserver.Coordinator, string) {
	t.Helper()
	logger := zap.NewNop()
	sched := gameserver.NewTimerScheduler()
	t.Cleanup(sched.Stop)
	coord := gameserver.NewCoordinator(
		gameserver.NewRegistry(room.NewCodeGenerator(random.NewSeededSource(42), room.DefaultCodeLength)),
		hub.New(64, logger),
		words.NewPicker(words.Default(), random.NewSeededSource(7)),
		sched,
		nil,
		gameserver.DefaultRules(),
		logger,
	)
	acc := NewAcceptor(config.TelnetConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: 10 * time.Second, WriteTimeout: 5 * time.Second},
		NewGameHandler(coord, logger), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Start() }()
	select {
	case <-acc.Ready():
	case err := <-errCh:
		t.Fatalf("acceptor failed to start: %v", err)
	}
	t.Cleanup(func() {
		acc.Stop()
		<-errCh
	})
	return coord, acc.Addr()
}

func connectPlayer(t *testing.T, addr string) *testutil.TelnetClient {
	t.Helper()
	c := testutil.NewTelnetClient(t, addr)
	c.ReadUntil("Welcome to Word Race!", wait)
	c.ReadUntil("> ", wait)
	return c
}

func TestTelnetGame_CreateJoinPlayWin(t *testing.T) {
	coord, addr := startGame(t)

	host := connectPlayer(t, addr)
	host.Send("create")
	out := host.ReadUntil("created.", wait)
	m := createdPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	code := m[1]

	guest := connectPlayer(t, addr)
	guest.Send("join " + strings.ToLower(code))
	guest.ReadUntil("Joined room "+code+".", wait)
	host.ReadUntil("Player joined.", wait)

	host.Send("ready")
	guest.Send("ready")
	host.ReadUntil("Game on!", wait)
	guest.ReadUntil("Game on!", wait)

	snap, ok := coord.Snapshot(code)
	require.True(t, ok)
	word := snap.WordToGuess

	wrong := "ZZZZZ"
	guest.Send("guess " + wrong)
	guest.ReadUntil("1/6", wait)
	host.ReadUntil("1/6", wait)

	host.Send("guess " + strings.ToLower(word))
	host.ReadUntil("You win! The word was "+word+".", wait)
	guest.ReadUntil("wins! The word was "+word+".", wait)

	host.Send("guess " + word)
	host.ReadUntil("Wait for the next round.", wait)

	guest.Send("quit")
	guest.ReadUntil("Bye.", wait)
	host.ReadUntil("Player left.", wait)

	host.Send("status")
	host.ReadUntil("Scores: ", wait)

	host.Send("leave")
	host.ReadUntil("You left room "+code+".", wait)
	assert.Eventually(t, func() bool { return coord.RoomCount() == 0 }, wait, 10*time.Millisecond)
}

func TestTelnetGame_CommandErrors(t *testing.T) {
	_, addr := startGame(t)
	c := connectPlayer(t, addr)

	c.Send("ready")
	c.ReadUntil("You are not in a room.", wait)
	c.Send("guess crane")
	c.ReadUntil("No round in progress.", wait)
	c.Send("join")
	c.ReadUntil("Usage: join <code>", wait)
	c.Send("join QQQQ")
	c.ReadUntil("Room does not exist", wait)
	c.Send("dance")
	c.ReadUntil(`Unknown command "dance"`, wait)
	c.Send("help")
	c.ReadUntil("guess <word>", wait)

	c.Send("create")
	c.ReadUntil("created.", wait)
	c.Send("status")
	c.ReadUntil("waiting for players", wait)
}

func TestGuessValidation(t *testing.T) {
	_, addr := startGame(t)
	host := connectPlayer(t, addr)
	guest := connectPlayer(t, addr)

	host.Send("create")
	code := createdPattern.FindStringSubmatch(host.ReadUntil("created.", wait))[1]
	guest.Send("join " + code)
	guest.ReadUntil("Joined room", wait)
	host.Send("ready")
	guest.Send("ready")
	host.ReadUntil("Game on!", wait)

	host.Send("guess abc")
	host.ReadUntil("Guesses must be 5 letters.", wait)
	host.Send("guess ab1de")
	host.ReadUntil("Guesses must be 5 letters.", wait)
}
