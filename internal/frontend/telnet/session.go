package telnet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/game/words"
	"github.com/cory-johannsen/wordrace/internal/gameserver"
	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/protocol"
)

// MaxGuesses is the number of guesses a player gets per round.
const MaxGuesses = 6

const helpText = `Commands:
  create          open a new room
  join <code>     join a room
  ready           mark yourself ready
  guess <word>    submit a guess
  status          show players and scores
  leave           leave the room
  quit            disconnect`

// GameHandler plays the game over a telnet connection. Guesses are graded
// locally against the round's word and relayed to opponents as moves; a
// solved guess is reported as a win.
type GameHandler struct {
	coord  *gameserver.Coordinator
	logger *zap.Logger
}

// NewGameHandler creates a GameHandler.
//
// Precondition: coord and logger must be non-nil.
func NewGameHandler(coord *gameserver.Coordinator, logger *zap.Logger) *GameHandler {
	return &GameHandler{coord: coord, logger: logger}
}

// session is one telnet player's view of the game.
type session struct {
	id     string
	conn   *Conn
	coord  *gameserver.Coordinator
	logger *zap.Logger

	mu       sync.Mutex
	room     string
	word     string
	row      int
	finished bool
}

// HandleSession runs the command loop until the client quits, the connection
// fails, or ctx is cancelled.
func (h *GameHandler) HandleSession(ctx context.Context, conn *Conn) error {
	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		coord:  h.coord,
		logger: h.logger,
	}
	client, err := h.coord.Connect(s.id)
	if err != nil {
		return err
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.pump(client)
	}()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	h.logger.Info("telnet player connected",
		observability.Conn(s.id), zap.String("remote_addr", conn.RemoteAddr().String()))
	err = s.run()

	h.coord.Disconnect(s.id)
	<-pumpDone
	return err
}

func (s *session) run() error {
	_ = s.conn.WriteLine(Colorize(Bold+Cyan, "Welcome to Word Race!") + " You are " + short(s.id) + ".")
	_ = s.conn.WriteLine(Colorize(Dim, "Type 'help' for commands."))
	for {
		if err := s.conn.WritePrompt("> "); err != nil {
			return err
		}
		line, err := s.conn.ReadLine()
		if err != nil {
			return err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "":
		case "help", "?":
			_ = s.conn.WriteLine(helpText)
		case "create":
			s.dispatch(protocol.Inbound{Kind: protocol.EventCreateRoom})
		case "join":
			if arg == "" {
				_ = s.conn.WriteLine(Colorize(Red, "Usage: join <code>"))
				continue
			}
			s.dispatch(protocol.Inbound{Kind: protocol.EventJoinRoom, RoomCode: arg})
		case "ready":
			if code, ok := s.currentRoom(); ok {
				s.dispatch(protocol.Inbound{Kind: protocol.EventPlayerReady, RoomCode: code})
			}
		case "guess":
			s.guess(arg)
		case "status":
			s.status()
		case "leave":
			if code, ok := s.currentRoom(); ok {
				s.mu.Lock()
				s.room, s.word = "", ""
				s.mu.Unlock()
				s.dispatch(protocol.Inbound{Kind: protocol.EventLeaveRoom, RoomCode: code})
				_ = s.conn.WriteLine("You left room " + code + ".")
			}
		case "quit", "exit":
			_ = s.conn.WriteLine("Bye.")
			return nil
		default:
			_ = s.conn.WriteLine(Colorf(Red, "Unknown command %q. Type 'help'.", cmd))
		}
	}
}

func (s *session) dispatch(in protocol.Inbound) {
	if err := s.coord.Dispatch(s.id, in); err != nil {
		s.logger.Debug("telnet event rejected",
			observability.Conn(s.id), observability.Event(in.Kind.String()), zap.Error(err))
	}
}

func (s *session) currentRoom() (string, bool) {
	s.mu.Lock()
	code := s.room
	s.mu.Unlock()
	if code == "" {
		_ = s.conn.WriteLine(Colorize(Red, "You are not in a room."))
		return "", false
	}
	return code, true
}

func (s *session) guess(raw string) {
	guess := strings.ToUpper(strings.TrimSpace(raw))

	s.mu.Lock()
	code, target, row, finished := s.room, s.word, s.row, s.finished
	if code == "" || target == "" {
		s.mu.Unlock()
		_ = s.conn.WriteLine(Colorize(Red, "No round in progress."))
		return
	}
	if finished {
		s.mu.Unlock()
		_ = s.conn.WriteLine(Colorize(Yellow, "Wait for the next round."))
		return
	}
	if len(guess) != len(target) || strings.IndexFunc(guess, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		s.mu.Unlock()
		_ = s.conn.WriteLine(Colorf(Red, "Guesses must be %d letters.", len(target)))
		return
	}
	statuses := words.Evaluate(guess, target)
	solved := words.Solved(statuses)
	s.row++
	s.finished = solved || s.row >= MaxGuesses
	outOfGuesses := !solved && s.finished
	s.mu.Unlock()

	_ = s.conn.WriteLine(fmt.Sprintf("%d/%d ", row+1, MaxGuesses) + Tiles(guess, statuses))

	rowJSON, _ := json.Marshal(row)
	textJSON, _ := json.Marshal(guess)
	statusJSON, _ := json.Marshal(statuses)
	s.dispatch(protocol.Inbound{
		Kind:     protocol.EventPlayerMove,
		RoomCode: code,
		Row:      rowJSON,
		Text:     textJSON,
		Status:   statusJSON,
	})
	switch {
	case solved:
		s.dispatch(protocol.Inbound{Kind: protocol.EventPlayerWin, RoomCode: code})
	case outOfGuesses:
		_ = s.conn.WriteLine(Colorf(Yellow, "Out of guesses. The word was %s.", target))
	}
}

func (s *session) status() {
	code, ok := s.currentRoom()
	if !ok {
		return
	}
	snap, ok := s.coord.Snapshot(code)
	if !ok {
		_ = s.conn.WriteLine(Colorize(Red, "Room no longer exists."))
		return
	}
	state := "waiting for players"
	if snap.Started {
		state = fmt.Sprintf("round %d", snap.Round)
	}
	_ = s.conn.WriteLine(fmt.Sprintf("Room %s, %s", Colorize(Bold, snap.Code), state))
	_ = s.conn.WriteLine(s.players(snap.Players))
	_ = s.conn.WriteLine("Scores: " + s.scores(snap.Scores))
}

// pump renders the connection's outbound events until its outbox closes.
func (s *session) pump(client *hub.Client) {
	for ev := range client.Outbox() {
		if line := s.render(ev); line != "" {
			if err := s.conn.WriteLine("\r" + line); err != nil {
				s.logger.Debug("telnet write failed", observability.Conn(s.id), zap.Error(err))
			}
		}
	}
}

// render applies an event to the session and returns its display text.
func (s *session) render(ev protocol.Outbound) string {
	switch p := ev.Payload.(type) {
	case protocol.RoomAssignment:
		s.mu.Lock()
		s.room, s.word, s.row, s.finished = p.RoomCode, "", 0, false
		s.mu.Unlock()
		if ev.Name == protocol.OutRoomCreated {
			return Colorf(Green, "Room %s created.", p.RoomCode) +
				" Others can 'join " + p.RoomCode + "'. Type 'ready' when everyone is here."
		}
		return Colorf(Green, "Joined room %s.", p.RoomCode)
	case protocol.PlayerList:
		switch ev.Name {
		case protocol.OutPlayerJoined:
			return "Player joined. " + s.players(p.Players)
		case protocol.OutPlayerLeft:
			return "Player left. " + s.players(p.Players)
		default:
			return s.players(p.Players)
		}
	case protocol.WordPayload:
		s.mu.Lock()
		s.word, s.row, s.finished = p.WordToGuess, 0, false
		s.mu.Unlock()
		if ev.Name == protocol.OutGameStart {
			return Colorf(Bold+Green, "Game on! Guess the %d-letter word with 'guess <word>'.", len(p.WordToGuess))
		}
		return Colorf(Bold+Green, "New round! Guess the new %d-letter word.", len(p.WordToGuess))
	case protocol.OpponentMove:
		var statuses []words.LetterStatus
		var row int
		if json.Unmarshal(p.Status, &statuses) != nil || json.Unmarshal(p.Row, &row) != nil {
			return fmt.Sprintf("%s made a move.", short(p.PlayerID))
		}
		return fmt.Sprintf("%s %d/%d %s", short(p.PlayerID), row+1, MaxGuesses, Blocks(statuses))
	case protocol.RoundComplete:
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		winner := short(p.Winner) + " wins"
		if p.Winner == s.id {
			winner = "You win"
		}
		return Colorf(Bold+Yellow, "%s! The word was %s.", winner, p.WordToGuess) + " Scores: " + s.scores(p.Scores)
	case protocol.ErrorPayload:
		return Colorize(Red, p.Message)
	default:
		s.logger.Warn("unrendered event", observability.Conn(s.id), observability.Event(ev.Name))
		return ""
	}
}

func (s *session) name(id string) string {
	if id == s.id {
		return short(id) + " (you)"
	}
	return short(id)
}

func (s *session) players(players []room.Player) string {
	parts := make([]string, len(players))
	for i, p := range players {
		mark := Colorize(BrightBlack, "not ready")
		if p.Ready {
			mark = Colorize(Green, "ready")
		}
		parts[i] = s.name(p.ID) + " " + mark
	}
	return "Players: " + strings.Join(parts, ", ")
}

func (s *session) scores(scores map[string]int) string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s %d", s.name(id), scores[id])
	}
	return strings.Join(parts, ", ")
}

// short abbreviates a connection ID for display.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
