package gameserver

import (
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/history"
	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/protocol"
	"github.com/cory-johannsen/wordrace/internal/random"
)

// manualScheduler runs callbacks only when Advance moves its clock past them.
type manualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending map[string]manualTask
}

type manualTask struct {
	due time.Duration
	fn  func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{pending: make(map[string]manualTask)}
}

func (m *manualScheduler) Schedule(key string, d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[key] = manualTask{due: m.now + d, fn: fn}
}

func (m *manualScheduler) Cancel(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[string]manualTask)
}

func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *manualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []manualTask
	for key, task := range m.pending {
		if task.due <= m.now {
			due = append(due, task)
			delete(m.pending, key)
		}
	}
	m.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, task := range due {
		task.fn()
	}
}

// cyclingWords returns its words in order, starting over at the end.
type cyclingWords struct {
	mu    sync.Mutex
	words []string
	next  int
}

func (w *cyclingWords) RandomWord() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	word := w.words[w.next%len(w.words)]
	w.next++
	return word
}

// memoryRecorder keeps every recorded result.
type memoryRecorder struct {
	mu      sync.Mutex
	results []history.RoundResult
}

func (m *memoryRecorder) Record(r history.RoundResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
}

func (m *memoryRecorder) all() []history.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.RoundResult(nil), m.results...)
}

type fixture struct {
	coord    *Coordinator
	hub      *hub.Hub
	sched    *manualScheduler
	recorder *memoryRecorder
	clients  map[string]*hub.Client
}

func newFixture(t *testing.T, src random.Source) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, src, zaptest.NewLogger(t))
}

// newFixtureWithLogger is for tests whose server goroutines may log after the
// test body returns.
func newFixtureWithLogger(t *testing.T, src random.Source, logger *zap.Logger) *fixture {
	t.Helper()
	if src == nil {
		src = random.NewSeededSource(1)
	}
	h := hub.New(256, logger)
	sched := newManualScheduler()
	rec := &memoryRecorder{}
	coord := NewCoordinator(
		NewRegistry(room.NewCodeGenerator(src, room.DefaultCodeLength)),
		h,
		&cyclingWords{words: []string{"CRANE", "SLATE", "PIANO"}},
		sched,
		rec,
		DefaultRules(),
		logger,
	)
	return &fixture{coord: coord, hub: h, sched: sched, recorder: rec, clients: make(map[string]*hub.Client)}
}

func (f *fixture) connect(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		c, err := f.coord.Connect(id)
		if err != nil {
			t.Fatalf("connect %s: %v", id, err)
		}
		f.clients[id] = c
	}
}

// drain returns every event queued for id without blocking.
func (f *fixture) drain(id string) []protocol.Outbound {
	c := f.clients[id]
	var out []protocol.Outbound
	for {
		select {
		case ev, ok := <-c.Outbox():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func names(evs []protocol.Outbound) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name
	}
	return out
}

func playerIDs(players []room.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}
