// Package history records the outcome of every finished round as an audit
// trail. Records flow through a bounded queue so the game path never waits on
// storage.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wordrace/internal/observability"
)

// RoundResult is one completed round.
type RoundResult struct {
	RoomID      string
	RoomCode    string
	Round       int
	Winner      string
	Word        string
	Scores      map[string]int
	PlayerCount int
	FinishedAt  time.Time
}

// Recorder accepts round results. Record must not block.
type Recorder interface {
	Record(RoundResult)
}

// Nop discards every result.
type Nop struct{}

// Record does nothing.
func (Nop) Record(RoundResult) {}

// Store persists round results.
type Store interface {
	InsertRoundResult(ctx context.Context, r RoundResult) error
}

// AsyncRecorder hands results to a Store from a single worker goroutine.
// It implements server.Service: Start runs the worker and Stop drains the
// queue before Start returns.
type AsyncRecorder struct {
	store        Store
	logger       *zap.Logger
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan RoundResult
	done   chan struct{}
}

// NewAsyncRecorder creates a recorder with room for queueSize pending results.
//
// Precondition: store and logger must be non-nil; queueSize must be > 0.
func NewAsyncRecorder(store Store, queueSize int, logger *zap.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		panic("history.NewAsyncRecorder: queueSize must be > 0")
	}
	return &AsyncRecorder{
		store:        store,
		logger:       logger,
		writeTimeout: 5 * time.Second,
		queue:        make(chan RoundResult, queueSize),
		done:         make(chan struct{}),
	}
}

// Record enqueues r. A full queue or a stopped recorder drops r with a warning.
func (a *AsyncRecorder) Record(r RoundResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.logger.Warn("round result after shutdown", observability.Room(r.RoomCode))
		return
	}
	select {
	case a.queue <- r:
	default:
		a.logger.Warn("history queue full, dropping round result",
			observability.Room(r.RoomCode),
			zap.Int("round", r.Round),
		)
	}
}

// Start writes queued results until Stop is called and the queue is drained.
func (a *AsyncRecorder) Start() error {
	defer close(a.done)
	for r := range a.queue {
		a.write(r)
	}
	return nil
}

// Stop closes the queue and waits for the worker to flush it.
// It must only be called after Start.
func (a *AsyncRecorder) Stop() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncRecorder) write(r RoundResult) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()
	if err := a.store.InsertRoundResult(ctx, r); err != nil {
		a.logger.Error("recording round result",
			observability.Room(r.RoomCode),
			zap.Int("round", r.Round),
			zap.Error(err),
		)
	}
}
