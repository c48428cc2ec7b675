package gameserver

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stats is a point-in-time view of server load.
type Stats struct {
	Rooms       int
	Players     int
	Connections int
}

// Stats returns current room, player, and connection counts.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Rooms:       c.registry.Len(),
		Players:     c.registry.PlayerCount(),
		Connections: c.hub.ConnectionCount(),
	}
}

// StatsReporter logs Coordinator.Stats once per interval.
// It implements server.Service.
type StatsReporter struct {
	coord    *Coordinator
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStatsReporter creates a reporter.
//
// Precondition: interval must be > 0.
func NewStatsReporter(coord *Coordinator, interval time.Duration, logger *zap.Logger) *StatsReporter {
	if interval <= 0 {
		panic("gameserver.NewStatsReporter: interval must be > 0")
	}
	return &StatsReporter{coord: coord, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start logs stats every interval until Stop is called.
func (s *StatsReporter) Start() error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.report()
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (s *StatsReporter) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *StatsReporter) report() {
	st := s.coord.Stats()
	s.logger.Info("stats",
		zap.Int("rooms", st.Rooms),
		zap.Int("players", st.Players),
		zap.Int("connections", st.Connections),
	)
}
