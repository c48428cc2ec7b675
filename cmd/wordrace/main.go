// Package main provides the wordrace server binary: the websocket transport
// plus the optional telnet and gRPC transports over one room coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/wordrace/internal/config"
	"github.com/cory-johannsen/wordrace/internal/frontend/telnet"
	"github.com/cory-johannsen/wordrace/internal/frontend/websocket"
	"github.com/cory-johannsen/wordrace/internal/game/room"
	"github.com/cory-johannsen/wordrace/internal/game/words"
	"github.com/cory-johannsen/wordrace/internal/gameserver"
	"github.com/cory-johannsen/wordrace/internal/history"
	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/random"
	"github.com/cory-johannsen/wordrace/internal/server"
	"github.com/cory-johannsen/wordrace/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and environment")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting wordrace",
		zap.String("websocket_addr", cfg.WebSocket.Addr()),
		zap.Bool("telnet", cfg.Telnet.Enabled),
		zap.Bool("grpc", cfg.GRPC.Enabled),
		zap.Bool("history", cfg.Database.Enabled),
	)

	dict, err := words.Load(cfg.Game.DictionaryPath)
	if err != nil {
		logger.Fatal("loading dictionary", zap.Error(err))
	}
	logger.Info("dictionary loaded", zap.Int("words", dict.Len()))

	cryptoSrc := random.NewCryptoSource()
	registry := gameserver.NewRegistry(room.NewCodeGenerator(cryptoSrc, cfg.Game.RoomCodeLength))
	connHub := hub.New(cfg.Hub.OutboxSize, logger)
	scheduler := gameserver.NewTimerScheduler()
	defer scheduler.Stop()

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	var recorder history.Recorder = history.Nop{}
	if cfg.Database.Enabled {
		pool, rec := openHistory(ctx, cfg.Database, logger)
		defer pool.Close()
		lifecycle.Add("history", rec)
		recorder = rec
	}

	coord := gameserver.NewCoordinator(
		registry,
		connHub,
		words.NewPicker(dict, cryptoSrc),
		scheduler,
		recorder,
		gameserver.Rules{
			MaxPlayers:        cfg.Game.MaxPlayers,
			MinPlayersToStart: cfg.Game.MinPlayersToStart,
			NewRoundDelay:     cfg.Game.NewRoundDelay,
		},
		logger,
	)

	if cfg.Game.StatsInterval > 0 {
		lifecycle.Add("stats", gameserver.NewStatsReporter(coord, cfg.Game.StatsInterval, logger))
	}

	lifecycle.Add("websocket", websocket.NewServer(cfg.WebSocket, coord, logger))

	if cfg.Telnet.Enabled {
		lifecycle.Add("telnet", telnet.NewAcceptor(cfg.Telnet, telnet.NewGameHandler(coord, logger), logger))
	}

	if cfg.GRPC.Enabled {
		grpcServer := grpc.NewServer()
		gameserver.NewGameServiceServer(coord, logger).Register(grpcServer)
		lifecycle.Add("grpc", &server.FuncService{
			StartFn: func() error {
				lis, err := net.Listen("tcp", cfg.GRPC.Addr())
				if err != nil {
					return fmt.Errorf("listening on %s: %w", cfg.GRPC.Addr(), err)
				}
				logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
				return grpcServer.Serve(lis)
			},
			StopFn: func() {
				grpcServer.GracefulStop()
			},
		})
	}

	logger.Info("wordrace ready", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("wordrace exited with error", zap.Error(err))
	}
}

// openHistory connects to PostgreSQL, applies migrations when configured,
// and returns the pool with a recorder writing through it.
func openHistory(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*postgres.Pool, *history.AsyncRecorder) {
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	if cfg.AutoMigrate {
		if err := migrate(cfg.DSN(), logger); err != nil {
			pool.Close()
			logger.Fatal("migrating database", zap.Error(err))
		}
	}

	repo := postgres.NewRoundResultRepository(pool.DB())
	return pool, history.NewAsyncRecorder(repo, cfg.HistoryQueueSize, logger)
}

func migrate(dsn string, logger *zap.Logger) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	changed, err := m.Up(0)
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("database schema current",
		zap.Bool("migrated", changed),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
