// Package config provides Viper-based configuration loading for the wordrace server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds process-wide settings.
type ServerConfig struct {
	// Name identifies this server instance in logs.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds how long each service may take to stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig holds settings for the primary client transport.
type WebSocketConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener. PORT in the environment overrides it.
	Port int `mapstructure:"port"`
	// ReadTimeout is how long a connection may stay silent before it is dropped.
	// Pongs count as traffic.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval is the keepalive ping period. Must be shorter than ReadTimeout.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// MaxMessageBytes caps the size of a single inbound frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
	// AllowedOrigins lists permitted Origin headers; "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit is the sustained inbound events per second per connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the inbound burst allowance per connection.
	RateBurst int `mapstructure:"rate_burst"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (w WebSocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// GRPCConfig holds settings for the streaming gRPC transport.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// HubConfig holds connection layer settings.
type HubConfig struct {
	// OutboxSize is the number of outbound events buffered per connection
	// before further events to that connection are dropped.
	OutboxSize int `mapstructure:"outbox_size"`
}

// GameConfig holds room and round rules.
type GameConfig struct {
	// MaxPlayers is the room capacity.
	MaxPlayers int `mapstructure:"max_players"`
	// MinPlayersToStart is the smallest room that may auto-start once everyone is ready.
	MinPlayersToStart int `mapstructure:"min_players_to_start"`
	// RoomCodeLength is the number of characters in a room code.
	RoomCodeLength int `mapstructure:"room_code_length"`
	// NewRoundDelay is the pause between a win and the next round.
	NewRoundDelay time.Duration `mapstructure:"new_round_delay"`
	// DictionaryPath is a YAML word list; empty uses the built-in dictionary.
	DictionaryPath string `mapstructure:"dictionary_path"`
	// StatsInterval is the period of the room statistics log line; 0 disables it.
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// DatabaseConfig holds PostgreSQL connection settings for round history.
type DatabaseConfig struct {
	// Enabled turns round history recording on.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// HistoryQueueSize is the number of round results buffered for the writer.
	HistoryQueueSize int `mapstructure:"history_queue_size"`
	// AutoMigrate applies the embedded schema migrations at startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Hub       HubConfig       `mapstructure:"hub"`
	Game      GameConfig      `mapstructure:"game"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, check := range []func() []string{
		func() []string { return validateServer(c.Server) },
		func() []string { return validateWebSocket(c.WebSocket) },
		func() []string { return validateTelnet(c.Telnet) },
		func() []string { return validateGRPC(c.GRPC) },
		func() []string { return validateHub(c.Hub) },
		func() []string { return validateGame(c.Game) },
		func() []string { return validateDatabase(c.Database) },
		func() []string { return validateLogging(c.Logging) },
	} {
		errs = append(errs, check()...)
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validPort(p int) bool { return p >= 0 && p <= 65535 }

func validateServer(s ServerConfig) []string {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	return errs
}

func validateWebSocket(w WebSocketConfig) []string {
	var errs []string
	if !validPort(w.Port) {
		errs = append(errs, fmt.Sprintf("websocket.port must be 0-65535, got %d", w.Port))
	}
	if w.ReadTimeout <= 0 {
		errs = append(errs, "websocket.read_timeout must be positive")
	}
	if w.WriteTimeout <= 0 {
		errs = append(errs, "websocket.write_timeout must be positive")
	}
	if w.PingInterval <= 0 || w.PingInterval >= w.ReadTimeout {
		errs = append(errs, fmt.Sprintf("websocket.ping_interval must be positive and below read_timeout, got %s", w.PingInterval))
	}
	if w.MaxMessageBytes < 64 {
		errs = append(errs, fmt.Sprintf("websocket.max_message_bytes must be >= 64, got %d", w.MaxMessageBytes))
	}
	if len(w.AllowedOrigins) == 0 {
		errs = append(errs, "websocket.allowed_origins must not be empty")
	}
	if w.RateLimit <= 0 {
		errs = append(errs, "websocket.rate_limit must be positive")
	}
	if w.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("websocket.rate_burst must be >= 1, got %d", w.RateBurst))
	}
	return errs
}

func validateTelnet(t TelnetConfig) []string {
	if !t.Enabled {
		return nil
	}
	var errs []string
	if !validPort(t.Port) {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	return errs
}

func validateGRPC(g GRPCConfig) []string {
	if !g.Enabled {
		return nil
	}
	var errs []string
	if g.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if !validPort(g.Port) {
		errs = append(errs, fmt.Sprintf("grpc.port must be 0-65535, got %d", g.Port))
	}
	return errs
}

func validateHub(h HubConfig) []string {
	if h.OutboxSize < 1 {
		return []string{fmt.Sprintf("hub.outbox_size must be >= 1, got %d", h.OutboxSize)}
	}
	return nil
}

func validateGame(g GameConfig) []string {
	var errs []string
	if g.MaxPlayers < 1 {
		errs = append(errs, fmt.Sprintf("game.max_players must be >= 1, got %d", g.MaxPlayers))
	}
	if g.MinPlayersToStart < 2 || g.MinPlayersToStart > g.MaxPlayers {
		errs = append(errs, fmt.Sprintf("game.min_players_to_start must be in [2, max_players], got %d", g.MinPlayersToStart))
	}
	if g.RoomCodeLength < 4 || g.RoomCodeLength > 8 {
		errs = append(errs, fmt.Sprintf("game.room_code_length must be 4-8, got %d", g.RoomCodeLength))
	}
	if g.NewRoundDelay < 0 {
		errs = append(errs, "game.new_round_delay must not be negative")
	}
	if g.StatsInterval < 0 {
		errs = append(errs, "game.stats_interval must not be negative")
	}
	return errs
}

func validateDatabase(d DatabaseConfig) []string {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be in [0, max_conns]")
	}
	if d.HistoryQueueSize < 1 {
		errs = append(errs, fmt.Sprintf("database.history_queue_size must be >= 1, got %d", d.HistoryQueueSize))
	}
	return errs
}

func validateLogging(l LoggingConfig) []string {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	return errs
}

// Load builds the configuration from defaults, the optional YAML file at path,
// and environment overrides, then validates it.
//
// Environment variables use the WORDRACE_ prefix with "." replaced by "_"
// (WORDRACE_GAME_MAX_PLAYERS). PORT overrides websocket.port.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WORDRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("websocket.port", "WORDRACE_WEBSOCKET_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("binding port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "wordrace")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("websocket.host", "0.0.0.0")
	v.SetDefault("websocket.port", 3001)
	v.SetDefault("websocket.read_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "25s")
	v.SetDefault("websocket.max_message_bytes", 4096)
	v.SetDefault("websocket.allowed_origins", []string{"*"})
	v.SetDefault("websocket.rate_limit", 20.0)
	v.SetDefault("websocket.rate_burst", 40)

	v.SetDefault("telnet.enabled", false)
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("hub.outbox_size", 64)

	v.SetDefault("game.max_players", 4)
	v.SetDefault("game.min_players_to_start", 2)
	v.SetDefault("game.room_code_length", 4)
	v.SetDefault("game.new_round_delay", "5s")
	v.SetDefault("game.dictionary_path", "")
	v.SetDefault("game.stats_interval", "1m")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wordrace")
	v.SetDefault("database.password", "wordrace")
	v.SetDefault("database.name", "wordrace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.history_queue_size", 256)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
