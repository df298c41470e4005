// Package config loads service settings.
//
// Precedence, lowest to highest: built-in defaults, the YAML file named by
// CONFIG_FILE, environment variables (a .env file is loaded into the
// environment by main before Load runs).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/wordseek/internal/game"
)

// Config holds every tunable of the service.
type Config struct {
	Port         string `yaml:"port"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"` // "json" or "console"
	ClientOrigin string `yaml:"client_origin"`

	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiresDays int    `yaml:"jwt_expires_days"`

	DBPath        string `yaml:"db_path"`
	NATSURL       string `yaml:"nats_url"` // empty disables the JetStream sink
	WordsFile     string `yaml:"words_file"`
	WordsURL      string `yaml:"words_url"`
	DictionaryURL string `yaml:"dictionary_url"` // "off" disables definitions

	Game    GameConfig    `yaml:"game"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// GameConfig mirrors game.Config with YAML-friendly names.
type GameConfig struct {
	WordLength int           `yaml:"word_length"`
	InitTime   time.Duration `yaml:"init_time"`
	Step       time.Duration `yaml:"step"`
	MinTime    time.Duration `yaml:"min_time"`
	WarnAt     time.Duration `yaml:"warn_at"`
	JoinWindow time.Duration `yaml:"join_window"`
	MinPlayers int           `yaml:"min_players"`
}

// GatewayConfig tunes WebSocket connections.
type GatewayConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBuffer     int           `yaml:"send_buffer"`
}

// Default returns the built-in settings.
func Default() Config {
	g := game.DefaultConfig()
	return Config{
		Port:           "8080",
		LogLevel:       "info",
		LogFormat:      "json",
		ClientOrigin:   "http://localhost:5173",
		JWTSecret:      "dev-secret-change-me",
		JWTExpiresDays: 7,
		DBPath:         "./data/wordseek.db",
		Game: GameConfig{
			WordLength: g.WordLength,
			InitTime:   g.InitTime,
			Step:       g.Step,
			MinTime:    g.MinTime,
			WarnAt:     g.WarnAt,
			JoinWindow: g.JoinWindow,
			MinPlayers: g.MinPlayers,
		},
		Gateway: GatewayConfig{
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 4096,
			SendBuffer:     64,
		},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ClientOrigin = getEnv("CLIENT_ORIGIN", cfg.ClientOrigin)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpiresDays = getEnvAsInt("JWT_EXPIRES_DAYS", cfg.JWTExpiresDays)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.WordsFile = getEnv("WORDS_FILE", cfg.WordsFile)
	cfg.WordsURL = getEnv("WORDS_URL", cfg.WordsURL)
	cfg.DictionaryURL = getEnv("DICTIONARY_URL", cfg.DictionaryURL)

	cfg.Game.WordLength = getEnvAsInt("GAME_WORD_LENGTH", cfg.Game.WordLength)
	cfg.Game.InitTime = getEnvAsDuration("GAME_INIT_TIME", cfg.Game.InitTime)
	cfg.Game.Step = getEnvAsDuration("GAME_STEP", cfg.Game.Step)
	cfg.Game.MinTime = getEnvAsDuration("GAME_MIN_TIME", cfg.Game.MinTime)
	cfg.Game.WarnAt = getEnvAsDuration("GAME_WARN_AT", cfg.Game.WarnAt)
	cfg.Game.JoinWindow = getEnvAsDuration("GAME_JOIN_WINDOW", cfg.Game.JoinWindow)
	cfg.Game.MinPlayers = getEnvAsInt("GAME_MIN_PLAYERS", cfg.Game.MinPlayers)

	cfg.Gateway.WriteTimeout = getEnvAsDuration("WS_WRITE_TIMEOUT", cfg.Gateway.WriteTimeout)
	cfg.Gateway.ReadTimeout = getEnvAsDuration("WS_READ_TIMEOUT", cfg.Gateway.ReadTimeout)
	cfg.Gateway.PingInterval = getEnvAsDuration("WS_PING_INTERVAL", cfg.Gateway.PingInterval)
	cfg.Gateway.MaxMessageSize = int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", int(cfg.Gateway.MaxMessageSize)))
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt secret is required")
	}
	if c.Game.MinTime > c.Game.InitTime {
		return fmt.Errorf("config: game min_time %s exceeds init_time %s", c.Game.MinTime, c.Game.InitTime)
	}
	if c.Gateway.PingInterval >= c.Gateway.ReadTimeout {
		return fmt.Errorf("config: ping interval %s must be shorter than read timeout %s",
			c.Gateway.PingInterval, c.Gateway.ReadTimeout)
	}
	return nil
}

// Engine converts the game section into engine settings.
func (c Config) Engine() game.Config {
	return game.Config{
		WordLength: c.Game.WordLength,
		InitTime:   c.Game.InitTime,
		Step:       c.Game.Step,
		MinTime:    c.Game.MinTime,
		WarnAt:     c.Game.WarnAt,
		JoinWindow: c.Game.JoinWindow,
		MinPlayers: c.Game.MinPlayers,
	}
}

// JWTTTL is the lifetime of issued guest tokens.
func (c Config) JWTTTL() time.Duration {
	if c.JWTExpiresDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// DefinitionsEnabled reports whether post-win lookups should run.
func (c Config) DefinitionsEnabled() bool {
	return !strings.EqualFold(c.DictionaryURL, "off")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "2m") or plain seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
