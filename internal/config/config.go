package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "ATETRIA_CONFIG"

// DefaultPath is read when EnvPath is unset. A missing file there is not
// an error; the built-in defaults apply.
const DefaultPath = "./configs/atetria.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Randomizer names accepted by GameConfig.Randomizer.
const (
	RandomizerUniform = "uniform"
	RandomizerBag     = "bag"
	RandomizerFixed   = "fixed"
)

// Config holds all server configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GameConfig describes every game created by the service
type GameConfig struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	TopSpace      int           `yaml:"top_space"`
	NextQueueSize int           `yaml:"next_queue_size"`
	TickInterval  time.Duration `yaml:"tick_interval"` // 0 disables gravity
	Randomizer    string        `yaml:"randomizer"`
	FixedPiece    string        `yaml:"fixed_piece"`
	Seed          uint64        `yaml:"seed"` // 0 picks a random seed per game
	Debug         bool          `yaml:"debug"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Game: GameConfig{
			Width:         10,
			Height:        20,
			TopSpace:      4,
			NextQueueSize: 5,
			TickInterval:  500 * time.Millisecond,
			Randomizer:    RandomizerUniform,
			FixedPiece:    "I",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Game.Randomizer = strings.ToLower(cfg.Game.Randomizer)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv loads the file named by EnvPath, falling back to DefaultPath.
// It returns the path actually read, or "" when the defaults were used.
func FromEnv() (*Config, string, error) {
	path := os.Getenv(EnvPath)
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	cfg, err := Load(DefaultPath)
	if errors.Is(err, os.ErrNotExist) {
		def := Default()
		return &def, "", nil
	}
	return cfg, DefaultPath, err
}

// Validate reports the first setting that cannot produce a playable game.
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.Width < 4:
		return fmt.Errorf("%w: game.width %d is narrower than the widest piece", ErrInvalid, g.Width)
	case g.TopSpace < 0:
		return fmt.Errorf("%w: game.top_space %d is negative", ErrInvalid, g.TopSpace)
	case g.Height <= g.TopSpace:
		return fmt.Errorf("%w: game.height %d leaves no room below top_space %d", ErrInvalid, g.Height, g.TopSpace)
	case g.Height < 4:
		return fmt.Errorf("%w: game.height %d is lower than the tallest piece", ErrInvalid, g.Height)
	case g.NextQueueSize < 0:
		return fmt.Errorf("%w: game.next_queue_size %d is negative", ErrInvalid, g.NextQueueSize)
	case g.TickInterval < 0:
		return fmt.Errorf("%w: game.tick_interval %s is negative", ErrInvalid, g.TickInterval)
	}
	switch g.Randomizer {
	case RandomizerUniform, RandomizerBag, RandomizerFixed:
	default:
		return fmt.Errorf("%w: unknown game.randomizer %q", ErrInvalid, g.Randomizer)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: server.shutdown_timeout %s is negative", ErrInvalid, c.Server.ShutdownTimeout)
	}
	return nil
}
