package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	Store  struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`

		// Retention keeps a date's keys this long past the end of that day; empty keeps them forever.
		Retention string `yaml:"retention"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		AIEnabled      bool   `yaml:"ai_enabled"`
		Subject        string `yaml:"subject"`
		Questions      int    `yaml:"questions"`
		LeaderboardTop int    `yaml:"leaderboard_top"`
		CreatedBy      string `yaml:"created_by"`
	} `yaml:"quiz"`
	LLM struct {
		Server      string  `yaml:"server"`
		Model       string  `yaml:"model"`
		Timeout     string  `yaml:"timeout"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`
}

// LoggerConfig selects zap's encoder and level.
type LoggerConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Default returns the configuration used when no file is present: in-memory store,
// offline question bank, console logging.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Store.Backend = BackendMemory
	cfg.Quiz.Subject = "General Knowledge"
	cfg.Quiz.Questions = 5
	cfg.Quiz.LeaderboardTop = 10
	cfg.LLM.Model = "llama3.2"
	cfg.LLM.Temperature = 0.7
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks that the selected backend has its connection settings.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store backend %q requires redis.addr", c.Store.Backend)
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("store backend %q requires postgres.url", c.Store.Backend)
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("store backend %q requires sqlite.path", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Quiz.AIEnabled && c.LLM.Server == "" {
		return fmt.Errorf("quiz.ai_enabled requires llm.server")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
