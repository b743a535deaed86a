package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Logging   LoggingConfig   `toml:"logging"`
	Scripting ScriptingConfig `toml:"scripting"`
	Scene     SceneConfig     `toml:"scene"`
	Schedule  []ScheduleEntry `toml:"schedule"`
	Database  DatabaseConfig  `toml:"database"`
	Inspector InspectorConfig `toml:"inspector"`
	Autosave  AutosaveConfig  `toml:"autosave"`
}

type EngineConfig struct {
	Name            string        `toml:"name"`
	TickRate        time.Duration `toml:"tick_rate"`
	FixedStep       time.Duration `toml:"fixed_step"`
	MaxFixedSteps   int           `toml:"max_fixed_steps"`
	Ordering        string        `toml:"ordering"` // "priority" or "graph"
	HaltOnError     bool          `toml:"halt_on_error"`
	InitialCapacity int           `toml:"initial_capacity"`
	StartTime       int64         // set at boot, not from config
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type SceneConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// ScheduleEntry attaches ordering metadata to a system within a phase.
// RunIf is a Lua function name or expression evaluated each run.
type ScheduleEntry struct {
	Phase    string   `toml:"phase"`
	System   string   `toml:"system"`
	Priority *float64 `toml:"priority"`
	Before   []string `toml:"before"`
	After    []string `toml:"after"`
	RunIf    string   `toml:"run_if"`
}

// DatabaseConfig configures snapshot persistence. An empty DSN disables it.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	ConnectRetries  int           `toml:"connect_retries"`
}

type InspectorConfig struct {
	Enabled      bool          `toml:"enabled"`
	BindAddress  string        `toml:"bind_address"`
	PasswordHash string        `toml:"password_hash"` // bcrypt; empty = no auth
	QueueSize    int           `toml:"queue_size"`
	MaxPerTick   int           `toml:"max_per_tick"`
	ReplyTimeout time.Duration `toml:"reply_timeout"`
}

type AutosaveConfig struct {
	IntervalTicks int `toml:"interval_ticks"`
	Keep          int `toml:"keep"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Engine.StartTime = time.Now().Unix()
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:            "whale-engine",
			TickRate:        16 * time.Millisecond,
			FixedStep:       16 * time.Millisecond,
			MaxFixedSteps:   5,
			Ordering:        "priority",
			HaltOnError:     true,
			InitialCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Scene: SceneConfig{
			Path:  "",
			Watch: false,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectRetries:  3,
		},
		Inspector: InspectorConfig{
			Enabled:      false,
			BindAddress:  "127.0.0.1:7070",
			QueueSize:    64,
			MaxPerTick:   32,
			ReplyTimeout: 2 * time.Second,
		},
		Autosave: AutosaveConfig{
			IntervalTicks: 3600, // ~1 minute at 16ms
			Keep:          10,
		},
	}
}
