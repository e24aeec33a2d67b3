package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with an
// optional .env file on top.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	DefaultPrefix string `env:"DEFAULT_PREFIX" envDefault:"!"`

	HistoryCapacity    int `env:"HISTORY_CAPACITY" envDefault:"512"`
	AuditCapacity      int `env:"AUDIT_CAPACITY" envDefault:"256"`
	CooldownMaxEntries int `env:"COOLDOWN_MAX_ENTRIES" envDefault:"4096"`

	RetentionMaxAge   time.Duration `env:"RETENTION_MAX_AGE" envDefault:"720h"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"1h"`

	// Flood guard for the inbound message listener, events per second.
	FloodRate  float64 `env:"FLOOD_RATE" envDefault:"25"`
	FloodBurst int     `env:"FLOOD_BURST" envDefault:"50"`
}

// New loads the configuration. A missing .env file is not an error; missing
// DISCORD_TOKEN is.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, using system environment variables")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("config: DISCORD_TOKEN is not set")
	}

	return &cfg, nil
}
