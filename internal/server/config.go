package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	DBPath   string `hcl:"db_path,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the blackjack table parameters seeded into the
// settings store on first run
type GameSettings struct {
	Enabled    bool  `hcl:"enabled,optional"`
	MinBet     int64 `hcl:"min_bet,optional"`
	MaxBet     int64 `hcl:"max_bet,optional"`
	TTLMinutes int   `hcl:"ttl_minutes,optional"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  ":8080",
			DBPath:   "blackjackd.db",
			LogLevel: "info",
		},
		Game: GameSettings{
			Enabled:    true,
			MinBet:     10,
			MaxBet:     1000,
			TTLMinutes: 10,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Server.DBPath == "" {
		config.Server.DBPath = "blackjackd.db"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.MinBet == 0 {
		config.Game.MinBet = 10
	}
	if config.Game.MaxBet == 0 {
		config.Game.MaxBet = 1000
	}
	if config.Game.TTLMinutes == 0 {
		config.Game.TTLMinutes = 10
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Game.MinBet <= 0 {
		return fmt.Errorf("min_bet must be positive, got %d", c.Game.MinBet)
	}
	if c.Game.MaxBet < c.Game.MinBet {
		return fmt.Errorf("max_bet %d must be at least min_bet %d", c.Game.MaxBet, c.Game.MinBet)
	}
	if c.Game.TTLMinutes <= 0 {
		return fmt.Errorf("ttl_minutes must be positive, got %d", c.Game.TTLMinutes)
	}
	return nil
}

// TTL returns the abandoned-game window as a duration
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Game.TTLMinutes) * time.Minute
}
