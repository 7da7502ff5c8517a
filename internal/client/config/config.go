package config

import (
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/api"
)

// Config holds runtime settings for the storysync client.
//
// Fields:
//   - AgentURL: base URL of the local agent API.
//   - APIBaseURL: story API base URL, used directly when the agent is down.
//   - DataDir: directory holding the database shared with the agent.
//   - OnlineCheckInterval: how often the client probes the story API.
type Config struct {
	AgentURL            string
	APIBaseURL          string
	DataDir             string
	LogLevel            string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.AgentURL = "http://127.0.0.1:8787"
	c.APIBaseURL = api.DefaultBaseURL
	c.DataDir = "storysync-data"
	c.LogLevel = "warn"
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
