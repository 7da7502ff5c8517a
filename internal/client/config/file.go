package config

import (
	"github.com/dmitrijs2005/storysync/internal/flagx"
	"github.com/dmitrijs2005/storysync/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Intervals are
// timex.Duration so they may be written as "3s" or integer nanoseconds.
type FileConfig struct {
	AgentURL            string         `json:"agent_url" toml:"agent_url"`
	APIBaseURL          string         `json:"api_base_url" toml:"api_base_url"`
	DataDir             string         `json:"data_dir" toml:"data_dir"`
	LogLevel            string         `json:"log_level" toml:"log_level"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
}

// parseFile overlays Config with values from the file named by -c/-config.
// Empty fields keep their previous value. It panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		panic(err)
	}

	if fc.AgentURL != "" {
		cfg.AgentURL = fc.AgentURL
	}
	if fc.APIBaseURL != "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
}
