// Package config loads runtime configuration for the storysync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseFile) selected via flags: -c or -config.
//     Files ending in .toml are read as TOML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-g string   base URL of the local agent
//	-b string   story API base URL
//	-d string   data directory
//	-i int      online status check interval (seconds)
//	-l string   log level
//
// # File schema
//
//	{
//	  "agent_url": "http://127.0.0.1:8787",
//	  "api_base_url": "https://story-api.dicoding.dev/v1",
//	  "data_dir": "storysync-data",
//	  "online_check_interval": "3s"
//	}
package config
