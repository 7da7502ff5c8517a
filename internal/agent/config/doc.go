// Package config loads runtime configuration for the storysync agent.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .toml are read as TOML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   listen address of the agent API
//	-u string   public URL of the agent, used in push endpoints
//	-b string   story API base URL
//	-k string   story server VAPID public key
//	-d string   data directory
//	-m string   cache backend: sqlite, memory or s3
//	-i int      online check interval (seconds)
//	-l string   log level
//
// # File schema
//
// Durations accept strings like "5s" or integer nanoseconds:
//
//	{
//	  "listen_addr": "127.0.0.1:8787",
//	  "api_base_url": "https://story-api.dicoding.dev/v1",
//	  "online_check_interval": "5s",
//	  "periodic_sync": "@every 15m",
//	  "cache": {"backend": "s3", "s3_bucket": "story-cache"}
//	}
package config
