package config

import "time"

const DefaultVAPIDPublicKey = "BCCs2eonMI-6H2ctvFaWg-UYdDv387Vno_bzUzALpB442r2lCnsHmtrx8biyPi_E-1fSGABK_Qs_GlvPoJJqxbk"

type Cache struct {
	Backend     string
	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Config holds runtime settings for the agent.
type Config struct {
	ListenAddr          string
	PublicURL           string
	APIBaseURL          string
	VAPIDPublicKey      string
	DataDir             string
	LogLevel            string
	OnlineCheckInterval time.Duration
	TokenTimeout        time.Duration
	PermissionTimeout   time.Duration
	ShutdownTimeout     time.Duration
	PeriodicSync        string
	OpenCommand         string
	SlackWebhookURL     string
	SlackChannel        string
	Cache               Cache
}

// LoadDefaults populates c with defaults suitable for a single workstation.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:8787"
	c.PublicURL = "http://127.0.0.1:8787"
	c.APIBaseURL = "https://story-api.dicoding.dev/v1"
	c.VAPIDPublicKey = DefaultVAPIDPublicKey
	c.DataDir = "storysync-data"
	c.LogLevel = "info"
	c.OnlineCheckInterval = 5 * time.Second
	c.TokenTimeout = 3 * time.Second
	c.PermissionTimeout = 60 * time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.PeriodicSync = "@every 15m"
	c.Cache = Cache{Backend: "sqlite", S3Region: "us-east-1", S3Prefix: "storysync/"}
}

// LoadConfig builds a Config from defaults, then the config file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
