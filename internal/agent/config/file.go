package config

import (
	"time"

	"github.com/dmitrijs2005/storysync/internal/flagx"
	"github.com/dmitrijs2005/storysync/internal/timex"
)

type fileCache struct {
	Backend     string `json:"backend" toml:"backend"`
	S3Bucket    string `json:"s3_bucket" toml:"s3_bucket"`
	S3Region    string `json:"s3_region" toml:"s3_region"`
	S3Prefix    string `json:"s3_prefix" toml:"s3_prefix"`
	S3Endpoint  string `json:"s3_endpoint" toml:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key" toml:"s3_secret_key"`
}

// FileConfig is the on-disk form of Config. Absent fields keep the value
// from the previous layer.
type FileConfig struct {
	ListenAddr          string         `json:"listen_addr" toml:"listen_addr"`
	PublicURL           string         `json:"public_url" toml:"public_url"`
	APIBaseURL          string         `json:"api_base_url" toml:"api_base_url"`
	VAPIDPublicKey      string         `json:"vapid_public_key" toml:"vapid_public_key"`
	DataDir             string         `json:"data_dir" toml:"data_dir"`
	LogLevel            string         `json:"log_level" toml:"log_level"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	TokenTimeout        timex.Duration `json:"token_timeout" toml:"token_timeout"`
	PermissionTimeout   timex.Duration `json:"permission_timeout" toml:"permission_timeout"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	PeriodicSync        string         `json:"periodic_sync" toml:"periodic_sync"`
	OpenCommand         string         `json:"open_command" toml:"open_command"`
	SlackWebhookURL     string         `json:"slack_webhook_url" toml:"slack_webhook_url"`
	SlackChannel        string         `json:"slack_channel" toml:"slack_channel"`
	Cache               fileCache      `json:"cache" toml:"cache"`
}

// parseFile overlays cfg with the file named by -c/-config. It panics when
// the file cannot be read or decoded.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.PublicURL, fc.PublicURL)
	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setString(&cfg.VAPIDPublicKey, fc.VAPIDPublicKey)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.PeriodicSync, fc.PeriodicSync)
	setString(&cfg.OpenCommand, fc.OpenCommand)
	setString(&cfg.SlackWebhookURL, fc.SlackWebhookURL)
	setString(&cfg.SlackChannel, fc.SlackChannel)

	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.TokenTimeout, fc.TokenTimeout)
	setDuration(&cfg.PermissionTimeout, fc.PermissionTimeout)
	setDuration(&cfg.ShutdownTimeout, fc.ShutdownTimeout)

	setString(&cfg.Cache.Backend, fc.Cache.Backend)
	setString(&cfg.Cache.S3Bucket, fc.Cache.S3Bucket)
	setString(&cfg.Cache.S3Region, fc.Cache.S3Region)
	setString(&cfg.Cache.S3Prefix, fc.Cache.S3Prefix)
	setString(&cfg.Cache.S3Endpoint, fc.Cache.S3Endpoint)
	setString(&cfg.Cache.S3AccessKey, fc.Cache.S3AccessKey)
	setString(&cfg.Cache.S3SecretKey, fc.Cache.S3SecretKey)
}
