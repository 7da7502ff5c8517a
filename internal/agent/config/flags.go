package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/storysync/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. Only the flags listed in
// the package documentation are considered; it panics on a malformed value.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-b", "-k", "-d", "-m", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "listen address of the agent API")
	fs.StringVar(&cfg.PublicURL, "u", cfg.PublicURL, "public URL of the agent")
	fs.StringVar(&cfg.APIBaseURL, "b", cfg.APIBaseURL, "story API base URL")
	fs.StringVar(&cfg.VAPIDPublicKey, "k", cfg.VAPIDPublicKey, "story server VAPID public key")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.Cache.Backend, "m", cfg.Cache.Backend, "cache backend (sqlite, memory, s3)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
