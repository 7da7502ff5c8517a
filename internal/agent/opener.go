package agent

import (
	"context"
	"os/exec"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

// newOpener returns an opener that runs command with the target URL as its
// only argument. Without a command, open requests are only logged.
func newOpener(command string, log logging.Logger) bridge.Opener {
	log = log.With("module", "opener")
	if command == "" {
		return bridge.OpenerFunc(func(ctx context.Context, url string) error {
			log.Info(ctx, "open window requested", "url", url)
			return nil
		})
	}

	return bridge.OpenerFunc(func(ctx context.Context, url string) error {
		cmd := exec.Command(command, url)
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				log.Warn(context.Background(), "opener exited", "url", url, "error", err)
			}
		}()
		log.Info(ctx, "window opened", "url", url, "command", command)
		return nil
	})
}
