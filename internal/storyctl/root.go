// Package storyctl implements the operator command line: VAPID key
// generation, inspection of the shared queue and favorites, a manual drain
// trigger and test Web Push delivery.
package storyctl

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/storysync/internal/client/store"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/filex"
	"github.com/dmitrijs2005/storysync/internal/flagx"
	"github.com/dmitrijs2005/storysync/internal/logging"
	"github.com/spf13/cobra"
)

// Options are shared by every subcommand. They come from defaults, then the
// optional config file, then explicitly set flags.
type Options struct {
	DataDir         string `json:"data_dir" toml:"data_dir"`
	AgentURL        string `json:"agent_url" toml:"agent_url"`
	VAPIDPublicKey  string `json:"vapid_public_key" toml:"vapid_public_key"`
	VAPIDPrivateKey string `json:"vapid_private_key" toml:"vapid_private_key"`
	Subscriber      string `json:"subscriber" toml:"subscriber"`
	LogLevel        string `json:"log_level" toml:"log_level"`
}

func defaultOptions() Options {
	return Options{
		DataDir:    "storysync-data",
		AgentURL:   "http://127.0.0.1:8787",
		Subscriber: "ops@storysync.local",
		LogLevel:   "warn",
	}
}

type runtime struct {
	opts   Options
	config string
	logger logging.Logger
}

// NewRootCmd builds the storyctl command tree.
func NewRootCmd() *cobra.Command {
	rt := &runtime{opts: defaultOptions()}

	root := &cobra.Command{
		Use:           "storyctl",
		Short:         "Operator tool for storysync",
		Long:          "Inspect and drive the storysync agent, its offline queue and push delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&rt.config, "config", "c", "", "Path to config file (JSON or TOML)")
	pf.StringVarP(&rt.opts.DataDir, "data-dir", "d", rt.opts.DataDir, "directory holding the shared database")
	pf.StringVarP(&rt.opts.AgentURL, "agent", "g", rt.opts.AgentURL, "agent base URL")
	pf.StringVarP(&rt.opts.LogLevel, "log-level", "l", rt.opts.LogLevel, "log level")

	root.AddCommand(
		newVAPIDCmd(rt),
		newQueueCmd(rt),
		newFavoritesCmd(rt),
		newDrainCmd(rt),
		newPushCmd(rt),
	)
	return root
}

// load overlays the config file beneath flags the user set explicitly.
func (rt *runtime) load(cmd *cobra.Command) error {
	rt.logger = logging.NewText(cmd.ErrOrStderr(), rt.opts.LogLevel)
	if rt.config == "" {
		return nil
	}

	fromFile := defaultOptions()
	if err := flagx.DecodeConfigFile(rt.config, &fromFile); err != nil {
		return err
	}

	set := func(name string, dst *string, v string) {
		if v == "" {
			return
		}
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return
		}
		*dst = v
	}
	set("data-dir", &rt.opts.DataDir, fromFile.DataDir)
	set("agent", &rt.opts.AgentURL, fromFile.AgentURL)
	set("log-level", &rt.opts.LogLevel, fromFile.LogLevel)
	set("vapid-public", &rt.opts.VAPIDPublicKey, fromFile.VAPIDPublicKey)
	set("vapid-private", &rt.opts.VAPIDPrivateKey, fromFile.VAPIDPrivateKey)
	set("subscriber", &rt.opts.Subscriber, fromFile.Subscriber)

	rt.logger = logging.NewText(cmd.ErrOrStderr(), rt.opts.LogLevel)
	return nil
}

func (rt *runtime) openStore(ctx context.Context) (*store.Store, error) {
	path, err := filex.DataFile(rt.opts.DataDir, common.DatabaseFile)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return st, nil
}

func printf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
