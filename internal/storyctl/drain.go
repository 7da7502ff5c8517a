package storyctl

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/agentclient"
	"github.com/spf13/cobra"
)

func newDrainCmd(rt *runtime) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Ask the agent to upload queued stories now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ag, err := agentclient.NewAgent(rt.opts.AgentURL, &http.Client{Timeout: timeout})
			if err != nil {
				return err
			}
			res, err := ag.Drain(cmd.Context())
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "pending=%d uploaded=%d failed=%d skipped=%d complete=%t\n",
				res.Pending, res.Uploaded, res.Failed, res.Skipped, res.Complete)
			if res.Aborted {
				printf(cmd.OutOrStdout(), "aborted: no credential available\n")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	return cmd
}
