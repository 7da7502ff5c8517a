package storyctl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/spf13/cobra"
)

func newQueueCmd(rt *runtime) *cobra.Command {
	queue := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the offline submission queue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List queued submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			items, err := st.ListSubmissions(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				printf(cmd.OutOrStdout(), "queue is empty\n")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TEMP ID\tQUEUED\tPHOTO\tBYTES\tLOCATION")
			for _, p := range items {
				size := 0
				if _, data, err := models.DecodeDataURL(p.PhotoData); err == nil {
					size = len(data)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.TempID, p.Timestamp.Format(time.RFC3339), p.PhotoName, size, coords(p.Lat, p.Lon))
			}
			return tw.Flush()
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop queued stories without --yes")
			}
			st, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.ClearSubmissions(cmd.Context())
			if err != nil {
				return err
			}
			rt.logger.Info(cmd.Context(), "queue cleared", "removed", n)
			printf(cmd.OutOrStdout(), "removed %d queued submissions\n", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")

	queue.AddCommand(list, clearCmd)
	return queue
}

func coords(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f,%.5f", *lat, *lon)
}
