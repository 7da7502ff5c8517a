package storyctl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/services"
	"github.com/spf13/cobra"
)

func newFavoritesCmd(rt *runtime) *cobra.Command {
	favorites := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"favs"},
		Short:   "Inspect bookmarked stories",
	}

	var sortKey, order string
	list := &cobra.Command{
		Use:   "list [query]",
		Short: "List favorites, or search them when a query is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			svc := services.NewFavoriteService(st)
			var items []models.FavoriteStory
			if len(args) == 1 {
				items, err = svc.Search(cmd.Context(), args[0])
			} else {
				items, err = svc.List(cmd.Context(), models.FavoriteSort{Key: models.SortKey(sortKey), Order: models.SortOrder(order)})
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tFAVORITED")
			for _, f := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.CreatedAt.Format(time.RFC3339), f.FavoritedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&sortKey, "sort", string(models.SortByFavoritedAt), "createdAt, favoritedAt or name")
	list.Flags().StringVar(&order, "order", string(models.Desc), "asc or desc")

	favorites.AddCommand(list)
	return favorites
}
