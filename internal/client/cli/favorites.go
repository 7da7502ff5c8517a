package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/storysync/internal/client/models"
)

// Favorite toggles the bookmark of a story from the last list.
func (a *App) Favorite(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fav <n|id>")
	}
	s, ok := a.pick(args[0])
	if !ok {
		return fmt.Errorf("story %s not in the last list", args[0])
	}

	on, err := a.favoriteService.Toggle(ctx, s)
	if err != nil {
		return err
	}
	if on {
		fmt.Fprintf(a.out, "Added %s to favorites\n", s.ID)
	} else {
		fmt.Fprintf(a.out, "Removed %s from favorites\n", s.ID)
	}
	return nil
}

// Favorites lists bookmarks. Optional arguments select the sort key and
// order.
func (a *App) Favorites(ctx context.Context, args []string) error {
	sort := models.FavoriteSort{}
	if len(args) > 0 {
		sort.Key = models.SortKey(args[0])
	}
	if len(args) > 1 {
		sort.Order = models.SortOrder(args[1])
	}

	list, err := a.favoriteService.List(ctx, sort)
	if err != nil {
		return err
	}
	return a.printFavorites(list)
}

func (a *App) Search(ctx context.Context, args []string) error {
	list, err := a.favoriteService.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return a.printFavorites(list)
}

func (a *App) Unfavorite(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: unfav <id>")
	}
	id := args[0]
	if s, ok := a.pick(id); ok {
		id = s.ID
	}
	if err := a.favoriteService.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s from favorites\n", id)
	return nil
}

func (a *App) printFavorites(list []models.FavoriteStory) error {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No favorites")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tSAVED\tDESCRIPTION")
	for _, f := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name,
			f.CreatedAt.Format("2006-01-02"), f.FavoritedAt.Format("2006-01-02"), firstLine(f.Description))
	}
	return tw.Flush()
}
