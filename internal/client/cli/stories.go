package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/storysync/internal/client/api"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/services"
)

// readFile is a test seam for loading photos.
var readFile = os.ReadFile

// Stories lists stories from the API. "map" restricts the list to stories
// with a location; a number selects the page.
func (a *App) Stories(ctx context.Context, args []string) error {
	q := api.StoriesQuery{}
	for _, arg := range args {
		if arg == "map" {
			q.Location = true
			continue
		}
		page, err := strconv.Atoi(arg)
		if err != nil || page < 1 {
			return fmt.Errorf("usage: list [map] [page]")
		}
		q.Page = page
	}

	list, err := a.storyService.List(ctx, q)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.lastStories = list
	a.mu.Unlock()

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No stories")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tCREATED\tLOCATION")
	for i, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"), location(s.Lat, s.Lon))
	}
	return tw.Flush()
}

func location(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f,%.4f", *lat, *lon)
}

// pick resolves a list index (1-based) or a story id against the last list.
func (a *App) pick(arg string) (models.Story, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(a.lastStories) {
		return a.lastStories[n-1], true
	}
	for _, s := range a.lastStories {
		if s.ID == arg {
			return s, true
		}
	}
	return models.Story{}, false
}

// Show prints one story. Stories not in the last list are fetched by id.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <n|id>")
	}

	s, ok := a.pick(args[0])
	if !ok {
		fetched, err := a.storyService.Get(ctx, args[0])
		if err != nil {
			return err
		}
		s = *fetched
	}

	fav, err := a.favoriteService.IsFavorite(ctx, s.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s by %s\n", s.ID, s.Name)
	fmt.Fprintf(a.out, "  created:  %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(a.out, "  location: %s\n", location(s.Lat, s.Lon))
	fmt.Fprintf(a.out, "  photo:    %s\n", s.PhotoURL)
	fmt.Fprintf(a.out, "  favorite: %t\n", fav)
	fmt.Fprintf(a.out, "\n%s\n", s.Description)

	a.navigate(ctx, "/#/stories/"+s.ID)
	return nil
}

// Add prompts for a story and submits it. Offline, or when the upload fails
// in transit, the story is queued for the agent to upload later.
func (a *App) Add(ctx context.Context) error {
	a.navigate(ctx, "/#/add")
	defer a.navigate(ctx, "/#/")

	description, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Photo file (jpg or png)", a.out)
	if err != nil {
		return err
	}
	data, err := readFile(path)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	lat, lon, err := GetCoordinates(a.reader, a.out)
	if err != nil {
		return err
	}

	story := models.NewStory{
		Description: description,
		Photo:       models.Photo{Name: filepath.Base(path), Type: photoType(path, data), Data: data},
		Lat:         lat,
		Lon:         lon,
	}

	res, err := a.storyService.Submit(ctx, story)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case services.OutcomeUploaded:
		fmt.Fprintln(a.out, "Story uploaded")
	case services.OutcomeQueued:
		fmt.Fprintf(a.out, "You are offline. Story #%d saved and will be uploaded when you are back online\n", res.TempID)
	}
	return nil
}

// photoType sniffs the content and falls back to the extension.
func photoType(path string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return sniffed
}

// Pending prints the queue as the agent sees it.
func (a *App) Pending(ctx context.Context) error {
	items, err := a.agent.Pending(ctx)
	if err != nil {
		n, cerr := a.storyService.PendingCount(ctx)
		if cerr != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d pending (agent unavailable: %v)\n", n, err)
		return nil
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "Nothing pending")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMP ID\tQUEUED\tPHOTO\tDESCRIPTION")
	for _, p := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s (%d bytes)\t%s\n", p.TempID, p.Timestamp, p.PhotoName, p.PhotoSize, firstLine(p.Description))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if len(line) > 40 {
		return line[:37] + "..."
	}
	return line
}

// Sync asks the agent to drain the queue right away.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.agent.Drain(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "pending %d, uploaded %d, failed %d, skipped %d\n", res.Pending, res.Uploaded, res.Failed, res.Skipped)
	if res.Aborted {
		fmt.Fprintln(a.out, "No credential available to the agent, log in and retry")
	} else if !res.Complete {
		fmt.Fprintln(a.out, "Some stories are still queued and will be retried")
	}
	return nil
}

func (a *App) navigate(ctx context.Context, url string) {
	a.mu.Lock()
	a.location = url
	a.mu.Unlock()
	if a.bridge != nil && a.bridge.Connected() {
		_ = a.bridge.SetLocation(ctx, url)
	}
}
