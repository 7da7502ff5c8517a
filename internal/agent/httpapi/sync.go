package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/agent/syncer"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
)

// DrainResponse is the body of POST /sync.
type DrainResponse struct {
	syncer.Result
	Complete bool `json:"complete"`
}

// drain runs one drain right away and reports its outcome. Records left
// behind are not an HTTP error.
func (s *Server) drain(c echo.Context) error {
	res, err := s.d.Drainer.Drain(c.Request().Context())
	if err != nil && !errors.Is(err, syncer.ErrIncomplete) {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, DrainResponse{Result: res, Complete: err == nil})
}

type registerRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) registerSync(c echo.Context) error {
	var req registerRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}
	if req.Tag == "" {
		req.Tag = common.SyncStoriesTag
	}
	s.d.Sync.Register(c.Request().Context(), req.Tag)
	return c.JSON(http.StatusAccepted, map[string]string{"tag": req.Tag})
}

func (s *Server) syncTags(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"tags": s.d.Sync.Tags()})
}

// PendingItem is one queued submission as listed by GET /pending.
type PendingItem struct {
	TempID      int64    `json:"tempId"`
	Description string   `json:"description"`
	PhotoType   string   `json:"photoType"`
	PhotoName   string   `json:"photoName"`
	PhotoSize   int      `json:"photoSize"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// pending lists the queue without photo payloads.
func (s *Server) pending(c echo.Context) error {
	list, err := s.d.Queue.ListSubmissions(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	out := make([]PendingItem, 0, len(list))
	for _, p := range list {
		size := 0
		if _, data, err := models.DecodeDataURL(p.PhotoData); err == nil {
			size = len(data)
		}
		out = append(out, PendingItem{
			TempID:      p.TempID,
			Description: p.Description,
			PhotoType:   p.PhotoType,
			PhotoName:   p.PhotoName,
			PhotoSize:   size,
			Lat:         p.Lat,
			Lon:         p.Lon,
			Timestamp:   p.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return c.JSON(http.StatusOK, out)
}
