package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/agent/worker"
)

func (s *Server) notifications(c echo.Context) error {
	return c.JSON(http.StatusOK, s.d.Center.List(c.QueryParam("tag")))
}

func (s *Server) testNotification(c echo.Context) error {
	return c.JSON(http.StatusOK, s.d.Push.TestNotification(c.Request().Context()))
}

type clickRequest struct {
	Action string `json:"action"`
}

func (s *Server) click(c echo.Context) error {
	var req clickRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}

	ev := worker.Event{Kind: worker.EventNotificationClick, NotificationID: c.Param("id"), Action: req.Action}
	if err := s.d.Dispatcher.DispatchWait(c.Request().Context(), ev); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
