package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/agent/worker"
	"github.com/dmitrijs2005/storysync/internal/common"
)

func (s *Server) subscribe(c echo.Context) error {
	sub, err := s.d.Push.Subscribe(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (s *Server) unsubscribe(c echo.Context) error {
	if err := s.d.Push.Unsubscribe(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) pushState(c echo.Context) error {
	st, err := s.d.Push.Status(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// receivePush is the push endpoint of the local subscription. The
// notification is shown before the sender gets its 201.
func (s *Server) receivePush(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPushBody+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	if len(body) > maxPushBody {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	data, err := s.d.Receiver.Receive(ctx, c.Param("id"), c.Request().Header, body)
	if errors.Is(err, common.ErrNotFound) {
		return echo.NewHTTPError(http.StatusGone, "subscription expired")
	}
	if err != nil {
		s.log.Warn(ctx, "push rejected", "error", err)
		return httpError(err)
	}

	ev := worker.Event{Kind: worker.EventPush, Payload: data, Header: c.Request().Header.Clone()}
	if err := s.d.Dispatcher.DispatchWait(ctx, ev); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusCreated)
}
