// Package httpapi is the agent's loopback HTTP surface, served with echo.
//
// Foreground contexts attach to /bridge, route their traffic through
// /fetch, ask for sync and manage push; push senders deliver to /push/:id.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/agent/push"
	"github.com/dmitrijs2005/storysync/internal/agent/syncer"
	"github.com/dmitrijs2005/storysync/internal/agent/worker"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/cryptox"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

const maxPushBody = 64 << 10

type Bridge interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type Drainer interface {
	Drain(ctx context.Context) (syncer.Result, error)
}

type SyncRegistry interface {
	Register(ctx context.Context, tag string)
	Tags() []string
}

type Queue interface {
	ListSubmissions(ctx context.Context) ([]models.PendingSubmission, error)
}

type PushService interface {
	Subscribe(ctx context.Context) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context) error
	Status(ctx context.Context) (push.Status, error)
	TestNotification(ctx context.Context) notify.Notification
}

type PushReceiver interface {
	Receive(ctx context.Context, id string, header http.Header, body []byte) ([]byte, error)
}

type Connectivity interface {
	Mode() worker.Mode
	SetOnline(ctx context.Context, online bool)
}

type Deps struct {
	Bridge       Bridge
	Fetch        http.RoundTripper
	Drainer      Drainer
	Sync         SyncRegistry
	Queue        Queue
	Push         PushService
	Receiver     PushReceiver
	Dispatcher   *worker.Dispatcher
	Center       *notify.Center
	Connectivity Connectivity
}

type Server struct {
	d   Deps
	log logging.Logger
}

// New builds the echo instance with every route registered.
func New(d Deps, log logging.Logger) *echo.Echo {
	s := &Server{d: d, log: log.With("module", "httpapi")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", s.health)
	e.GET("/bridge", s.bridge)
	e.Any("/fetch", s.fetch)

	e.POST("/sync", s.drain)
	e.POST("/sync/register", s.registerSync)
	e.GET("/sync/tags", s.syncTags)
	e.GET("/pending", s.pending)
	e.POST("/connectivity", s.connectivity)

	e.POST("/push/subscribe", s.subscribe)
	e.POST("/push/unsubscribe", s.unsubscribe)
	e.GET("/push/state", s.pushState)
	e.POST("/push/:id", s.receivePush)

	e.GET("/notifications", s.notifications)
	e.POST("/notifications/test", s.testNotification)
	e.POST("/notifications/:id/click", s.click)

	return e
}

// httpError maps domain errors onto status codes. A server rejection keeps
// the story API's message.
func httpError(err error) *echo.HTTPError {
	if rej, ok := common.IsServerRejection(err); ok {
		return echo.NewHTTPError(http.StatusBadGateway, rej.Message)
	}
	switch {
	case errors.Is(err, common.ErrUnsupported):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.Is(err, common.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrNoCredential):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNetwork):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, cryptox.ErrVAPID):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, cryptox.ErrMalformedPayload), errors.Is(err, cryptox.ErrDecrypt):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (s *Server) health(c echo.Context) error {
	mode := worker.ModeOnline
	if s.d.Connectivity != nil {
		mode = s.d.Connectivity.Mode()
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "mode": string(mode)})
}

func (s *Server) bridge(c echo.Context) error {
	if err := s.d.Bridge.ServeWS(c.Response(), c.Request()); err != nil {
		s.log.Debug(c.Request().Context(), "bridge connection ended", "error", err)
	}
	return nil
}

type connectivityRequest struct {
	Online bool `json:"online"`
}

func (s *Server) connectivity(c echo.Context) error {
	var req connectivityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	s.d.Connectivity.SetOnline(c.Request().Context(), req.Online)
	return c.JSON(http.StatusOK, map[string]string{"mode": string(s.d.Connectivity.Mode())})
}
