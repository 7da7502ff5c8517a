package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/storysync/internal/agent/httpapi"
	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/agent/push"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
)

// ErrAgentUnavailable means the agent's API could not be reached.
var ErrAgentUnavailable = errors.New("agent unavailable")

type Health struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// Agent calls the agent's control API.
type Agent struct {
	base *url.URL
	http *http.Client
}

func NewAgent(agentURL string, hc *http.Client) (*Agent, error) {
	u, err := url.Parse(agentURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid agent url %q", agentURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Agent{base: u, http: hc}, nil
}

// endpoint resolves p below base. A base without a path still yields an
// absolute path, so the request line stays valid.
func endpoint(base *url.URL, p string) *url.URL {
	return base.JoinPath("/", p)
}

func (a *Agent) URL() *url.URL {
	u := *a.base
	return &u
}

func (a *Agent) Health(ctx context.Context) (Health, error) {
	var h Health
	err := a.call(ctx, http.MethodGet, "healthz", nil, &h)
	return h, err
}

// Drain asks the agent to replay the queue now.
func (a *Agent) Drain(ctx context.Context) (httpapi.DrainResponse, error) {
	var r httpapi.DrainResponse
	err := a.call(ctx, http.MethodPost, "sync", nil, &r)
	return r, err
}

func (a *Agent) RegisterSync(ctx context.Context, tag string) error {
	return a.call(ctx, http.MethodPost, "sync/register", map[string]string{"tag": tag}, nil)
}

func (a *Agent) SyncTags(ctx context.Context) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	err := a.call(ctx, http.MethodGet, "sync/tags", nil, &out)
	return out.Tags, err
}

func (a *Agent) Pending(ctx context.Context) ([]httpapi.PendingItem, error) {
	var out []httpapi.PendingItem
	err := a.call(ctx, http.MethodGet, "pending", nil, &out)
	return out, err
}

func (a *Agent) SetOnline(ctx context.Context, online bool) (string, error) {
	var out struct {
		Mode string `json:"mode"`
	}
	err := a.call(ctx, http.MethodPost, "connectivity", map[string]bool{"online": online}, &out)
	return out.Mode, err
}

func (a *Agent) PushSubscribe(ctx context.Context) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := a.call(ctx, http.MethodPost, "push/subscribe", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (a *Agent) PushUnsubscribe(ctx context.Context) error {
	return a.call(ctx, http.MethodPost, "push/unsubscribe", nil, nil)
}

func (a *Agent) PushState(ctx context.Context) (push.Status, error) {
	var st push.Status
	err := a.call(ctx, http.MethodGet, "push/state", nil, &st)
	return st, err
}

func (a *Agent) Notifications(ctx context.Context, tag string) ([]notify.Notification, error) {
	path := "notifications"
	if tag != "" {
		path += "?tag=" + url.QueryEscape(tag)
	}
	var out []notify.Notification
	err := a.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (a *Agent) TestNotification(ctx context.Context) (notify.Notification, error) {
	var n notify.Notification
	err := a.call(ctx, http.MethodPost, "notifications/test", nil, &n)
	return n, err
}

// Click activates a notification, optionally through one of its actions.
func (a *Agent) Click(ctx context.Context, id, action string) error {
	return a.call(ctx, http.MethodPost, "notifications/"+url.PathEscape(id)+"/click", map[string]string{"action": action}, nil)
}

func (a *Agent) call(ctx context.Context, method, path string, in, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}
	target := endpoint(a.base, ref.EscapedPath())
	target.RawQuery = ref.RawQuery

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError turns an agent error answer back into the sentinel it was
// produced from.
func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Message
	if msg == "" {
		msg = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadGateway:
		return &common.ServerRejection{StatusCode: resp.StatusCode, Message: msg}
	case http.StatusNotImplemented:
		sentinel = common.ErrUnsupported
	case http.StatusForbidden:
		sentinel = common.ErrPermissionDenied
	case http.StatusUnauthorized:
		sentinel = common.ErrNoCredential
	case http.StatusNotFound, http.StatusGone:
		sentinel = common.ErrNotFound
	case http.StatusBadRequest:
		sentinel = common.ErrValidation
	case http.StatusServiceUnavailable:
		sentinel = common.ErrNetwork
	default:
		return fmt.Errorf("agent: %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
