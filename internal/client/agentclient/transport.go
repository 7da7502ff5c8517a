package agentclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

const agentRetryAfter = 10 * time.Second

// Transport is an http.RoundTripper that replays requests through the
// agent's /fetch endpoint. After the agent fails to answer, requests go
// directly to the network for a while before the agent is tried again.
type Transport struct {
	fetch *url.URL
	base  http.RoundTripper
	log   logging.Logger

	mu        sync.Mutex
	downUntil time.Time
	now       func() time.Time
}

func NewTransport(agentURL string, base http.RoundTripper, log logging.Logger) (*Transport, error) {
	u, err := url.Parse(agentURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid agent url %q", agentURL)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		fetch: endpoint(u, "fetch"),
		base:  base,
		log:   log.With("module", "transport"),
		now:   time.Now,
	}, nil
}

func (t *Transport) agentUp() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.now().Before(t.downUntil)
}

func (t *Transport) markDown() {
	t.mu.Lock()
	t.downUntil = t.now().Add(agentRetryAfter)
	t.mu.Unlock()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.agentUp() {
		return t.base.RoundTrip(req)
	}

	resp, err := t.viaAgent(req)
	if err == nil || errors.Is(err, common.ErrNetwork) {
		return resp, err
	}

	direct, rerr := rewind(req)
	if rerr != nil {
		return nil, err
	}
	t.markDown()
	t.log.Info(req.Context(), "agent unreachable, going direct", "error", err)
	return t.base.RoundTrip(direct)
}

func (t *Transport) viaAgent(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL = t.fetch
	out.Host = ""
	out.Header.Set(common.HeaderFetchURL, req.URL.String())

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get(common.HeaderFetchError) != "" {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: via agent: %s", common.ErrNetwork, msg)
	}
	resp.Request = req
	return resp, nil
}

// rewind returns a copy of req whose body can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}
