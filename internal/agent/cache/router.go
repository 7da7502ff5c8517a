package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

const (
	HeaderCache       = "X-Cache"
	HeaderCacheRegion = "X-Cache-Region"

	defaultMaxEntrySize = 16 << 20
)

// Background runs fn after the current request returns while keeping the
// owner alive until fn finishes.
type Background interface {
	Go(name string, fn func(ctx context.Context))
}

type goroutineBackground struct{}

func (goroutineBackground) Go(_ string, fn func(ctx context.Context)) {
	go fn(context.Background())
}

type Router struct {
	next         http.RoundTripper
	backend      Backend
	rules        []Rule
	bg           Background
	log          logging.Logger
	now          func() time.Time
	maxEntrySize int64
}

type Option func(*Router)

func WithBackground(bg Background) Option { return func(r *Router) { r.bg = bg } }

func WithMaxEntrySize(n int64) Option { return func(r *Router) { r.maxEntrySize = n } }

func NewRouter(next http.RoundTripper, backend Backend, rules []Rule, log logging.Logger, opts ...Option) *Router {
	if next == nil {
		next = http.DefaultTransport
	}
	r := &Router{
		next:         next,
		backend:      backend,
		rules:        rules,
		bg:           goroutineBackground{},
		log:          log.With("module", "cache"),
		now:          time.Now,
		maxEntrySize: defaultMaxEntrySize,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Classify returns the first rule matching req.
func (r *Router) Classify(req *http.Request) (Rule, bool) {
	if req.Method != http.MethodGet {
		return Rule{}, false
	}
	for _, rule := range r.rules {
		if rule.Match(req) {
			return rule, true
		}
	}
	return Rule{}, false
}

func (r *Router) RoundTrip(req *http.Request) (*http.Response, error) {
	rule, ok := r.Classify(req)
	if !ok {
		return r.next.RoundTrip(req)
	}

	switch rule.Strategy {
	case NetworkFirst:
		return r.networkFirst(req, rule)
	case CacheFirst:
		return r.cacheFirst(req, rule)
	case StaleWhileRevalidate:
		return r.staleWhileRevalidate(req, rule)
	default:
		return nil, fmt.Errorf("rule %s: unknown strategy %q", rule.Name, rule.Strategy)
	}
}

func (r *Router) networkFirst(req *http.Request, rule Rule) (*http.Response, error) {
	ctx := req.Context()

	resp, netErr := r.fetchAndStore(req, rule)
	if netErr == nil {
		return resp, nil
	}
	if errors.Is(netErr, context.Canceled) {
		return nil, netErr
	}

	entry, err := r.lookup(ctx, rule, req)
	if err != nil {
		r.log.Debug(ctx, "network failed and nothing cached", "region", rule.Region, "url", req.URL.String(), "error", netErr)
		return nil, netErr
	}
	r.log.Debug(ctx, "serving cached response after network failure", "region", rule.Region, "url", req.URL.String())
	return toResponse(req, rule, entry), nil
}

func (r *Router) cacheFirst(req *http.Request, rule Rule) (*http.Response, error) {
	if entry, err := r.lookup(req.Context(), rule, req); err == nil {
		return toResponse(req, rule, entry), nil
	}
	return r.fetchAndStore(req, rule)
}

func (r *Router) staleWhileRevalidate(req *http.Request, rule Rule) (*http.Response, error) {
	entry, err := r.lookup(req.Context(), rule, req)
	if err != nil {
		return r.fetchAndStore(req, rule)
	}

	bgReq := req.Clone(context.WithoutCancel(req.Context()))
	r.bg.Go("revalidate "+rule.Region, func(ctx context.Context) {
		resp, err := r.fetchAndStore(bgReq.WithContext(ctx), rule)
		if err != nil {
			r.log.Debug(ctx, "revalidation failed", "region", rule.Region, "url", bgReq.URL.String(), "error", err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	})

	return toResponse(req, rule, entry), nil
}

// lookup reads the region; backend failures count as a miss.
func (r *Router) lookup(ctx context.Context, rule Rule, req *http.Request) (*Entry, error) {
	entry, err := r.backend.Get(ctx, rule.Region, Key(req))
	if err != nil && !errors.Is(err, ErrMiss) {
		r.log.Warn(ctx, "cache read failed", "region", rule.Region, "error", err)
	}
	return entry, err
}

// fetchAndStore performs the network request and stores cacheable
// responses. The returned response body is always readable by the caller.
func (r *Router) fetchAndStore(req *http.Request, rule Rule) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !Cacheable(resp) {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxEntrySize+1))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if int64(len(body)) > r.maxEntrySize {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return resp, nil
	}
	_ = resp.Body.Close()

	entry := &Entry{
		Status:   resp.StatusCode,
		Header:   storableHeader(resp.Header),
		Body:     body,
		StoredAt: r.now().UTC(),
	}
	if err := r.backend.Put(req.Context(), rule.Region, Key(req), entry); err != nil {
		r.log.Warn(req.Context(), "cache write failed", "region", rule.Region, "error", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// Cacheable accepts 2xx responses except partial content.
func Cacheable(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.StatusCode != http.StatusPartialContent
}

var hopByHop = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade", "Set-Cookie",
}

func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, k := range hopByHop {
		out.Del(k)
	}
	return out
}

func toResponse(req *http.Request, rule Rule, e *Entry) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(HeaderCache, "hit")
	h.Set(HeaderCacheRegion, rule.Region)
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
