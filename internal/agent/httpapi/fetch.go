package httpapi

import (
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/storysync/internal/common"
)

var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// fetch replays the request against the URL named in X-Fetch-URL through
// the cache router and streams the answer back.
func (s *Server) fetch(c echo.Context) error {
	in := c.Request()
	target, err := url.Parse(in.Header.Get(common.HeaderFetchURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "X-Fetch-URL must be an absolute http(s) URL")
	}

	out := in.Clone(in.Context())
	out.URL = target
	out.Host = target.Host
	out.RequestURI = ""
	out.Header.Del(common.HeaderFetchURL)
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}

	resp, err := s.d.Fetch.RoundTrip(out)
	if err != nil {
		s.log.Debug(in.Context(), "fetch failed", "url", target.String(), "error", err)
		c.Response().Header().Set(common.HeaderFetchError, "network")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	defer resp.Body.Close()

	h := c.Response().Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
	c.Response().WriteHeader(resp.StatusCode)
	_, err = io.Copy(c.Response(), resp.Body)
	return err
}
