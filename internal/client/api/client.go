// Package api is the HTTP client of the remote story API.
//
// Transport failures are reported as common.ErrNetwork so callers can fall
// back to the offline queue; non-2xx answers become *common.ServerRejection
// carrying the server's message verbatim.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/netx"
)

const DefaultBaseURL = "https://story-api.dicoding.dev/v1"

type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for baseURL. A nil httpClient means http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, http: httpClient}, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// envelope is the common response wrapper of the story API.
type envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type LoginResult struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

type StoriesQuery struct {
	Page     int
	Size     int
	Location bool
}

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/register", "", body, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out struct {
		LoginResult LoginResult `json:"loginResult"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out.LoginResult, nil
}

func (c *Client) Stories(ctx context.Context, token string, q StoriesQuery) ([]models.Story, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Location {
		v.Set("location", "1")
	}
	path := "/stories"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out struct {
		ListStory []models.Story `json:"listStory"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	if out.ListStory == nil {
		out.ListStory = []models.Story{}
	}
	return out.ListStory, nil
}

func (c *Client) Story(ctx context.Context, token, id string) (*models.Story, error) {
	var out struct {
		Story models.Story `json:"story"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/stories/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Story, nil
}

// AddStory uploads a story as multipart/form-data: description, photo and
// the optional lat/lon as decimal strings.
func (c *Client) AddStory(ctx context.Context, token string, s models.NewStory) error {
	body, contentType, err := EncodeStory(s)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/stories", token, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, nil)
}

// EncodeStory renders the multipart body of a story submission.
func EncodeStory(s models.NewStory) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("description", s.Description); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, s.Photo.Name))
	h.Set("Content-Type", s.Photo.Type)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(s.Photo.Data); err != nil {
		return nil, "", err
	}

	if s.Lat != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*s.Lat, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
	}
	if s.Lon != nil {
		if err := w.WriteField("lon", strconv.FormatFloat(*s.Lon, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) SubscribePush(ctx context.Context, token string, sub models.PushSubscription) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/subscribe", token, sub, nil)
}

func (c *Client) UnsubscribePush(ctx context.Context, token, endpoint string) error {
	body := map[string]string{"endpoint": endpoint}
	return c.doJSON(ctx, http.MethodDelete, "/notifications/subscribe", token, body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", common.ErrNetwork, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if netx.IsNetworkError(err) {
			return fmt.Errorf("%w: read body: %v", common.ErrNetwork, err)
		}
		return err
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Error {
		return &common.ServerRejection{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
		}
	}
	return nil
}
