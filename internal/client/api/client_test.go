package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := New(ts.URL+"/v1/", ts.Client())
	require.NoError(t, err)
	return c
}

func fptr(v float64) *float64 { return &v }

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/v1", nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.c", in["email"])

		_, _ = io.WriteString(w, `{"error":false,"message":"success","loginResult":{"userId":"user-1","name":"Ari","token":"tok"}}`)
	})

	res, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "Ari", res.Name)
}

func TestRejectionMessageIsVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":true,"message":"Invalid password"}`)
	})

	_, err := c.Login(context.Background(), "a@b.c", "bad")
	rej, ok := common.IsServerRejection(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rej.StatusCode)
	assert.Equal(t, "Invalid password", err.Error())
}

func TestErrorFlagOn200IsRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":true,"message":"quota"}`)
	})

	err := c.Register(context.Background(), "n", "e", "p")
	_, ok := common.IsServerRejection(err)
	require.True(t, ok)
}

func TestNetworkErrorIsErrNetwork(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()
	c, err := New(ts.URL, nil)
	require.NoError(t, err)

	err = c.AddStory(context.Background(), "tok", models.NewStory{Description: "d", Photo: models.Photo{Name: "a.jpg", Type: "image/jpeg", Data: []byte{1}}})
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestCanceledIsNotNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Stories(ctx, "tok", StoriesQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, common.ErrNetwork))
}

func TestStories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("location"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = io.WriteString(w, `{"error":false,"message":"ok","listStory":[
			{"id":"story-1","name":"Ari","description":"d","photoUrl":"https://x/p.jpg","createdAt":"2024-01-02T03:04:05.000Z","lat":-6.2,"lon":106.8},
			{"id":"story-2","name":"Bo","description":"e","photoUrl":"https://x/q.jpg","createdAt":"2024-01-03T03:04:05.000Z"}]}`)
	})

	list, err := c.Stories(context.Background(), "tok", StoriesQuery{Page: 2, Location: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Lat)
	assert.InDelta(t, -6.2, *list[0].Lat, 1e-9)
	assert.Nil(t, list[1].Lat)
}

func TestAddStory_MultipartWireFormat(t *testing.T) {
	photo := []byte{0xff, 0xd8, 0xff, 0xe0}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stories", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Hello", r.FormValue("description"))
		assert.Equal(t, "-6.2", r.FormValue("lat"))
		assert.Equal(t, "106.8", r.FormValue("lon"))

		f, fh, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		got, _ := io.ReadAll(f)
		assert.Equal(t, photo, got)
		assert.Equal(t, "hello.jpg", fh.Filename)
		assert.Equal(t, "image/jpeg", fh.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"error":false,"message":"success"}`)
	})

	err := c.AddStory(context.Background(), "tok", models.NewStory{
		Description: "Hello",
		Photo:       models.Photo{Name: "hello.jpg", Type: "image/jpeg", Data: photo},
		Lat:         fptr(-6.2),
		Lon:         fptr(106.8),
	})
	require.NoError(t, err)
}

func TestAddStory_OmitsMissingCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasLat := r.MultipartForm.Value["lat"]
		assert.False(t, hasLat)
		_, _ = io.WriteString(w, `{"error":false}`)
	})

	require.NoError(t, c.AddStory(context.Background(), "tok", models.NewStory{
		Description: "x", Photo: models.Photo{Name: "x.png", Type: "image/png", Data: []byte{1}},
	}))
}

func TestPushSubscription(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/subscribe", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, r.Method+" "+string(body))
		_, _ = io.WriteString(w, `{"error":false,"message":"ok"}`)
	})
	ctx := context.Background()

	sub := models.PushSubscription{Endpoint: "https://agent/push/1", Keys: models.PushKeys{P256dh: "pk", Auth: "au"}}
	require.NoError(t, c.SubscribePush(ctx, "tok", sub))
	require.NoError(t, c.UnsubscribePush(ctx, "tok", sub.Endpoint))

	require.Len(t, calls, 2)
	assert.JSONEq(t, `{"endpoint":"https://agent/push/1","keys":{"p256dh":"pk","auth":"au"}}`, calls[0][len("POST "):])
	assert.JSONEq(t, `{"endpoint":"https://agent/push/1"}`, calls[1][len("DELETE "):])
}
