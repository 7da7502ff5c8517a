package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestDataURL(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff, 0x00, 0x10}
	s := EncodeDataURL("image/jpeg", data)
	assert.Equal(t, "data:image/jpeg;base64,/9j/ABA=", s)

	mime, got, err := DecodeDataURL(s)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, data, got)
}

func TestDecodeDataURL_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"image/jpeg;base64,AAAA",
		"data:image/jpeg;base64",
		"data:text/plain,hello",
		"data:image/png;base64,!!!",
	} {
		_, _, err := DecodeDataURL(in)
		require.ErrorIs(t, err, ErrBadDataURL, in)
	}
}

func TestPendingRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	in := NewStory{
		Description: "Hello",
		Photo:       Photo{Name: "a.jpg", Type: "image/jpeg", Data: []byte("jpeg-bytes")},
		Lat:         ptr(-6.2),
		Lon:         ptr(106.8),
	}

	p := in.ToPending(now)
	assert.Equal(t, time.UTC, p.Timestamp.Location())
	assert.True(t, p.Timestamp.Equal(now))

	out, err := p.Story()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPendingStory_Defaults(t *testing.T) {
	p := &PendingSubmission{PhotoData: EncodeDataURL("image/png", []byte{1})}
	s, err := p.Story()
	require.NoError(t, err)
	assert.Equal(t, "image/png", s.Photo.Type)
	assert.Equal(t, "photo.jpg", s.Photo.Name)

	_, err = (&PendingSubmission{TempID: 9, PhotoData: "garbage"}).Story()
	require.ErrorIs(t, err, ErrBadDataURL)
}

func TestFavoriteMatches(t *testing.T) {
	f := FavoriteStory{Name: "Budi", Description: "Pantai di BALI"}
	assert.True(t, f.Matches("bali"))
	assert.True(t, f.Matches("BUD"))
	assert.True(t, f.Matches(""))
	assert.False(t, f.Matches("jakarta"))
}

func TestFavoriteSortNormalize(t *testing.T) {
	s, ok := FavoriteSort{}.Normalize()
	require.True(t, ok)
	assert.Equal(t, FavoriteSort{Key: SortByCreatedAt, Order: Desc}, s)

	_, ok = FavoriteSort{Key: "rating"}.Normalize()
	assert.False(t, ok)
	_, ok = FavoriteSort{Key: SortByName, Order: "sideways"}.Normalize()
	assert.False(t, ok)
}

func TestStoryFavorite(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Story{ID: "story-1", Name: "n", Description: "d", PhotoURL: "https://x/p.jpg", CreatedAt: created, Lat: ptr(1)}
	f := s.Favorite()
	assert.Equal(t, "story-1", f.ID)
	assert.Equal(t, created, f.CreatedAt)
	assert.True(t, f.FavoritedAt.IsZero())
}
