package models

import (
	"strings"
	"time"
)

// Story is a story as returned by the remote API.
type Story struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
}

// FavoriteStory is a locally bookmarked story. At most one per ID.
type FavoriteStory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FavoritedAt time.Time `json:"favoritedAt"`
}

// Favorite copies the remote story into a bookmark. FavoritedAt is stamped by
// the store.
func (s Story) Favorite() *FavoriteStory {
	return &FavoriteStory{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		PhotoURL:    s.PhotoURL,
		Lat:         s.Lat,
		Lon:         s.Lon,
		CreatedAt:   s.CreatedAt,
	}
}

// Matches reports a case-insensitive substring match over name and
// description.
func (f FavoriteStory) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(f.Name), q) ||
		strings.Contains(strings.ToLower(f.Description), q)
}

type SortKey string

const (
	SortByCreatedAt   SortKey = "createdAt"
	SortByFavoritedAt SortKey = "favoritedAt"
	SortByName        SortKey = "name"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// FavoriteSort selects the ordering of ListFavorites. The zero value means
// createdAt descending.
type FavoriteSort struct {
	Key   SortKey
	Order SortOrder
}

// Normalize fills defaults and rejects unknown values.
func (s FavoriteSort) Normalize() (FavoriteSort, bool) {
	if s.Key == "" {
		s.Key = SortByCreatedAt
	}
	if s.Order == "" {
		s.Order = Desc
	}
	switch s.Key {
	case SortByCreatedAt, SortByFavoritedAt, SortByName:
	default:
		return s, false
	}
	switch s.Order {
	case Asc, Desc:
	default:
		return s, false
	}
	return s, true
}
