package cache

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

type Strategy string

const (
	NetworkFirst         Strategy = "network-first"
	CacheFirst           Strategy = "cache-first"
	StaleWhileRevalidate Strategy = "stale-while-revalidate"
)

// Region names are observable storage partitions.
const (
	RegionAPI           = "story-api-cache"
	RegionAPIImages     = "story-api-images"
	RegionTilesOSM      = "map-tiles-osm"
	RegionTilesArcGIS   = "map-tiles-arcgis"
	RegionTilesTopo     = "map-tiles-opentopomap"
	originOpenStreetMap = "https://tile.openstreetmap.org"
	originArcGIS        = "https://server.arcgisonline.com"
)

// Rule routes matching requests to a strategy and region.
type Rule struct {
	Name     string
	Match    func(r *http.Request) bool
	Strategy Strategy
	Region   string
}

// DefaultRules returns the routing table for the story API at apiBase and
// the three supported tile providers.
func DefaultRules(apiBase *url.URL) []Rule {
	apiOrigin := origin(apiBase)

	return []Rule{
		{
			Name:     "story-api",
			Match:    func(r *http.Request) bool { return origin(r.URL) == apiOrigin && !IsImageRequest(r) },
			Strategy: NetworkFirst,
			Region:   RegionAPI,
		},
		{
			Name:     "story-api-images",
			Match:    func(r *http.Request) bool { return origin(r.URL) == apiOrigin && IsImageRequest(r) },
			Strategy: StaleWhileRevalidate,
			Region:   RegionAPIImages,
		},
		{
			Name:     "tiles-osm",
			Match:    func(r *http.Request) bool { return origin(r.URL) == originOpenStreetMap },
			Strategy: CacheFirst,
			Region:   RegionTilesOSM,
		},
		{
			Name:     "tiles-arcgis",
			Match:    func(r *http.Request) bool { return origin(r.URL) == originArcGIS },
			Strategy: CacheFirst,
			Region:   RegionTilesArcGIS,
		},
		{
			Name:     "tiles-opentopomap",
			Match:    func(r *http.Request) bool { return strings.Contains(origin(r.URL), "opentopomap") },
			Strategy: CacheFirst,
			Region:   RegionTilesTopo,
		},
	}
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".avif": {}, ".ico": {}, ".bmp": {},
}

// IsImageRequest approximates a browser's request destination "image".
func IsImageRequest(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("Sec-Fetch-Dest"), "image") {
		return true
	}
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Accept")), "image/") {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(r.URL.Path))]
	return ok
}

func origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
