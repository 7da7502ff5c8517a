// Package favorites stores locally bookmarked stories.
//
// A favorite is keyed by the remote story id; adding the same id twice is a
// conflict, not an upsert. Favorites are never updated in place.
package favorites
