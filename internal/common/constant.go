// Package common contains shared constants and sentinel errors used across
// storysync components.
package common

// AuthorizationHeaderName carries the bearer token on outbound API requests.
const AuthorizationHeaderName = "Authorization"

// SyncStoriesTag is the background sync registration that drains the
// pending submission queue.
const SyncStoriesTag = "sync-stories"

// MaxPhotoSize is the upper bound (exclusive) accepted by the story API for
// a single photo upload.
const MaxPhotoSize = 1 << 20

// DefaultTargetURL is opened when a notification carries no URL of its own.
const DefaultTargetURL = "/#/"

// HeaderFetchURL carries the real target of a request proxied through the
// agent's /fetch endpoint.
const HeaderFetchURL = "X-Fetch-URL"

// HeaderFetchError is set on a /fetch answer when the agent could not reach
// the target at all.
const HeaderFetchError = "X-Fetch-Error"

// DatabaseFile is the SQLite file in the data directory shared by the agent,
// clients and storyctl.
const DatabaseFile = "storysync.db"
