// Package worker is the agent's event runtime.
//
// Events (sync, push, notificationclick, message) are routed through a
// dispatch table to their handlers. Each handler runs under the Lifetime,
// so shutdown waits for work that is already in progress. SyncManager keeps
// the registered sync tags armed until their handler succeeds, and
// ConnectivityWatcher turns offline to online transitions into sync firings.
package worker
