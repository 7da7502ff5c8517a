// Package cli provides the interactive storysync command-line client.
//
// It wires configuration, the shared local store, the story API client and
// the link to the local agent, then runs a REPL. The client is a foreground
// context for the agent: it answers token and permission requests over the
// bridge while the user browses and submits stories.
//
// Key features:
//   - Register / Login / Logout, with the session restored from the snapshot
//   - Submit stories: direct upload when online, offline queue otherwise
//   - Browse stories and bookmark favorites (works offline)
//   - Inspect and drain the pending queue through the agent
//   - Enable or disable push notifications and activate notifications
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
