// Package push manages the agent's Web Push subscription and turns incoming
// pushes into local notifications.
//
// The local subscription and its registration on the story API are always
// changed together: Subscribe rolls the local subscription back when the
// server registration fails, and Unsubscribe deregisters before releasing
// the local subscription.
package push
