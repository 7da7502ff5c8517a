// Package notify keeps the agent's local notifications.
//
// A notification with a non-empty tag replaces any earlier one carrying the
// same tag. Every shown notification is forwarded to the configured sinks
// (structured log, Slack incoming webhook).
package notify
