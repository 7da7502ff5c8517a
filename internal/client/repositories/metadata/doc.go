// Package metadata is a small key/value table shared by the agent and the
// client for state that must survive restarts: the bearer token snapshot,
// push key material, the push-enabled flag and the remembered notification
// permission.
//
// Get returns (nil, nil) for a missing key.
package metadata

// Well-known keys.
const (
	KeyTokenSnapshot          = "auth.token"
	KeyPushKeys               = "push.keys"
	KeyPushSubscription       = "push.subscription"
	KeyPushEnabled            = "push.enabled"
	KeyNotificationPermission = "notification.permission"
)
