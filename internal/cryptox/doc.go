// Package cryptox implements the receiving side of Web Push message
// encryption (RFC 8291, aes128gcm content coding from RFC 8188) and VAPID
// (RFC 8292) header verification.
//
// The agent acts as its own push endpoint: it owns a P-256 key pair and an
// auth secret, hands the public half to the story server as a subscription,
// and decrypts whatever the server posts back.
package cryptox
