// Package bridge connects the agent with its foreground contexts.
//
// Foreground processes attach over a websocket (or an in-process port in
// tests) and exchange tagged Messages. The Hub is the only dispatcher: it
// routes replies to the request waiting for them, keeps the registry of open
// contexts used by notification activation, and hands every other message
// to the agent's message handler. Messages sent to a single port keep their
// order; there is no ordering between ports.
package bridge
