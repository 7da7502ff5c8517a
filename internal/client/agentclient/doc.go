// Package agentclient connects a foreground process to the local agent.
//
// Transport routes story API traffic through the agent's cache router and
// falls back to the network when the agent is not running. Agent is a
// client for the agent's control API. Bridge keeps the websocket link the
// agent uses to ask for the session token and notification permission.
package agentclient
