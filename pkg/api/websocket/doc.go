// Package websocket provides real-time run event streaming over
// WebSocket connections.
package websocket
