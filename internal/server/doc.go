// Package server implements the HTTP and WebSocket transport for the chat
// service.
//
// The implementation is organized into specialized files for configuration,
// connection lifecycle, clients, routing, and HTTP handlers. Room and session
// state lives in the chat package; this package only accepts connections,
// frames events, and reports closures to the chat event loop.
package server
