// Package server wires HTTP handlers into a ServeMux for the chat
// application via routing helpers.
package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for the health check and the WebSocket endpoint.
func (a *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", a.WebSocketHandler)
	return mux
}
