// Package httpserver builds the daemon's HTTP server, which serves health
// probes, Prometheus metrics, and registry snapshot reads.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server. Snapshot reads are single-row lookups, so the
// timeouts are tight; anything slower indicates a stuck database call.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
