// Package httpserver builds the http.Server with limits suited to an API
// that accepts multi-megabyte document uploads.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given handler. Write and idle timeouts are
// generous because verification requests carry image payloads and the
// pipeline makes recognizer round trips before responding.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}
