// HTTP server for Prometheus metrics endpoint
//
// Serves /metrics for Prometheus scraping and /health for liveness checks.
//
// Example usage:
//
//	server := metrics.NewServer(uartMetrics.Registry(), ":9100")
//	go server.Start()
//	defer server.Shutdown(context.Background())
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Handler returns an http.Handler serving the registry.
func Handler(reg *Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		output := reg.Gather()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(output)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(output))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK\n"))
	})
	return mux
}

// Server serves a registry over HTTP
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server listening on addr.
func NewServer(reg *Registry, addr string) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      Handler(reg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start starts the metrics server (blocks until server stops)
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.server.Addr
}
