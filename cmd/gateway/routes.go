package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalscan/gateway/internal/acoustic"
	"github.com/vitalscan/gateway/internal/config"
	"github.com/vitalscan/gateway/internal/inference"
	"github.com/vitalscan/gateway/internal/session"
)

// deps carries the process-wide, session-independent collaborators shared
// by every request handler.
type deps struct {
	cfg      config.Config
	router   *inference.Router
	analyzer *acoustic.Analyzer
	registry *session.Registry
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d *deps) {
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/ready", d.handleReady)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/stream", d.handleStream)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReady reports 503 once the gateway is at MAX_CONCURRENT_SESSIONS
// capacity, so a load balancer can stop routing new sessions here.
func (d *deps) handleReady(w http.ResponseWriter, r *http.Request) {
	if d.cfg.MaxConcurrentSessions > 0 && d.registry.Count() >= d.cfg.MaxConcurrentSessions {
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
