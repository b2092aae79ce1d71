// Command gateway runs the real-time media-analysis gateway: it accepts
// inbound video/audio tracks over a transport.PeerConnection, pipes them
// through inference and acoustic analysis, and streams JSON events back
// over a data channel.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalscan/gateway/internal/acoustic"
	"github.com/vitalscan/gateway/internal/config"
	"github.com/vitalscan/gateway/internal/inference"
	"github.com/vitalscan/gateway/internal/session"
)

// shutdownTimeout bounds how long the process waits for in-flight
// sessions to close during SIGINT/SIGTERM before exiting anyway.
const shutdownTimeout = 10 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	})))

	cfg := config.Load()

	router := inference.New(inference.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		RemoteURL:           cfg.InferenceRemoteURL,
		RemoteKey:           cfg.InferenceRemoteKey,
		RemoteTimeout:       cfg.InferenceRemoteTimeout,
		LocalEnabled:        cfg.InferenceLocalEnabled,
		LocalWeightsPath:    cfg.InferenceLocalWeights,
	}, func() (inference.LocalDetector, error) {
		return inference.NewDeterministicBackend(), nil
	})

	analyzer := acoustic.New(acoustic.DefaultConfig(cfg.AudioSampleRate), nil)

	registry := session.NewRegistry()

	d := &deps{
		cfg:      cfg,
		router:   router,
		analyzer: analyzer,
		registry: registry,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, d)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		slog.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		registry.CloseAll(ctx)

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("gateway listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("listen", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
