package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitalscan/gateway/internal/media"
)

func testImage() *media.DecodedImage {
	return &media.DecodedImage{Width: 200, Height: 150, Pixels: make([]byte, 200*150*3)}
}

func TestRouterRemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteResponse{Predictions: []remotePrediction{
			{Cls: "cut", X: ptr(120.5), Y: ptr(200.3), Width: ptr(45.0), Height: ptr(60.0), Confidence: 0.92},
		}})
	}))
	defer srv.Close()

	r := New(Config{ConfidenceThreshold: 0.5, RemoteURL: srv.URL, RemoteKey: "k"}, nil)
	dets := r.Infer(context.Background(), testImage())

	require.Len(t, dets, 1)
	require.Equal(t, "cut", dets[0].Cls)
	require.InDelta(t, 0.92, dets[0].Confidence, 1e-9)
}

func TestRouterRemoteFailureFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(Config{ConfidenceThreshold: 0.5, RemoteURL: srv.URL, RemoteKey: "k", LocalEnabled: true},
		func() (LocalDetector, error) { return NewDeterministicBackend(), nil })
	dets := r.Infer(context.Background(), testImage())

	require.Len(t, dets, 1)
	require.Equal(t, "cut", dets[0].Cls)
}

func TestRouterRemoteFailureFallbackDisabledReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(Config{ConfidenceThreshold: 0.5, RemoteURL: srv.URL, RemoteKey: "k", LocalEnabled: false}, nil)
	dets := r.Infer(context.Background(), testImage())

	require.Empty(t, dets)
}

func TestRouterNotConfiguredSkipsToLocal(t *testing.T) {
	r := New(Config{ConfidenceThreshold: 0.5, LocalEnabled: true},
		func() (LocalDetector, error) { return NewDeterministicBackend(), nil })
	dets := r.Infer(context.Background(), testImage())
	require.Len(t, dets, 1)
}

func TestRouterNothingConfiguredReturnsEmpty(t *testing.T) {
	r := New(Config{ConfidenceThreshold: 0.5}, nil)
	dets := r.Infer(context.Background(), testImage())
	require.Empty(t, dets)
}

func TestRouterFiltersBelowThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteResponse{Predictions: []remotePrediction{
			{Cls: "cut", Confidence: 0.2},
		}})
	}))
	defer srv.Close()

	r := New(Config{ConfidenceThreshold: 0.5, RemoteURL: srv.URL, RemoteKey: "k"}, nil)
	dets := r.Infer(context.Background(), testImage())
	require.Empty(t, dets)
}

func TestRouterIsPureFunctionOfConfig(t *testing.T) {
	r := New(Config{ConfidenceThreshold: 0.5, LocalEnabled: true},
		func() (LocalDetector, error) { return NewDeterministicBackend(), nil })

	img := testImage()
	first := r.Infer(context.Background(), img)
	second := r.Infer(context.Background(), img)
	require.Equal(t, first, second)
}

func ptr(f float64) *float64 { return &f }
