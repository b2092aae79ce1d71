package inference

import (
	"context"

	"github.com/vitalscan/gateway/internal/media"
)

// NewDeterministicBackend returns a LocalDetector that always places a
// single "cut" hypothesis centered in the frame, for local development and
// tests when no real local model is available. cmd/gateway passes it as
// the Router's local detector factory, so it runs only when
// INFERENCE_LOCAL_ENABLED is set; with neither backend enabled, routing
// returns the empty list.
func NewDeterministicBackend() LocalDetector {
	return deterministicBackend{}
}

type deterministicBackend struct{}

// NewPanickingBackend returns a LocalDetector whose Detect always panics.
// Used by videoproc's tests to exercise the router/inferSafely panic
// recovery path without depending on a real model crashing.
func NewPanickingBackend() LocalDetector {
	return panickingBackend{}
}

type panickingBackend struct{}

func (panickingBackend) Detect(_ context.Context, _ *media.DecodedImage) ([]rawPrediction, error) {
	panic("simulated local detector failure")
}

func (deterministicBackend) Detect(_ context.Context, img *media.DecodedImage) ([]rawPrediction, error) {
	if img.Width <= 50 {
		return nil, nil
	}

	cx, cy := float64(img.Width)/2, float64(img.Height)/2
	w := min(100.0, float64(img.Width)*0.3)
	h := min(100.0, float64(img.Height)*0.3)
	x := max(0.0, cx-w/2)
	y := max(0.0, cy-h/2)

	return []rawPrediction{{
		Cls:            "cut",
		X:              x,
		Y:              y,
		W:              w,
		H:              h,
		Confidence:     0.75,
		TypeConfidence: 0.6,
	}}, nil
}
