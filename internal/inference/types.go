// Package inference routes decoded video frames through a primary remote
// wound-detection backend, falling back to a local model and finally to an
// empty result, per the router contract infer(img) -> []Detection.
package inference

import "time"

// Detection is a single wound hypothesis, the sole wire and in-process
// representation (it is also the JSON shape emitted on the data channel).
type Detection struct {
	ID             int     `json:"id"`
	WoundID        int     `json:"wound_id"`
	Cls            string  `json:"cls"`
	BBox           BBox    `json:"bbox"`
	Confidence     float64 `json:"confidence"`
	TypeConfidence float64 `json:"type_confidence"`
}

// BBox is an absolute-pixel bounding box: top-left corner plus extent.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Config parameterizes a Router. The zero value routes directly to the
// empty fallback (no remote, no local).
type Config struct {
	ConfidenceThreshold float64
	RemoteURL           string
	RemoteKey           string
	RemoteTimeout       time.Duration
	LocalEnabled        bool
	LocalWeightsPath    string
}

func (c Config) remoteConfigured() bool {
	return c.RemoteURL != "" && c.RemoteKey != ""
}

// rawPrediction is the normalized intermediate shape a backend produces
// before confidence filtering and ID assignment.
type rawPrediction struct {
	Cls            string
	X, Y           float64
	W, H           float64
	Confidence     float64
	TypeConfidence float64
}

func normalize(preds []rawPrediction, threshold float64) []Detection {
	out := make([]Detection, 0, len(preds))
	id := 0
	for _, p := range preds {
		if p.Confidence < threshold {
			continue
		}
		cls := p.Cls
		if cls == "" {
			cls = "unknown"
		}
		out = append(out, Detection{
			ID:             id,
			WoundID:        id,
			Cls:            cls,
			BBox:           BBox{X: p.X, Y: p.Y, Width: p.W, Height: p.H},
			Confidence:     p.Confidence,
			TypeConfidence: p.TypeConfidence,
		})
		id++
	}
	return out
}
