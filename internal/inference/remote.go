package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/vitalscan/gateway/internal/media"
)

// remoteBackend posts a JPEG-encoded frame to an HTTP wound-detection
// service, modeled the same way as the multipart POST clients in the rest
// of this stack: a pooled *http.Client and a fixed per-call timeout.
type remoteBackend struct {
	url     string
	key     string
	client  *http.Client
	timeout time.Duration
}

func newRemoteBackend(cfg Config) *remoteBackend {
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &remoteBackend{
		url: cfg.RemoteURL,
		key: cfg.RemoteKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		timeout: timeout,
	}
}

type remoteResponse struct {
	Predictions []remotePrediction `json:"predictions"`
}

type remotePrediction struct {
	Cls            string   `json:"cls"`
	Class          string   `json:"class"`
	Label          string   `json:"label"`
	BBox           []*float64 `json:"bbox"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	Width          *float64 `json:"width"`
	Height         *float64 `json:"height"`
	Confidence     float64  `json:"confidence"`
	ClassConfidence *float64 `json:"class_confidence"`
}

func (p remotePrediction) className() string {
	for _, c := range []string{p.Cls, p.Class, p.Label} {
		if c != "" {
			return c
		}
	}
	return "unknown"
}

func (p remotePrediction) extract() (x, y, w, h float64) {
	get := func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	}
	if len(p.BBox) == 4 {
		return get(p.BBox[0]), get(p.BBox[1]), get(p.BBox[2]), get(p.BBox[3])
	}
	return get(p.X), get(p.Y), get(p.Width), get(p.Height)
}

// predict encodes img as JPEG and POSTs it to the configured endpoint with
// the confidence threshold as a query parameter, returning normalized
// predictions before threshold filtering (the caller filters).
func (b *remoteBackend) predict(ctx context.Context, img *media.DecodedImage, threshold float64) ([]rawPrediction, error) {
	jpegBytes, err := media.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(jpegBytes); err != nil {
		return nil, fmt.Errorf("write frame bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	reqURL := b.url
	if q, err := url.Parse(b.url); err == nil {
		values := q.Query()
		values.Set("api_key", b.key)
		values.Set("confidence", fmt.Sprintf("%d", int(threshold*100)))
		q.RawQuery = values.Encode()
		reqURL = q.String()
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode remote response: %w", err)
	}

	out := make([]rawPrediction, 0, len(parsed.Predictions))
	for _, p := range parsed.Predictions {
		x, y, w, h := p.extract()
		typeConf := p.Confidence
		if p.ClassConfidence != nil {
			typeConf = *p.ClassConfidence
		}
		out = append(out, rawPrediction{
			Cls:             p.className(),
			X:               x,
			Y:               y,
			W:               w,
			H:               h,
			Confidence:      p.Confidence,
			TypeConfidence:  typeConf,
		})
	}
	return out, nil
}
