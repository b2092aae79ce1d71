package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, r, g, b byte) *DecodedImage {
	pixels := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pixels[i*3] = r
		pixels[i*3+1] = g
		pixels[i*3+2] = b
	}
	return &DecodedImage{Width: w, Height: h, Pixels: pixels}
}

func TestDecodePixelBufferRoundtrip(t *testing.T) {
	raw := PixelBuffer{Width: 4, Height: 2, Pixels: make([]byte, 4*2*3)}
	img, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 2, img.Height)
}

func TestDecodeMalformedPixelBuffer(t *testing.T) {
	raw := PixelBuffer{Width: 4, Height: 2, Pixels: make([]byte, 3)}
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeCorruptEncodedBytes(t *testing.T) {
	_, err := Decode(EncodedBytes([]byte("not an image")))
	require.ErrorIs(t, err, ErrDecode)
}

func TestResizeNoopAtCeiling(t *testing.T) {
	img := solidImage(1280, 720, 10, 20, 30)
	out := ResizeToCeiling(img, DefaultMaxWidth, DefaultMaxHeight)
	require.Same(t, img, out)
}

func TestResizePreservesAspectRatio(t *testing.T) {
	img := solidImage(1281, 720, 0, 0, 0)
	out := ResizeToCeiling(img, DefaultMaxWidth, DefaultMaxHeight)
	require.LessOrEqual(t, out.Width, DefaultMaxWidth)
	require.LessOrEqual(t, out.Height, DefaultMaxHeight)

	var origH, origW, maxW float64 = 720.0, 1281.0, 1280.0
	wantH := int(origH * (maxW / origW))
	require.InDelta(t, wantH, out.Height, 1)
}

func TestBlurScoreIdenticalAfterNoopResize(t *testing.T) {
	img := solidImage(100, 100, 50, 60, 70)
	before := BlurScore(img)
	resized := ResizeToCeiling(img, DefaultMaxWidth, DefaultMaxHeight)
	after := BlurScore(resized)
	require.Equal(t, before, after)
}

func TestQualityWarningStrictInequality(t *testing.T) {
	img := solidImage(50, 50, 1, 2, 3) // flat image => laplacian variance 0
	ApplyQualityWarning(img, 0)
	require.Empty(t, img.QualityWarning, "score exactly at threshold must not be flagged")
}

func TestQualityWarningBelowThreshold(t *testing.T) {
	img := solidImage(50, 50, 1, 2, 3)
	ApplyQualityWarning(img, DefaultBlurThreshold)
	require.NotEmpty(t, img.QualityWarning)
}
