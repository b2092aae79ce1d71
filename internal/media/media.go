// Package media decodes opaque inbound track frames into pixel matrices,
// enforces the output resolution ceiling, and scores image sharpness.
//
// The WebRTC codec stack is an out-of-scope collaborator (spec.md §1): by
// the time a frame reaches this package it is either already a decoded
// pixel buffer handed to us by that stack, or an encoded still (JPEG/PNG)
// carried as the track's raw payload. Both are accepted.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png" // register PNG decoder for image.Decode
)

// ErrDecode is returned when a raw payload cannot be decoded.
var ErrDecode = errors.New("invalid image format")

// DefaultMaxWidth and DefaultMaxHeight are the resolution ceiling from
// spec.md §3 DecodedImage invariant.
const (
	DefaultMaxWidth  = 1280
	DefaultMaxHeight = 720
)

// DefaultBlurThreshold is the variance-of-Laplacian cutoff below which an
// image is flagged as blurry.
const DefaultBlurThreshold = 100.0

// RawFrame is the opaque, implementation-defined handle for an inbound
// video frame. Exactly one of its constructors below should be used.
type RawFrame interface {
	isRawFrame()
}

// EncodedBytes wraps a JPEG or PNG encoded still, as received when the
// track hands us encoded payloads instead of pre-decoded pixels.
type EncodedBytes []byte

func (EncodedBytes) isRawFrame() {}

// PixelBuffer wraps an already-decoded row-major 3-channel 8-bit pixel
// matrix, as received when the opaque WebRTC/codec layer hands us decoded
// frames directly.
type PixelBuffer struct {
	Width, Height int
	Pixels        []byte // row-major, 3 bytes (R,G,B) per pixel
}

func (PixelBuffer) isRawFrame() {}

// DecodedImage is the pixel matrix produced by Decode, after any resize.
type DecodedImage struct {
	Width, Height  int
	Pixels         []byte // row-major RGB, len == Width*Height*3
	BlurScore      float64
	QualityWarning string
}

// Decode converts an opaque raw payload into a DecodedImage. It returns
// ErrDecode (wrapped) on unsupported or corrupt input.
func Decode(raw RawFrame) (*DecodedImage, error) {
	switch f := raw.(type) {
	case PixelBuffer:
		if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != f.Width*f.Height*3 {
			return nil, fmt.Errorf("%w: malformed pixel buffer", ErrDecode)
		}
		pixels := make([]byte, len(f.Pixels))
		copy(pixels, f.Pixels)
		return &DecodedImage{Width: f.Width, Height: f.Height, Pixels: pixels}, nil
	case EncodedBytes:
		return decodeEncoded(f)
	default:
		return nil, fmt.Errorf("%w: unsupported raw frame type", ErrDecode)
	}
}

// RawSize returns the byte size of the raw payload backing raw, used for
// the MAX_FRAME_SIZE_BYTES check ahead of decode.
func RawSize(raw RawFrame) int {
	switch f := raw.(type) {
	case EncodedBytes:
		return len(f)
	case PixelBuffer:
		return len(f.Pixels)
	default:
		return 0
	}
}

func decodeEncoded(data []byte) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return fromImage(img), nil
}

func fromImage(img image.Image) *DecodedImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, w*h*3)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels[idx] = byte(r >> 8)
			pixels[idx+1] = byte(g >> 8)
			pixels[idx+2] = byte(b >> 8)
			idx += 3
		}
	}
	return &DecodedImage{Width: w, Height: h, Pixels: pixels}
}

// EncodeJPEG encodes img as JPEG, used by the inference router when
// posting a frame to the remote backend.
func EncodeJPEG(img *DecodedImage) ([]byte, error) {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 3
			rgba.Set(x, y, rgbColor{img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2]})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

type rgbColor struct{ r, g, b byte }

func (c rgbColor) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) << 8, uint32(c.g) << 8, uint32(c.b) << 8, 0xffff
}
