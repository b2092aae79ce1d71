package acoustic

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// seekableBuffer adapts an in-memory byte buffer to io.WriteSeeker, which
// wav.NewEncoder requires in order to patch chunk sizes after writing.
type seekableBuffer struct {
	buf []byte
	pos int
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	if s.pos+len(p) > len(s.buf) {
		s.buf = append(s.buf, make([]byte, s.pos+len(p)-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(s.pos) + offset
	case io.SeekEnd:
		newPos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("seekableBuffer: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("seekableBuffer: negative position")
	}
	s.pos = int(newPos)
	return newPos, nil
}

// MaterializeWAV encodes already-concatenated PCM samples at a uniform
// sample rate and channel count as a 16-bit WAV container, mirroring
// spec.md §4.5 step 1's "materialize a WAV representation". Uses
// go-audio/wav rather than the hand-rolled RIFF writer the teacher uses
// for TTS playback, since that encoder only supports mono float32-as-int16
// passthrough and this package wants go-audio's audio.IntBuffer
// abstraction for a reusable representation downstream tooling can open.
func MaterializeWAV(samples []float32, sampleRate, numChannels int) ([]byte, error) {
	intSamples := make([]int, len(samples))
	for i, s := range samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		intSamples[i] = int(clamped * math.MaxInt16)
	}

	buf := &seekableBuffer{}
	enc := wav.NewEncoder(buf, sampleRate, 16, numChannels, 1)
	ibuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           intSamples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(ibuf); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return buf.buf, nil
}

// SamplesFromWAV decodes a WAV container back into mono/multi-channel
// float32 samples normalized to [-1, 1], plus the sample rate and channel
// count the container advertises. This is the read-back half of the
// materialize-then-analyze step: original_source/preprocessing/audio_decoder.py
// writes the accumulated window to a WAV file and hands its path to
// librosa.load before analysis, and this mirrors that by decoding the
// in-memory WAV this package just wrote rather than reusing the
// pre-materialization sample slice.
func SamplesFromWAV(data []byte) (samples []float32, sampleRate, numChannels int, err error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode wav: %w", err)
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / math.MaxInt16
	}
	return out, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// AudioSeconds computes total_samples / (sample_rate * channels) per
// spec.md §4.5 step 4.
func AudioSeconds(totalSamples, sampleRate, numChannels int) float64 {
	if sampleRate <= 0 || numChannels <= 0 {
		return 0
	}
	return float64(totalSamples) / float64(sampleRate*numChannels)
}
