// Package acoustic scores accumulated audio windows for an MFCC/energy
// based "risk" heuristic and, optionally, speech emotion.
package acoustic

// Sample is a single decoded PCM audio frame item pulled off the audio
// buffer: mono float32 samples at a fixed rate, as produced by the track
// decoder (an out-of-scope collaborator).
type Sample struct {
	PCM        []float32
	SampleRate int
}

// Result is the outcome of analyzing one accumulated window.
type Result struct {
	MFCCMean    []float64
	Energy      float64
	RiskScore   float64
	Emotion     string
	EmotionConf float64
	HasEmotion  bool
}

// Config parameterizes the Analyzer.
type Config struct {
	SampleRate   int
	NumMFCC      int
	FrameSize    int
	HopSize      int
	NumMelFilters int
}

// DefaultConfig matches spec.md §4.5's default 48kHz mono assumption with a
// conventional 13-coefficient MFCC and a 10ms hop. The frame length is 25ms
// rounded up to the next power of two samples (2048 samples, ~43ms, at
// 48kHz).
func DefaultConfig(sampleRate int) Config {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return Config{
		SampleRate:    sampleRate,
		NumMFCC:       13,
		FrameSize:     nextPow2(sampleRate / 40), // 25ms, rounded up to a power of two
		HopSize:       sampleRate / 100,          // ~10ms
		NumMelFilters: 26,
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
