package acoustic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sineWave(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestAnalyzeProducesFiniteRiskScore(t *testing.T) {
	a := New(DefaultConfig(48000), nil)
	samples := sineWave(440, 48000, 48000/2)
	result := a.Analyze(context.Background(), samples, 48000)

	require.False(t, math.IsNaN(result.RiskScore))
	require.False(t, math.IsInf(result.RiskScore, 0))
	require.Len(t, result.MFCCMean, DefaultConfig(48000).NumMFCC)
	require.False(t, result.HasEmotion)
}

func TestAnalyzeSilenceHasZeroEnergy(t *testing.T) {
	a := New(DefaultConfig(48000), nil)
	samples := make([]float32, 48000/2)
	result := a.Analyze(context.Background(), samples, 48000)

	require.InDelta(t, 0, result.Energy, 1e-9)
	require.InDelta(t, 0, result.RiskScore, 1e-9)
}

type stubEmotion struct {
	label string
	conf  float64
}

func (s stubEmotion) Classify(ctx context.Context, samples []float32, sampleRate int) (string, float64, error) {
	return s.label, s.conf, nil
}

func TestAnalyzeIncludesEmotionWhenClassifierWired(t *testing.T) {
	a := New(DefaultConfig(48000), stubEmotion{label: "calm", conf: 0.8})
	samples := sineWave(220, 48000, 48000/4)
	result := a.Analyze(context.Background(), samples, 48000)

	require.True(t, result.HasEmotion)
	require.Equal(t, "calm", result.Emotion)
	require.InDelta(t, 0.8, result.EmotionConf, 1e-9)
}

func TestMaterializeWAVWritesRIFFContainer(t *testing.T) {
	samples := sineWave(440, 16000, 1600)
	data, err := MaterializeWAV(samples, 16000, 1)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, "RIFF", string(data[0:4]))
}

func TestSamplesFromWAVRoundTripsMaterializedSamples(t *testing.T) {
	samples := sineWave(440, 16000, 1600)
	data, err := MaterializeWAV(samples, 16000, 1)
	require.NoError(t, err)

	decoded, sampleRate, numChannels, err := SamplesFromWAV(data)
	require.NoError(t, err)
	require.Equal(t, 16000, sampleRate)
	require.Equal(t, 1, numChannels)
	require.Len(t, decoded, len(samples))
	for i := range samples {
		require.InDelta(t, samples[i], decoded[i], 0.01, "sample %d drifted past int16 quantization tolerance", i)
	}
}

func TestAudioSeconds(t *testing.T) {
	require.InDelta(t, 1.0, AudioSeconds(48000, 48000, 1), 1e-9)
	require.InDelta(t, 0.5, AudioSeconds(48000, 48000, 2), 1e-9)
}
