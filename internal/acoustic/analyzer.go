package acoustic

import (
	"context"

	"github.com/vitalscan/gateway/internal/workerpool"
)

// EmotionClassifier is the injected, out-of-scope collaborator that scores
// an accumulated window for a dominant emotion label.
type EmotionClassifier interface {
	Classify(ctx context.Context, samples []float32, sampleRate int) (label string, confidence float64, err error)
}

// Analyzer computes the risk_score heuristic over an accumulated audio
// window, and optionally an emotion label when a classifier is wired in.
// It holds no per-session state: callers own window accumulation, and every
// session sharing an Analyzer instance shares its worker pool.
type Analyzer struct {
	cfg     Config
	emotion EmotionClassifier
	pool    *workerpool.Pool
}

// New builds an Analyzer. emotion may be nil to skip emotion classification
// entirely (Result.HasEmotion will be false).
func New(cfg Config, emotion EmotionClassifier) *Analyzer {
	return &Analyzer{cfg: cfg, emotion: emotion, pool: workerpool.New("acoustic_analysis", 0)}
}

// Analyze off-loads the CPU-bound MFCC/energy computation (and optional
// emotion classification) to the shared worker pool rather than running it
// inline on the caller's per-session consumer goroutine, per spec.md §5.
// samples is the window's PCM, already concatenated by the caller at a
// uniform sample rate and mono (spec.md §4.5 step 1); Analyze computes MFCC
// mean, RMS energy, and the risk_score = mfcc_mean * energy heuristic.
func (a *Analyzer) Analyze(ctx context.Context, samples []float32, sampleRate int) Result {
	var result Result
	if err := a.pool.Do(ctx, func() {
		result = a.analyzeSync(ctx, samples, sampleRate)
	}); err != nil {
		return Result{}
	}
	return result
}

func (a *Analyzer) analyzeSync(ctx context.Context, samples []float32, sampleRate int) Result {
	cfg := a.cfg
	if cfg.SampleRate == 0 {
		cfg = DefaultConfig(sampleRate)
	}

	f64 := make([]float64, len(samples))
	for i, s := range samples {
		f64[i] = float64(s)
	}

	frames := mfcc(f64, sampleRate, cfg)
	mean := mfccMean(frames, cfg.NumMFCC)
	energy := rmsEnergy(f64)

	var coeffMean float64
	for _, c := range mean {
		coeffMean += c
	}
	if len(mean) > 0 {
		coeffMean /= float64(len(mean))
	}

	result := Result{
		MFCCMean:  mean,
		Energy:    energy,
		RiskScore: coeffMean * energy,
	}

	if a.emotion != nil {
		if label, conf, err := a.emotion.Classify(ctx, samples, sampleRate); err == nil {
			result.Emotion = label
			result.EmotionConf = conf
			result.HasEmotion = true
		}
	}

	return result
}
