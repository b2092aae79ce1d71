// Package config loads process-wide gateway configuration from the
// environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every recognized environment option (spec.md §6).
type Config struct {
	Port                  string
	MaxConcurrentSessions int
	ConfidenceThreshold   float64
	MaxFrameWidth         int
	MaxFrameHeight        int
	IdleTimeoutSec        int
	MaxFrameSizeBytes     int
	InferenceRemoteURL    string
	InferenceRemoteKey    string
	InferenceRemoteTimeout time.Duration
	InferenceLocalEnabled bool
	InferenceLocalWeights string
	BlurWarningThreshold  float64
	AudioWindowSeconds    float64
	AudioBatchSize        int
	AudioSampleRate       int
	LogLevel              string
}

// Load reads Config from the environment, applying spec.md §6 defaults.
func Load() Config {
	return Config{
		Port:                   envStr("PORT", "8000"),
		MaxConcurrentSessions:  envInt("MAX_CONCURRENT_SESSIONS", 10),
		ConfidenceThreshold:    envFloat("CONFIDENCE_THRESHOLD", 0.5),
		MaxFrameWidth:          envInt("MAX_FRAME_WIDTH", 1280),
		MaxFrameHeight:         envInt("MAX_FRAME_HEIGHT", 720),
		IdleTimeoutSec:         envInt("IDLE_TIMEOUT_SEC", 30),
		MaxFrameSizeBytes:      envInt("MAX_FRAME_SIZE_BYTES", 10*1024*1024),
		InferenceRemoteURL:     envStr("INFERENCE_REMOTE_URL", ""),
		InferenceRemoteKey:     envStr("INFERENCE_REMOTE_KEY", ""),
		InferenceRemoteTimeout: envDuration("INFERENCE_REMOTE_TIMEOUT_SEC", 10*time.Second),
		InferenceLocalEnabled:  envBool("INFERENCE_LOCAL_ENABLED", false),
		InferenceLocalWeights:  envStr("INFERENCE_LOCAL_WEIGHTS_PATH", ""),
		BlurWarningThreshold:   envFloat("BLUR_WARNING_THRESHOLD", 100.0),
		AudioWindowSeconds:     envFloat("AUDIO_WINDOW_SECONDS", 1.0),
		AudioBatchSize:         envInt("AUDIO_BATCH_SIZE", 10),
		AudioSampleRate:        envInt("AUDIO_SAMPLE_RATE", 48000),
		LogLevel:               envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

// envDuration reads an integer number of seconds from key and returns it
// as a time.Duration.
func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}
