package acoustic

import "math"

// mfcc computes per-frame MFCC vectors over samples and returns them, one
// vector per frame; mfccMean then takes their coefficient-wise mean,
// mirroring librosa.feature.mfcc(...).mean(axis=1)
// (original_source/audio/audio_analysis.py).
//
// No library in the reference corpus provides an FFT or a mel-filterbank
// (golang.org/x/image/draw is the closest DSP-adjacent import, for image
// resampling, not audio), so this is a small hand-rolled goertzel-free DFT:
// framed power spectrum -> triangular mel filterbank -> log -> DCT-II.
func mfcc(samples []float64, sampleRate int, cfg Config) [][]float64 {
	if len(samples) == 0 {
		return nil
	}
	frameSize := cfg.FrameSize
	hop := cfg.HopSize
	if frameSize <= 0 {
		frameSize = 1024
	}
	if hop <= 0 {
		hop = frameSize / 2
	}

	filters := melFilterbank(cfg.NumMelFilters, frameSize, sampleRate)
	window := hammingWindow(frameSize)

	var frames [][]float64
	for start := 0; start+frameSize <= len(samples); start += hop {
		frame := make([]float64, frameSize)
		copy(frame, samples[start:start+frameSize])
		for i := range frame {
			frame[i] *= window[i]
		}
		power := powerSpectrum(frame)
		melEnergies := applyFilterbank(power, filters)
		frames = append(frames, dctII(melEnergies, cfg.NumMFCC))
	}

	if len(frames) == 0 {
		frame := make([]float64, frameSize)
		copy(frame, samples)
		for i := range frame {
			if i < len(window) {
				frame[i] *= window[i]
			}
		}
		power := powerSpectrum(frame)
		melEnergies := applyFilterbank(power, filters)
		frames = append(frames, dctII(melEnergies, cfg.NumMFCC))
	}

	return frames
}

// mfccMean averages each coefficient across all frames.
func mfccMean(frames [][]float64, numMFCC int) []float64 {
	mean := make([]float64, numMFCC)
	if len(frames) == 0 {
		return mean
	}
	for _, f := range frames {
		for i := 0; i < numMFCC && i < len(f); i++ {
			mean[i] += f[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(len(frames))
	}
	return mean
}

func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// powerSpectrum computes |DFT(frame)|^2 for the first N/2+1 bins via a
// direct (non-FFT) discrete Fourier transform. Frame sizes here are small
// (tens of milliseconds of audio), so O(n^2) is acceptable.
func powerSpectrum(frame []float64) []float64 {
	n := len(frame)
	bins := n/2 + 1
	cosTable := make([]float64, n)
	sinTable := make([]float64, n)
	for i := range cosTable {
		angle := -2 * math.Pi * float64(i) / float64(n)
		cosTable[i], sinTable[i] = math.Cos(angle), math.Sin(angle)
	}
	power := make([]float64, bins)
	for k := 0; k < bins; k++ {
		var re, im float64
		idx := 0 // (k*t) mod n
		for t := 0; t < n; t++ {
			re += frame[t] * cosTable[idx]
			im += frame[t] * sinTable[idx]
			idx += k
			if idx >= n {
				idx -= n
			}
		}
		power[k] = (re*re + im*im) / float64(n)
	}
	return power
}

type melFilter struct {
	startBin, centerBin, endBin int
}

func melFilterbank(numFilters, frameSize, sampleRate int) []melFilter {
	if numFilters <= 0 {
		numFilters = 26
	}
	bins := frameSize/2 + 1
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(sampleRate) / 2)
	melPoints := make([]float64, numFilters+2)
	step := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*step
	}

	binPoints := make([]int, len(melPoints))
	for i, m := range melPoints {
		hz := melToHz(m)
		bin := int(math.Floor((float64(bins-1) * 2 * hz) / float64(sampleRate)))
		if bin < 0 {
			bin = 0
		}
		if bin >= bins {
			bin = bins - 1
		}
		binPoints[i] = bin
	}

	filters := make([]melFilter, numFilters)
	for i := 0; i < numFilters; i++ {
		filters[i] = melFilter{startBin: binPoints[i], centerBin: binPoints[i+1], endBin: binPoints[i+2]}
	}
	return filters
}

func applyFilterbank(power []float64, filters []melFilter) []float64 {
	out := make([]float64, len(filters))
	for i, f := range filters {
		var energy float64
		for b := f.startBin; b < f.centerBin; b++ {
			if b < 0 || b >= len(power) || f.centerBin == f.startBin {
				continue
			}
			weight := float64(b-f.startBin) / float64(f.centerBin-f.startBin)
			energy += power[b] * weight
		}
		for b := f.centerBin; b < f.endBin; b++ {
			if b < 0 || b >= len(power) || f.endBin == f.centerBin {
				continue
			}
			weight := float64(f.endBin-b) / float64(f.endBin-f.centerBin)
			energy += power[b] * weight
		}
		if energy <= 0 {
			energy = 1e-10
		}
		out[i] = math.Log(energy)
	}
	return out
}

// dctII applies a type-II discrete cosine transform, truncated to the
// first numCoeff outputs, mirroring how librosa derives MFCCs from
// log-mel-energies.
func dctII(logMel []float64, numCoeff int) []float64 {
	n := len(logMel)
	out := make([]float64, numCoeff)
	for k := 0; k < numCoeff; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += logMel[i] * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		out[k] = sum
	}
	return out
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// rmsEnergy computes the root-mean-square amplitude of samples, mirroring
// librosa.feature.rms averaged over the whole window.
func rmsEnergy(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
