package media

import "fmt"

// BlurScore computes the variance of the Laplacian over the luminance
// channel of img. Higher is sharper.
func BlurScore(img *DecodedImage) float64 {
	if img.Width < 3 || img.Height < 3 {
		return 0
	}

	luma := toLuma(img)
	lap := laplacian(luma, img.Width, img.Height)

	var sum, sumSq float64
	n := float64(len(lap))
	for _, v := range lap {
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

// ApplyQualityWarning sets img.BlurScore and, if the score is strictly
// below threshold, img.QualityWarning in the
// "blurry:score=<score>" format.
func ApplyQualityWarning(img *DecodedImage, threshold float64) {
	score := BlurScore(img)
	img.BlurScore = score
	if score < threshold {
		img.QualityWarning = fmt.Sprintf("blurry:score=%.1f", score)
	} else {
		img.QualityWarning = ""
	}
}

func toLuma(img *DecodedImage) []float64 {
	luma := make([]float64, img.Width*img.Height)
	for i := 0; i < len(luma); i++ {
		o := i * 3
		r, g, b := float64(img.Pixels[o]), float64(img.Pixels[o+1]), float64(img.Pixels[o+2])
		luma[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return luma
}

// laplacian convolves luma with the standard 4-neighbor discrete
// Laplacian kernel, replicating border pixels.
func laplacian(luma []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return luma[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := at(x, y)
			out[y*w+x] = at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*center
		}
	}
	return out
}
