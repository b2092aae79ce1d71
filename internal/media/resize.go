package media

// ResizeToCeiling scales img proportionally so both dimensions fit within
// maxW x maxH. It is a no-op if img already fits. Downscaling uses area
// (box-filter) interpolation: each output pixel is the average of the
// source pixels it covers, matching cv2.INTER_AREA semantics (see
// original_source/preprocessing/resizer.go's cv2.resize(..., INTER_AREA)).
//
// No example in the reference corpus ships an area-interpolation sampler
// (golang.org/x/image/draw offers CatmullRom/BiLinear/NearestNeighbor, none
// of them box-average), so this is a small hand-rolled convolution in the
// style of the teacher's own box-filter low-pass in audio resampling.
func ResizeToCeiling(img *DecodedImage, maxW, maxH int) *DecodedImage {
	if img.Width <= maxW && img.Height <= maxH {
		return img
	}

	scale := min(float64(maxW)/float64(img.Width), float64(maxH)/float64(img.Height))
	newW := max(1, int(float64(img.Width)*scale+0.5))
	newH := max(1, int(float64(img.Height)*scale+0.5))

	out := areaResize(img, newW, newH)
	return out
}

func areaResize(img *DecodedImage, newW, newH int) *DecodedImage {
	pixels := make([]byte, newW*newH*3)
	scaleX := float64(img.Width) / float64(newW)
	scaleY := float64(img.Height) / float64(newH)

	for dy := 0; dy < newH; dy++ {
		srcY0 := int(float64(dy) * scaleY)
		srcY1 := int(float64(dy+1) * scaleY)
		if srcY1 <= srcY0 {
			srcY1 = srcY0 + 1
		}
		srcY1 = min(srcY1, img.Height)

		for dx := 0; dx < newW; dx++ {
			srcX0 := int(float64(dx) * scaleX)
			srcX1 := int(float64(dx+1) * scaleX)
			if srcX1 <= srcX0 {
				srcX1 = srcX0 + 1
			}
			srcX1 = min(srcX1, img.Width)

			var sumR, sumG, sumB, count int
			for sy := srcY0; sy < srcY1; sy++ {
				rowOff := sy * img.Width * 3
				for sx := srcX0; sx < srcX1; sx++ {
					i := rowOff + sx*3
					sumR += int(img.Pixels[i])
					sumG += int(img.Pixels[i+1])
					sumB += int(img.Pixels[i+2])
					count++
				}
			}
			if count == 0 {
				count = 1
			}
			o := (dy*newW + dx) * 3
			pixels[o] = byte(sumR / count)
			pixels[o+1] = byte(sumG / count)
			pixels[o+2] = byte(sumB / count)
		}
	}

	return &DecodedImage{Width: newW, Height: newH, Pixels: pixels}
}
