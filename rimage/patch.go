package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// InterpolateGray returns the bilinear interpolation of img at pt, in the image's own
// coordinates. It returns false when the 2x2 neighbourhood of pt leaves the image.
func InterpolateGray(img *image.Gray, pt r2.Point) (float64, bool) {
	bounds := img.Bounds()
	fx, fy := math.Floor(pt.X), math.Floor(pt.Y)
	x0, y0 := int(fx), int(fy)
	if x0 < bounds.Min.X || y0 < bounds.Min.Y || x0+1 >= bounds.Max.X || y0+1 >= bounds.Max.Y {
		return 0, false
	}
	dx, dy := pt.X-fx, pt.Y-fy

	i := img.PixOffset(x0, y0)
	tl := float64(img.Pix[i])
	tr := float64(img.Pix[i+1])
	bl := float64(img.Pix[i+img.Stride])
	br := float64(img.Pix[i+img.Stride+1])

	top := tl + dx*(tr-tl)
	bottom := bl + dx*(br-bl)
	return top + dy*(bottom-top), true
}

// PatchArea returns the number of samples in a square patch of the given half size.
func PatchArea(halfSize int) int {
	side := 2*halfSize + 1
	return side * side
}

// ExtractPatch samples the square patch of side 2*halfSize+1 centred on center, row-major,
// into dst (grown if needed) and returns it. It returns false if any sample leaves the image.
func ExtractPatch(img *image.Gray, center r2.Point, halfSize int, dst []float64) ([]float64, bool) {
	if halfSize < 0 {
		return dst[:0], false
	}
	area := PatchArea(halfSize)
	if cap(dst) < area {
		dst = make([]float64, area)
	}
	dst = dst[:area]

	k := 0
	for v := -halfSize; v <= halfSize; v++ {
		for u := -halfSize; u <= halfSize; u++ {
			val, ok := InterpolateGray(img, r2.Point{X: center.X + float64(u), Y: center.Y + float64(v)})
			if !ok {
				return dst[:0], false
			}
			dst[k] = val
			k++
		}
	}
	return dst, true
}
