// Package rimage holds the pixel-level helpers the visual map depends on: gray image
// validation, half-sample image pyramids and bilinear patch sampling.
package rimage

import (
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyImage is returned when an image is nil or has no pixels.
	ErrEmptyImage = errors.New("provided image is empty")
	// ErrBadPixelFormat is returned when an image is not single channel 8-bit.
	ErrBadPixelFormat = errors.New("provided image is not 8-bit grayscale")
	// ErrBadPyramidLevels is returned when a pyramid is requested with fewer than one level.
	ErrBadPyramidLevels = errors.New("pyramid must have at least one level")
	// ErrShortPixelBuffer is returned when a gray image's pixel slice cannot hold its bounds.
	ErrShortPixelBuffer = errors.New("image pixel buffer is smaller than its bounds")
)

// Pyramid is a multi-resolution stack of gray images. Level 0 is the original image and every
// following level is the half-sampled previous one. Levels must not be mutated once built.
type Pyramid []*image.Gray

// AsGray checks that img is a non-empty 8-bit single channel image and returns it as such.
func AsGray(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	if gray, ok := img.(*image.Gray); ok {
		if gray == nil || gray.Rect.Empty() {
			return nil, ErrEmptyImage
		}
		// the last row may end early, as it does for sub-images
		w, h := gray.Rect.Dx(), gray.Rect.Dy()
		if gray.Stride < w || len(gray.Pix) < (h-1)*gray.Stride+w {
			return nil, errors.Wrapf(ErrShortPixelBuffer, "%d bytes with stride %d for %dx%d",
				len(gray.Pix), gray.Stride, w, h)
		}
		return gray, nil
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return nil, errors.Wrapf(ErrBadPixelFormat, "got %T", img)
}

// BuildPyramid returns a pyramid of n levels for img. Level 0 aliases img.
func BuildPyramid(img image.Image, n int) (Pyramid, error) {
	gray, err := AsGray(img)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.Wrapf(ErrBadPyramidLevels, "got %d", n)
	}
	pyr := make(Pyramid, n)
	pyr[0] = gray
	for i := 1; i < n; i++ {
		pyr[i] = HalfSample(pyr[i-1])
	}
	return pyr, nil
}

// HalfSample returns a new image of half the width and height of src (rounded down) where each
// pixel is the truncated mean of the matching 2x2 block of src. The result starts at (0, 0).
func HalfSample(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx()/2, bounds.Dy()/2
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		top := src.PixOffset(bounds.Min.X, bounds.Min.Y+2*y)
		bottom := top + src.Stride
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range row {
			i := 2 * x
			sum := uint16(src.Pix[top+i]) + uint16(src.Pix[top+i+1]) +
				uint16(src.Pix[bottom+i]) + uint16(src.Pix[bottom+i+1])
			row[x] = uint8(sum / 4)
		}
	}
	return dst
}

// NumLevels returns the number of levels in the pyramid.
func (pyr Pyramid) NumLevels() int {
	return len(pyr)
}

// Level returns the image at the given level, or nil when the level does not exist.
func (pyr Pyramid) Level(level int) *image.Gray {
	if level < 0 || level >= len(pyr) {
		return nil
	}
	return pyr[level]
}
