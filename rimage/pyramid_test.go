package rimage

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func randomGray(w, h int, seed int64) *image.Gray {
	rnd := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	rnd.Read(img.Pix)
	return img
}

func levelSizes(pyr Pyramid) []image.Point {
	sizes := make([]image.Point, 0, len(pyr))
	for _, level := range pyr {
		sizes = append(sizes, level.Bounds().Size())
	}
	return sizes
}

func TestBuildPyramid(t *testing.T) {
	img := randomGray(640, 480, 1)
	pyr, err := BuildPyramid(img, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pyr.NumLevels(), test.ShouldEqual, 4)

	expected := []image.Point{{640, 480}, {320, 240}, {160, 120}, {80, 60}}
	if diff := cmp.Diff(expected, levelSizes(pyr)); diff != "" {
		t.Fatalf("unexpected level sizes (-want +got):\n%s", diff)
	}

	// Level 0 aliases the input.
	test.That(t, pyr.Level(0), test.ShouldEqual, img)
	test.That(t, pyr.Level(4), test.ShouldBeNil)
	test.That(t, pyr.Level(-1), test.ShouldBeNil)

	blockMean := func(src *image.Gray, x, y int) uint8 {
		sum := uint16(src.GrayAt(x, y).Y) + uint16(src.GrayAt(x+1, y).Y) +
			uint16(src.GrayAt(x, y+1).Y) + uint16(src.GrayAt(x+1, y+1).Y)
		return uint8(sum / 4)
	}

	// Level 2 at (50, 30) is the mean of the level 1 block at (100..101, 60..61), and each of
	// those level 1 pixels is in turn the mean of its level 0 block.
	test.That(t, pyr[2].GrayAt(50, 30).Y, test.ShouldEqual, blockMean(pyr[1], 100, 60))
	for _, pt := range []image.Point{{100, 60}, {101, 60}, {100, 61}, {101, 61}} {
		test.That(t, pyr[1].GrayAt(pt.X, pt.Y).Y, test.ShouldEqual, blockMean(pyr[0], 2*pt.X, 2*pt.Y))
	}
	for k := 1; k < pyr.NumLevels(); k++ {
		for y := 0; y < pyr[k].Rect.Dy(); y += 7 {
			for x := 0; x < pyr[k].Rect.Dx(); x += 5 {
				test.That(t, pyr[k].GrayAt(x, y).Y, test.ShouldEqual, blockMean(pyr[k-1], 2*x, 2*y))
			}
		}
	}
}

func TestBuildPyramidSingleLevel(t *testing.T) {
	img := randomGray(33, 17, 2)
	pyr, err := BuildPyramid(img, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pyr, test.ShouldHaveLength, 1)
	test.That(t, pyr[0], test.ShouldEqual, img)
}

func TestBuildPyramidOddSizes(t *testing.T) {
	pyr, err := BuildPyramid(randomGray(33, 17, 3), 4)
	test.That(t, err, test.ShouldBeNil)
	expected := []image.Point{{33, 17}, {16, 8}, {8, 4}, {4, 2}}
	test.That(t, cmp.Diff(expected, levelSizes(pyr)), test.ShouldBeEmpty)
}

func TestBuildPyramidSubImage(t *testing.T) {
	full := randomGray(64, 64, 4)
	sub := full.SubImage(image.Rect(10, 20, 30, 40)).(*image.Gray)
	pyr, err := BuildPyramid(sub, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pyr[1].Bounds(), test.ShouldResemble, image.Rect(0, 0, 10, 10))
	sum := uint16(full.GrayAt(12, 22).Y) + uint16(full.GrayAt(13, 22).Y) +
		uint16(full.GrayAt(12, 23).Y) + uint16(full.GrayAt(13, 23).Y)
	test.That(t, pyr[1].GrayAt(1, 1).Y, test.ShouldEqual, uint8(sum/4))
}

func TestBuildPyramidErrors(t *testing.T) {
	_, err := BuildPyramid(nil, 4)
	test.That(t, err, test.ShouldBeError, ErrEmptyImage)

	var nilGray *image.Gray
	_, err = BuildPyramid(nilGray, 4)
	test.That(t, err, test.ShouldBeError, ErrEmptyImage)

	_, err = BuildPyramid(image.NewGray(image.Rect(0, 0, 0, 10)), 4)
	test.That(t, err, test.ShouldBeError, ErrEmptyImage)

	_, err = BuildPyramid(image.NewRGBA(image.Rect(0, 0, 4, 4)), 4)
	test.That(t, errors.Is(err, ErrBadPixelFormat), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "*image.RGBA")

	_, err = BuildPyramid(image.NewGray16(image.Rect(0, 0, 4, 4)), 4)
	test.That(t, errors.Is(err, ErrBadPixelFormat), test.ShouldBeTrue)

	_, err = BuildPyramid(image.NewGray(image.Rect(0, 0, 4, 4)), 0)
	test.That(t, errors.Is(err, ErrBadPyramidLevels), test.ShouldBeTrue)
}

func TestAsGrayRejectsShortBuffers(t *testing.T) {
	for _, tc := range []struct {
		name string
		img  *image.Gray
	}{
		{"nil pixels", &image.Gray{Rect: image.Rect(0, 0, 8, 8), Stride: 8}},
		{"missing rows", &image.Gray{Pix: make([]uint8, 8*7), Rect: image.Rect(0, 0, 8, 8), Stride: 8}},
		{"stride below width", &image.Gray{Pix: make([]uint8, 64), Rect: image.Rect(0, 0, 8, 8), Stride: 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AsGray(tc.img)
			test.That(t, errors.Is(err, ErrShortPixelBuffer), test.ShouldBeTrue)
			_, err = BuildPyramid(tc.img, 3)
			test.That(t, errors.Is(err, ErrShortPixelBuffer), test.ShouldBeTrue)
		})
	}

	// a sub-image touching the parent's last row has a short final row and is still accepted
	full := randomGray(16, 16, 6)
	sub := full.SubImage(image.Rect(4, 8, 12, 16)).(*image.Gray)
	test.That(t, len(sub.Pix), test.ShouldBeLessThan, sub.Stride*sub.Rect.Dy())
	gray, err := AsGray(sub)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gray, test.ShouldEqual, sub)
	pyr, err := BuildPyramid(sub, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pyr[2].Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 2))
}

func TestHalfSampleTruncates(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 0, color.Gray{Y: 1})
	src.SetGray(1, 0, color.Gray{Y: 2})
	src.SetGray(0, 1, color.Gray{Y: 2})
	src.SetGray(1, 1, color.Gray{Y: 2})
	dst := HalfSample(src)
	test.That(t, dst.Bounds(), test.ShouldResemble, image.Rect(0, 0, 1, 1))
	test.That(t, dst.GrayAt(0, 0).Y, test.ShouldEqual, uint8(1))

	test.That(t, HalfSample(randomGray(1, 1, 5)).Bounds().Empty(), test.ShouldBeTrue)
}
