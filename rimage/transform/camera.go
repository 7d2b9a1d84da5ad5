// Package transform holds the camera models used to move between pixels and bearing vectors.
package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Camera is the camera-model handle a frame keeps. Pixels are in distorted image coordinates;
// undistortion happens inside the model.
type Camera interface {
	Width() int
	Height() int
	// PixelToBearing returns the unit bearing in the camera frame of the ray through px.
	PixelToBearing(px r2.Point) r3.Vector
	// BearingToPixel projects a camera frame direction or point to the image. Directions
	// behind the camera map to (-1, -1).
	BearingToPixel(f r3.Vector) r2.Point
}

// InFrame reports whether px lies inside the camera image with at least border pixels of margin.
func InFrame(cam Camera, px r2.Point, border float64) bool {
	return px.X >= border && px.Y >= border &&
		px.X < float64(cam.Width())-border && px.Y < float64(cam.Height())-border
}

// PinholeCameraModel is the model of a pinhole camera with optional Brown-Conrady distortion.
type PinholeCameraModel struct {
	Intrinsics *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion *BrownConrady            `json:"distortion_parameters,omitempty"`
}

// NewPinholeCameraModel validates the parameters and returns the camera model.
func NewPinholeCameraModel(intrinsics *PinholeCameraIntrinsics, distortion *BrownConrady) (*PinholeCameraModel, error) {
	model := &PinholeCameraModel{Intrinsics: intrinsics, Distortion: distortion}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	return model, nil
}

// CheckValid checks the intrinsics; a missing distortion model means an ideal pinhole.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return errors.New("camera model is nil")
	}
	return params.Intrinsics.CheckValid()
}

// Width returns the image width in pixels.
func (params *PinholeCameraModel) Width() int {
	return params.Intrinsics.Width
}

// Height returns the image height in pixels.
func (params *PinholeCameraModel) Height() int {
	return params.Intrinsics.Height
}

// PixelToBearing returns the unit bearing of the ray through the distorted pixel px.
func (params *PinholeCameraModel) PixelToBearing(px r2.Point) r3.Vector {
	x, y, _ := params.Intrinsics.PixelToPoint(px.X, px.Y, 1)
	if params.Distortion != nil {
		inverse := InverseBrownConrady(*params.Distortion)
		x, y = inverse.Transform(x, y)
	}
	return r3.Vector{X: x, Y: y, Z: 1}.Normalize()
}

// BearingToPixel projects f to the distorted image.
func (params *PinholeCameraModel) BearingToPixel(f r3.Vector) r2.Point {
	if f.Z <= 0 {
		return r2.Point{X: -1, Y: -1}
	}
	x, y := f.X/f.Z, f.Y/f.Z
	if params.Distortion != nil {
		x, y = params.Distortion.Transform(x, y)
	}
	u, v := params.Intrinsics.PointToPixel(x, y, 1)
	return r2.Point{X: u, Y: v}
}
