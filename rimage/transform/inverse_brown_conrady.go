package transform

// InverseBrownConrady undoes the Brown-Conrady model: given distorted normalized coordinates
// it solves for the undistorted ones with Newton-Raphson.
type InverseBrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewInverseBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return forward.Inverse(), nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return []float64{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

// Forward returns the distortion this model inverts.
func (ibc *InverseBrownConrady) Forward() *BrownConrady {
	if ibc == nil {
		return nil
	}
	return &BrownConrady{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

// Transform converts distorted normalized coordinates to undistorted ones, starting from the
// distorted point and refining until the forward model reproduces (xd, yd).
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	forward := ibc.Forward()

	const maxIterations = 20
	const tolerance = 1e-10

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xEst, yEst := forward.Transform(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		j00, j01, j10, j11 := ibc.jacobian(xu, yu)
		det := j00*j11 - j01*j10
		if det == 0 {
			break
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}
	return xu, yu
}

// jacobian returns d(xd, yd)/d(xu, yu) of the forward model, row-major.
func (ibc *InverseBrownConrady) jacobian(xu, yu float64) (float64, float64, float64, float64) {
	r2 := xu*xu + yu*yu
	r4 := r2 * r2
	radDist := 1 + ibc.RadialK1*r2 + ibc.RadialK2*r4 + ibc.RadialK3*r4*r2
	dRad := 2 * (ibc.RadialK1 + 2*ibc.RadialK2*r2 + 3*ibc.RadialK3*r4)

	p1, p2 := ibc.TangentialP1, ibc.TangentialP2
	j00 := radDist + xu*xu*dRad + 2*p1*yu + 6*p2*xu
	j01 := xu*yu*dRad + 2*p1*xu + 2*p2*yu
	j10 := xu*yu*dRad + 2*p2*yu + 2*p1*xu
	j11 := radDist + yu*yu*dRad + 2*p2*xu + 6*p1*yu
	return j00, j01, j10, j11
}
