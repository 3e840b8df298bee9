package calibration

import (
	"math"

	"github.com/pkg/errors"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is the rational Brown-Conrady model with six radial and two
	// tangential coefficients used by the depth and color sensors.
	BrownConradyDistortionType = DistortionType("brown_conrady")

	undistortMaxIterations = 20
	undistortTolerance     = 1e-10
	// residual (in normalized units) above which an undistortion is treated as diverged
	undistortAcceptance = 1e-8
)

// BrownConrady is the lens distortion model. With normalized undistorted coordinates (x, y) and
// r² = x² + y², the distorted coordinates are
//
//	x_d = x·d + 2·p1·x·y + p2·(r² + 2·x²)
//	y_d = y·d + p1·(r² + 2·y²) + 2·p2·x·y
//	d   = (1 + k1·r² + k2·r⁴ + k3·r⁶) / (1 + k4·r² + k5·r⁴ + k6·r⁶)
//
// With k4..k6 zero this reduces to the classic 5 parameter Brown-Conrady model.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	RadialK4     float64 `json:"rk4"`
	RadialK5     float64 `json:"rk5"`
	RadialK6     float64 `json:"rk6"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes parameters in OpenCV order (k1, k2, p1, p2, k3, k4, k5, k6). Missing
// trailing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 8 {
		return nil, errors.Errorf("list of parameters too long, expected max 8, got %d", len(inp))
	}
	params := make([]float64, 8)
	copy(params, inp)
	return &BrownConrady{
		RadialK1:     params[0],
		RadialK2:     params[1],
		TangentialP1: params[2],
		TangentialP2: params[3],
		RadialK3:     params[4],
		RadialK4:     params[5],
		RadialK5:     params[6],
		RadialK6:     params[7],
	}, nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// CheckValid checks that every coefficient is a finite number.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return NewCalibrationError("BrownConrady shaped distortion parameters not provided")
	}
	for i, p := range bc.Parameters() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return NewCalibrationErrorf("distortion parameter %d is not finite (%v)", i, p)
		}
	}
	return nil
}

// Parameters returns the coefficients in OpenCV order: k1, k2, p1, p2, k3, k4, k5, k6.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return make([]float64, 8)
	}
	return []float64{
		bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2,
		bc.RadialK3, bc.RadialK4, bc.RadialK5, bc.RadialK6,
	}
}

// radial returns the rational radial factor d and its derivative with respect to r².
func (bc *BrownConrady) radial(r2 float64) (float64, float64) {
	num := 1 + r2*(bc.RadialK1+r2*(bc.RadialK2+r2*bc.RadialK3))
	den := 1 + r2*(bc.RadialK4+r2*(bc.RadialK5+r2*bc.RadialK6))
	dNum := bc.RadialK1 + r2*(2*bc.RadialK2+3*r2*bc.RadialK3)
	dDen := bc.RadialK4 + r2*(2*bc.RadialK5+3*r2*bc.RadialK6)
	return num / den, (dNum*den - num*dDen) / (den * den)
}

// Transform distorts the normalized undistorted point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	d, _ := bc.radial(r2)
	xd := x*d + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*d + bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y
	return xd, yd
}

// Undistort finds the normalized undistorted point that Transform maps onto (xd, yd) using
// Newton-Raphson iterations started at the distorted point. The boolean is false when the
// iteration does not converge, which happens far outside the lens' calibrated field of view.
func (bc *BrownConrady) Undistort(xd, yd float64) (float64, float64, bool) {
	if bc == nil {
		return xd, yd, true
	}

	xu, yu := xd, yd
	errX, errY := 0.0, 0.0
	for i := 0; i < undistortMaxIterations; i++ {
		r2 := xu*xu + yu*yu
		d, dr2 := bc.radial(r2)

		errX = xu*d + 2*bc.TangentialP1*xu*yu + bc.TangentialP2*(r2+2*xu*xu) - xd
		errY = yu*d + bc.TangentialP1*(r2+2*yu*yu) + 2*bc.TangentialP2*xu*yu - yd
		if errX*errX+errY*errY < undistortTolerance*undistortTolerance {
			return xu, yu, true
		}

		// Jacobian of the forward model
		dDdx := 2 * xu * dr2
		dDdy := 2 * yu * dr2
		dxdDxu := d + xu*dDdx + 2*bc.TangentialP1*yu + 6*bc.TangentialP2*xu
		dxdDyu := xu*dDdy + 2*bc.TangentialP1*xu + 2*bc.TangentialP2*yu
		dydDxu := yu*dDdx + 2*bc.TangentialP1*xu + 2*bc.TangentialP2*yu
		dydDyu := d + yu*dDdy + 6*bc.TangentialP1*yu + 2*bc.TangentialP2*xu

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 || math.IsNaN(det) {
			return xu, yu, false
		}
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	fx, fy := bc.Transform(xu, yu)
	residual := math.Hypot(fx-xd, fy-yd)
	return xu, yu, residual < undistortAcceptance
}
