package calibration

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const rotationTolerance = 1e-3

// Extrinsics holds the rigid transform that takes points from one sensor's frame into another's:
// p' = R·p + T. The rotation is 3x3 row-major, the translation is in millimeters.
type Extrinsics struct {
	RotationMatrix    []float64 `json:"rotation"`
	TranslationVector []float64 `json:"translation_mm"`
}

// IdentityExtrinsics returns the transform that leaves every point in place.
func IdentityExtrinsics() Extrinsics {
	return Extrinsics{
		RotationMatrix:    []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		TranslationVector: []float64{0, 0, 0},
	}
}

// CheckValid checks the shape of the transform and that the rotation is a proper rotation.
func (e Extrinsics) CheckValid() error {
	if len(e.RotationMatrix) != 9 {
		return NewCalibrationErrorf("rotation matrix needs 9 values, got %d", len(e.RotationMatrix))
	}
	if len(e.TranslationVector) != 3 {
		return NewCalibrationErrorf("translation vector needs 3 values, got %d", len(e.TranslationVector))
	}
	for _, v := range append(append([]float64{}, e.RotationMatrix...), e.TranslationVector...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewCalibrationError("extrinsics contain a non-finite value")
		}
	}
	r := mat.NewDense(3, 3, append([]float64{}, e.RotationMatrix...))
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if !mat.EqualApprox(&rrt, identity, rotationTolerance) {
		return NewCalibrationError("rotation matrix is not orthonormal")
	}
	if det := mat.Det(r); math.Abs(det-1) > rotationTolerance {
		return NewCalibrationErrorf("rotation matrix determinant is %v, not 1", det)
	}
	return nil
}

// TransformPointToPoint applies the transform to the point (x, y, z).
func (e Extrinsics) TransformPointToPoint(x, y, z float64) r3.Vector {
	r := e.RotationMatrix
	t := e.TranslationVector
	return r3.Vector{
		X: r[0]*x + r[1]*y + r[2]*z + t[0],
		Y: r[3]*x + r[4]*y + r[5]*z + t[1],
		Z: r[6]*x + r[7]*y + r[8]*z + t[2],
	}
}

// TransformPoint applies the transform to p.
func (e Extrinsics) TransformPoint(p r3.Vector) r3.Vector {
	return e.TransformPointToPoint(p.X, p.Y, p.Z)
}

// Inverse returns the transform going the other way: Rᵗ and -Rᵗ·T.
func (e Extrinsics) Inverse() Extrinsics {
	r := e.RotationMatrix
	t := e.TranslationVector
	rt := []float64{
		r[0], r[3], r[6],
		r[1], r[4], r[7],
		r[2], r[5], r[8],
	}
	return Extrinsics{
		RotationMatrix: rt,
		TranslationVector: []float64{
			-(rt[0]*t[0] + rt[1]*t[1] + rt[2]*t[2]),
			-(rt[3]*t[0] + rt[4]*t[1] + rt[5]*t[2]),
			-(rt[6]*t[0] + rt[7]*t[1] + rt[8]*t[2]),
		},
	}
}

// Compose returns the transform that applies other first and then e.
func (e Extrinsics) Compose(other Extrinsics) Extrinsics {
	a := mat.NewDense(3, 3, append([]float64{}, e.RotationMatrix...))
	b := mat.NewDense(3, 3, append([]float64{}, other.RotationMatrix...))
	var ab mat.Dense
	ab.Mul(a, b)
	t := e.TransformPointToPoint(other.TranslationVector[0], other.TranslationVector[1], other.TranslationVector[2])
	return Extrinsics{
		RotationMatrix:    ab.RawMatrix().Data,
		TranslationVector: []float64{t.X, t.Y, t.Z},
	}
}

// clone returns a deep copy so callers can never reach the stored slices.
func (e Extrinsics) clone() Extrinsics {
	return Extrinsics{
		RotationMatrix:    append([]float64{}, e.RotationMatrix...),
		TranslationVector: append([]float64{}, e.TranslationVector...),
	}
}

// Rotation returns the rotation as a freshly allocated 3x3 matrix.
func (e Extrinsics) Rotation() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64{}, e.RotationMatrix...))
}

// Translation returns the translation as a freshly allocated 3x1 column vector.
func (e Extrinsics) Translation() *mat.Dense {
	return mat.NewDense(3, 1, append([]float64{}, e.TranslationVector...))
}

// Pose packs the transform into the 4x4 homogeneous matrix [R|T; 0 0 0 1].
func (e Extrinsics) Pose() *mat.Dense {
	pose := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pose.Set(i, j, e.RotationMatrix[3*i+j])
		}
		pose.Set(i, 3, e.TranslationVector[i])
	}
	pose.Set(3, 3, 1)
	return pose
}
