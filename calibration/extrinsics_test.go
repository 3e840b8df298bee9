package calibration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// rotationAboutAxis builds a rotation matrix with Rodrigues' formula.
func rotationAboutAxis(axis r3.Vector, theta float64) []float64 {
	a := axis.Normalize()
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return []float64{
		c + a.X*a.X*v, a.X*a.Y*v - a.Z*s, a.X*a.Z*v + a.Y*s,
		a.Y*a.X*v + a.Z*s, c + a.Y*a.Y*v, a.Y*a.Z*v - a.X*s,
		a.Z*a.X*v - a.Y*s, a.Z*a.Y*v + a.X*s, c + a.Z*a.Z*v,
	}
}

func TestExtrinsicsTransformPoint(t *testing.T) {
	ext := Extrinsics{
		RotationMatrix:    []float64{0, -1, 0, 1, 0, 0, 0, 0, 1},
		TranslationVector: []float64{10, 20, 30},
	}
	test.That(t, ext.CheckValid(), test.ShouldBeNil)
	p := ext.TransformPointToPoint(1, 2, 3)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 8, Y: 21, Z: 33})
	test.That(t, ext.TransformPoint(r3.Vector{X: 1, Y: 2, Z: 3}), test.ShouldResemble, p)

	id := IdentityExtrinsics()
	test.That(t, id.TransformPoint(r3.Vector{X: -4, Y: 5, Z: 6}), test.ShouldResemble, r3.Vector{X: -4, Y: 5, Z: 6})
}

func TestExtrinsicsInverse(t *testing.T) {
	ext := Extrinsics{
		RotationMatrix:    rotationAboutAxis(r3.Vector{X: 0.3, Y: -1, Z: 0.2}, 0.4),
		TranslationVector: []float64{-32.1, -2.04, 3.9},
	}
	test.That(t, ext.CheckValid(), test.ShouldBeNil)
	inv := ext.Inverse()
	test.That(t, inv.CheckValid(), test.ShouldBeNil)

	for _, p := range []r3.Vector{{}, {X: 100, Y: -200, Z: 1500}, {X: -3000, Y: 25, Z: 8000}} {
		there := ext.TransformPoint(p)
		back := inv.TransformPoint(there)
		test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-9)
		test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-9)
		test.That(t, back.Z, test.ShouldAlmostEqual, p.Z, 1e-9)
	}

	// composing with the inverse gives the identity
	id := ext.Compose(inv)
	test.That(t, mat.EqualApprox(id.Rotation(), IdentityExtrinsics().Rotation(), 1e-12), test.ShouldBeTrue)
	for _, v := range id.TranslationVector {
		test.That(t, v, test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestExtrinsicsCheckValid(t *testing.T) {
	test.That(t, Extrinsics{RotationMatrix: make([]float64, 8), TranslationVector: make([]float64, 3)}.CheckValid(),
		test.ShouldNotBeNil)
	test.That(t, Extrinsics{RotationMatrix: IdentityExtrinsics().RotationMatrix}.CheckValid(), test.ShouldNotBeNil)

	scaled := Extrinsics{RotationMatrix: []float64{2, 0, 0, 0, 2, 0, 0, 0, 2}, TranslationVector: []float64{0, 0, 0}}
	err := scaled.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "orthonormal")

	reflection := Extrinsics{RotationMatrix: []float64{-1, 0, 0, 0, 1, 0, 0, 0, 1}, TranslationVector: []float64{0, 0, 0}}
	test.That(t, reflection.CheckValid(), test.ShouldNotBeNil)

	nan := IdentityExtrinsics()
	nan.TranslationVector[1] = math.NaN()
	test.That(t, nan.CheckValid(), test.ShouldNotBeNil)
}

func TestExtrinsicsPose(t *testing.T) {
	ext := Extrinsics{
		RotationMatrix:    []float64{0, -1, 0, 1, 0, 0, 0, 0, 1},
		TranslationVector: []float64{10, 20, 30},
	}
	test.That(t, ext.Pose().RawMatrix().Data, test.ShouldResemble, []float64{
		0, -1, 0, 10,
		1, 0, 0, 20,
		0, 0, 1, 30,
		0, 0, 0, 1,
	})
	rows, cols := ext.Translation().Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 1)

	// matrices are copies
	ext.Rotation().Set(0, 0, 42)
	test.That(t, ext.RotationMatrix[0], test.ShouldEqual, 0.)
}
