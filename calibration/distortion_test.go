package calibration

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNewBrownConrady(t *testing.T) {
	bc, err := NewBrownConrady([]float64{0.1, 0.2, 0.01, 0.02, 0.3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bc.RadialK1, test.ShouldEqual, 0.1)
	test.That(t, bc.RadialK2, test.ShouldEqual, 0.2)
	test.That(t, bc.TangentialP1, test.ShouldEqual, 0.01)
	test.That(t, bc.TangentialP2, test.ShouldEqual, 0.02)
	test.That(t, bc.RadialK3, test.ShouldEqual, 0.3)
	test.That(t, bc.RadialK6, test.ShouldEqual, 0.)
	test.That(t, bc.Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0.01, 0.02, 0.3, 0, 0, 0})
	test.That(t, bc.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	_, err = NewBrownConrady(make([]float64, 9))
	test.That(t, err, test.ShouldNotBeNil)

	bc.RadialK4 = math.NaN()
	test.That(t, bc.CheckValid(), test.ShouldNotBeNil)

	var nilBC *BrownConrady
	test.That(t, nilBC.CheckValid(), test.ShouldNotBeNil)
	test.That(t, nilBC.Parameters(), test.ShouldHaveLength, 8)
	x, y := nilBC.Transform(0.3, -0.2)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, -0.2)
}

func TestBrownConradyNoDistortion(t *testing.T) {
	bc := &BrownConrady{}
	x, y := bc.Transform(0.25, -0.5)
	test.That(t, x, test.ShouldEqual, 0.25)
	test.That(t, y, test.ShouldEqual, -0.5)
	x, y, ok := bc.Undistort(0.25, -0.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, x, test.ShouldEqual, 0.25)
	test.That(t, y, test.ShouldEqual, -0.5)
}

func TestBrownConradyUndistortInvertsTransform(t *testing.T) {
	models := map[string]*BrownConrady{
		"rational": {
			RadialK1: 3.0, RadialK2: 1.8, RadialK3: 0.1,
			RadialK4: 3.3, RadialK5: 2.7, RadialK6: 0.5,
			TangentialP1: 0.00004, TangentialP2: -0.00005,
		},
		"classic": {
			RadialK1: 0.08, RadialK2: -0.05, RadialK3: 0.01,
			TangentialP1: 0.0005, TangentialP2: -0.0002,
		},
	}
	for name, bc := range models {
		t.Run(name, func(t *testing.T) {
			for xu := -0.8; xu <= 0.8; xu += 0.1 {
				for yu := -0.6; yu <= 0.6; yu += 0.1 {
					xd, yd := bc.Transform(xu, yu)
					x, y, ok := bc.Undistort(xd, yd)
					test.That(t, ok, test.ShouldBeTrue)
					test.That(t, x, test.ShouldAlmostEqual, xu, 1e-7)
					test.That(t, y, test.ShouldAlmostEqual, yu, 1e-7)
				}
			}
		})
	}
}

func TestBrownConradyUndistortDiverges(t *testing.T) {
	// r·d(r) has a maximum, so distorted radii beyond it have no preimage
	bc := &BrownConrady{RadialK1: -0.5}
	_, _, ok := bc.Undistort(5, 5)
	test.That(t, ok, test.ShouldBeFalse)
}
