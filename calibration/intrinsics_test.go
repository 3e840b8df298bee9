package calibration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestIntrinsicsCheckValid(t *testing.T) {
	var nilIntrinsics *Intrinsics
	test.That(t, nilIntrinsics.CheckValid(), test.ShouldBeError, NewCalibrationError("pointer to Intrinsics is nil"))

	in := &Intrinsics{Width: 640, Height: 576, Fx: 504, Fy: 504, Ppx: 320, Ppy: 288}
	test.That(t, in.CheckValid(), test.ShouldBeNil)

	bad := *in
	bad.Width = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = *in
	bad.Fy = -1
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = *in
	bad.Ppx = math.Inf(1)
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = *in
	bad.MetricRadius = -2
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = *in
	bad.Distortion = &BrownConrady{RadialK1: math.NaN()}
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)
}

func TestPixelToPointCenter(t *testing.T) {
	in := &Intrinsics{Width: 640, Height: 576, Fx: 504, Fy: 504, Ppx: 320, Ppy: 288}
	p, ok := in.PixelToPoint(320, 288, 1000)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0)
	test.That(t, p.Z, test.ShouldEqual, 1000.)

	px, ok := in.PointToPixel(p)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, px.X, test.ShouldAlmostEqual, 320)
	test.That(t, px.Y, test.ShouldAlmostEqual, 288)
}

func TestPixelToPointDistorted(t *testing.T) {
	in := &Intrinsics{
		Width: 640, Height: 576, Fx: 504, Fy: 504, Ppx: 320, Ppy: 288,
		Distortion: &BrownConrady{
			RadialK1: 3.0, RadialK2: 1.8, RadialK3: 0.1,
			RadialK4: 3.3, RadialK5: 2.7, RadialK6: 0.5,
			TangentialP1: 0.00004, TangentialP2: -0.00005,
		},
		MetricRadius: 1.74,
	}
	for _, px := range [][2]float64{{0, 0}, {639, 575}, {100, 500}, {320, 288}, {600, 20}} {
		p, ok := in.PixelToPoint(px[0], px[1], 1500)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p.Z, test.ShouldEqual, 1500.)
		back, ok := in.PointToPixel(p)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, back.X, test.ShouldAlmostEqual, px[0], 1e-4)
		test.That(t, back.Y, test.ShouldAlmostEqual, px[1], 1e-4)
	}
}

func TestPointToPixelRejects(t *testing.T) {
	in := &Intrinsics{Width: 640, Height: 576, Fx: 504, Fy: 504, Ppx: 320, Ppy: 288, MetricRadius: 1}

	_, ok := in.PointToPixel(r3.Vector{X: 10, Y: 10, Z: 0})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = in.PointToPixel(r3.Vector{X: 10, Y: 10, Z: -100})
	test.That(t, ok, test.ShouldBeFalse)
	// normalized radius 2 is past the metric radius
	_, ok = in.PointToPixel(r3.Vector{X: 2000, Y: 0, Z: 1000})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = in.PixelToRay(320+2*504, 288)
	test.That(t, ok, test.ShouldBeFalse)

	// out of image bounds is still a valid projection
	px, ok := in.PointToPixel(r3.Vector{X: 900, Y: 0, Z: 1000})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, px.X, test.ShouldAlmostEqual, 320+0.9*504)
	test.That(t, in.InBounds(int(px.X), 288), test.ShouldBeFalse)
}

func TestInBounds(t *testing.T) {
	in := &Intrinsics{Width: 4, Height: 3}
	test.That(t, in.InBounds(0, 0), test.ShouldBeTrue)
	test.That(t, in.InBounds(3, 2), test.ShouldBeTrue)
	test.That(t, in.InBounds(4, 0), test.ShouldBeFalse)
	test.That(t, in.InBounds(0, 3), test.ShouldBeFalse)
	test.That(t, in.InBounds(-1, 0), test.ShouldBeFalse)
	test.That(t, in.InBounds(0, -1), test.ShouldBeFalse)
}

func TestCameraMatrix(t *testing.T) {
	in := &Intrinsics{Width: 640, Height: 576, Fx: 504, Fy: 505, Ppx: 320, Ppy: 288}
	k := in.CameraMatrix(false)
	r, c := k.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 3)
	test.That(t, k.RawMatrix().Data, test.ShouldResemble, []float64{504, 0, 320, 0, 505, 288, 0, 0, 1})

	ext := in.CameraMatrix(true)
	r, c = ext.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 4)
	test.That(t, ext.RawMatrix().Data, test.ShouldResemble, []float64{504, 0, 320, 0, 0, 505, 288, 0, 0, 0, 1, 0})
}
