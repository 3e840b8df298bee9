package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage"
)

func TestGeneratePointCloud(t *testing.T) {
	s := kinectSystem(t)

	// a padded frame with a few samples
	depth := &rimage.DepthFrame{Width: 640, Height: 576, Stride: 700, Data: make([]uint16, 700*576)}
	depth.Set(320, 288, 1000)
	depth.Set(100, 50, 2000)
	depth.Set(600, 500, 750)

	pc, err := s.GeneratePointCloud(depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Width, test.ShouldEqual, depth.Width)
	test.That(t, pc.Height, test.ShouldEqual, depth.Height)
	test.That(t, pc.Len(), test.ShouldEqual, depth.Width*depth.Height)
	test.That(t, pc.Data, test.ShouldHaveLength, 3*depth.Width*depth.Height)
	test.That(t, pc.Size(), test.ShouldEqual, 3)

	test.That(t, pc.At(320, 288), test.ShouldResemble, pointcloud.Point3D{Z: 1000})
	test.That(t, pc.At(0, 0), test.ShouldResemble, pointcloud.InvalidPoint)
	for _, px := range []image.Point{{X: 100, Y: 50}, {X: 600, Y: 500}} {
		want, ok := s.Unproject(px, depth.At(px.X, px.Y), calibration.Depth)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, pc.At(px.X, px.Y), test.ShouldResemble, want)
	}
}

func TestGeneratePointCloudFlat(t *testing.T) {
	s := kinectSystem(t)
	pc, err := s.GeneratePointCloud(flatDepthFrame(640, 576, 1000))
	test.That(t, err, test.ShouldBeNil)

	meta := pc.MetaData()
	test.That(t, meta.Size, test.ShouldBeGreaterThan, pc.Len()*9/10)
	test.That(t, meta.MinZ, test.ShouldEqual, 1000.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1000.)
	// barrel distortion spreads the edges out
	test.That(t, meta.MinX, test.ShouldBeLessThan, -320./504*1000)
	test.That(t, meta.MaxX, test.ShouldBeGreaterThan, 319./504*1000)
}

func TestGenerateColorPointCloud(t *testing.T) {
	s := identitySystem(t, 8, 6)
	depth := flatDepthFrame(8, 6, 1200)
	depth.Set(1, 1, 0)
	colorFrame := rimage.NewColorFrame(8, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			colorFrame.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 1, A: 255})
		}
	}

	pc, colors, err := s.GenerateColorPointCloud(depth, colorFrame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, colors, test.ShouldHaveLength, pc.Len())
	test.That(t, pc.At(1, 1), test.ShouldResemble, pointcloud.InvalidPoint)
	test.That(t, colors[1*8+1], test.ShouldResemble, color.NRGBA{})
	test.That(t, colors[2*8+5], test.ShouldResemble, color.NRGBA{R: 5, G: 2, B: 1, A: 255})

	_, _, err = s.GenerateColorPointCloud(depth, rimage.NewColorFrame(4, 4))
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
}

func TestColorize(t *testing.T) {
	pc := pointcloud.New(2, 2)
	pc.Set(1, 0, pointcloud.Point3D{X: 1, Y: 2, Z: 3})
	aligned := rimage.NewColorFrame(2, 2)
	aligned.Set(0, 0, color.NRGBA{R: 9, A: 255})
	aligned.Set(1, 0, color.NRGBA{G: 9, A: 255})

	colors, err := Colorize(pc, aligned)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, colors, test.ShouldResemble, []color.NRGBA{{}, {G: 9, A: 255}, {}, {}})

	_, err = Colorize(pc, rimage.NewColorFrame(3, 2))
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
}
