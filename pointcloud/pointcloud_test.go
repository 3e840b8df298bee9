package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewPoint3D(t *testing.T) {
	p, ok := NewPoint3D(r3.Vector{X: 1.4, Y: -2.6, Z: 1000.5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, Point3D{X: 1, Y: -3, Z: 1001})
	test.That(t, p.Vector(), test.ShouldResemble, r3.Vector{X: 1, Y: -3, Z: 1001})

	for _, v := range []r3.Vector{
		{X: 0, Y: 0, Z: 40000},
		{X: -32769, Y: 0, Z: 10},
		{X: math.NaN(), Y: 0, Z: 10},
		{X: 0.2, Y: -0.3, Z: 0.1},
	} {
		p, ok := NewPoint3D(v)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, p, test.ShouldResemble, InvalidPoint)
		test.That(t, p.IsValid(), test.ShouldBeFalse)
	}

	p, ok = NewPoint3D(r3.Vector{X: 32767, Y: -32768, Z: 1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, Point3D{X: 32767, Y: -32768, Z: 1})
}

func TestPointCloudGrid(t *testing.T) {
	pc := New(3, 2)
	test.That(t, pc.Len(), test.ShouldEqual, 6)
	test.That(t, pc.Data, test.ShouldHaveLength, 18)
	test.That(t, pc.Size(), test.ShouldEqual, 0)

	pc.Set(2, 1, Point3D{X: -5, Y: 6, Z: 700})
	pc.Set(0, 0, Point3D{X: 1, Y: 2, Z: 300})
	test.That(t, pc.At(2, 1), test.ShouldResemble, Point3D{X: -5, Y: 6, Z: 700})
	test.That(t, pc.Index(5), test.ShouldResemble, Point3D{X: -5, Y: 6, Z: 700})
	test.That(t, pc.Data[15:18], test.ShouldResemble, []int16{-5, 6, 700})
	test.That(t, pc.At(1, 1).IsValid(), test.ShouldBeFalse)
	test.That(t, pc.Size(), test.ShouldEqual, 2)

	var seen []int
	pc.Iterate(func(i int, p Point3D) bool {
		seen = append(seen, i)
		return true
	})
	test.That(t, seen, test.ShouldResemble, []int{0, 5})

	seen = nil
	pc.Iterate(func(i int, p Point3D) bool {
		seen = append(seen, i)
		return false
	})
	test.That(t, seen, test.ShouldResemble, []int{0})

	meta := pc.MetaData()
	test.That(t, meta.Size, test.ShouldEqual, 2)
	test.That(t, meta.MinX, test.ShouldEqual, -5.)
	test.That(t, meta.MaxX, test.ShouldEqual, 1.)
	test.That(t, meta.MinZ, test.ShouldEqual, 300.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 700.)
}

func TestSummarize(t *testing.T) {
	pc := New(2, 2)
	s, err := Summarize(pc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, Summary{Points: 4})

	pc.Set(0, 0, Point3D{Z: 1000})
	pc.Set(1, 0, Point3D{Z: 2000})
	pc.Set(0, 1, Point3D{Z: 3000})
	s, err = Summarize(pc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Points, test.ShouldEqual, 4)
	test.That(t, s.Valid, test.ShouldEqual, 3)
	test.That(t, s.MinZ, test.ShouldEqual, 1000.)
	test.That(t, s.MaxZ, test.ShouldEqual, 3000.)
	test.That(t, s.MeanZ, test.ShouldEqual, 2000.)
	test.That(t, s.MedianZ, test.ShouldEqual, 2000.)
	test.That(t, s.StdDevZ, test.ShouldAlmostEqual, 816.496580927726, 1e-6)
}
