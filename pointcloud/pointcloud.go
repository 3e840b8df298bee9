// Package pointcloud defines the dense point cloud produced from a depth frame and the file formats
// it can be exported to.
//
// A cloud has one point per depth pixel, laid out row-major like the frame it came from, so a
// point can be looked up by the same (x, y) as its depth sample. Pixels without a valid point hold
// the all-zero point.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// Point3D is a point in millimeters in a sensor's frame. The all-zero point marks an invalid point.
type Point3D struct {
	X, Y, Z int16
}

// InvalidPoint is the sentinel for pixels that could not be unprojected.
var InvalidPoint = Point3D{}

// NewPoint3D rounds v to the nearest millimeter. The boolean is false when a coordinate is not
// finite or does not fit in an int16, in which case the invalid point is returned.
func NewPoint3D(v r3.Vector) (Point3D, bool) {
	x, okX := toInt16(v.X)
	y, okY := toInt16(v.Y)
	z, okZ := toInt16(v.Z)
	if !okX || !okY || !okZ {
		return InvalidPoint, false
	}
	p := Point3D{X: x, Y: y, Z: z}
	return p, p.IsValid()
}

func toInt16(v float64) (int16, bool) {
	r := math.Round(v)
	if math.IsNaN(r) || r < math.MinInt16 || r > math.MaxInt16 {
		return 0, false
	}
	return int16(r), true
}

// IsValid reports whether p is not the invalid sentinel.
func (p Point3D) IsValid() bool {
	return p != InvalidPoint
}

// Vector returns p as a float vector.
func (p Point3D) Vector() r3.Vector {
	return r3.Vector{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// PointCloud is a dense Width x Height grid of points stored as three int16 values per point.
type PointCloud struct {
	Width  int
	Height int
	// Data is row-major, X Y Z per point.
	Data []int16
}

// New returns a cloud of the given size with every point invalid.
func New(width, height int) *PointCloud {
	return &PointCloud{
		Width:  width,
		Height: height,
		Data:   make([]int16, 3*width*height),
	}
}

// Len returns the number of points, valid or not.
func (pc *PointCloud) Len() int {
	return pc.Width * pc.Height
}

// At returns the point at grid position (x, y).
func (pc *PointCloud) At(x, y int) Point3D {
	return pc.Index(y*pc.Width + x)
}

// Index returns the i-th point in row-major order.
func (pc *PointCloud) Index(i int) Point3D {
	d := pc.Data[3*i : 3*i+3 : 3*i+3]
	return Point3D{X: d[0], Y: d[1], Z: d[2]}
}

// Set sets the point at grid position (x, y).
func (pc *PointCloud) Set(x, y int, p Point3D) {
	i := 3 * (y*pc.Width + x)
	pc.Data[i], pc.Data[i+1], pc.Data[i+2] = p.X, p.Y, p.Z
}

// Size returns the number of valid points.
func (pc *PointCloud) Size() int {
	n := 0
	for i := 0; i < pc.Len(); i++ {
		if pc.Index(i).IsValid() {
			n++
		}
	}
	return n
}

// Iterate calls fn for each valid point in row-major order until fn returns false.
func (pc *PointCloud) Iterate(fn func(i int, p Point3D) bool) {
	for i := 0; i < pc.Len(); i++ {
		p := pc.Index(i)
		if !p.IsValid() {
			continue
		}
		if !fn(i, p) {
			return
		}
	}
}

// MetaData is data about the valid points of a cloud.
type MetaData struct {
	Size int

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns meta data for an empty cloud.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with a new point.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.Size++
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// MetaData computes the meta data of the valid points.
func (pc *PointCloud) MetaData() MetaData {
	meta := NewMetaData()
	pc.Iterate(func(_ int, p Point3D) bool {
		meta.Merge(p.Vector())
		return true
	})
	return meta
}
