package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage"
)

// maxSearchSteps bounds the number of samples taken along a color pixel's ray.
const maxSearchSteps = 4096

func (s *DepthColorSystem) checkPixels(pixels []image.Point, sensor calibration.Sensor) error {
	in := s.intrinsics(sensor)
	for i, p := range pixels {
		if !in.InBounds(p.X, p.Y) {
			return NewInvalidInputErrorf("%s pixel %d at (%d, %d) is outside [0, %d) x [0, %d)",
				sensor, i, p.X, p.Y, in.Width, in.Height)
		}
	}
	return nil
}

// ColorToDepthPixels maps each color pixel to the depth pixel that sees the same surface, or to
// UnmappedPixel when no valid depth sample lies under it.
//
// The depth is not known up front, so the ray of the color pixel is walked from the minimum to the
// maximum search depth. Every depth pixel the walk visits that has a valid sample is mapped back
// into the color image with its own depth, and the one landing closest to the queried color pixel
// wins; ties go to the pixel visited first, which is the nearest one. A winner further away than one
// depth pixel's footprint in the color image is rejected.
func (s *DepthColorSystem) ColorToDepthPixels(colorPixels []image.Point, depth *rimage.DepthFrame) ([]image.Point, error) {
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	if err := s.checkPixels(colorPixels, calibration.Color); err != nil {
		return nil, err
	}
	out := make([]image.Point, len(colorPixels))
	for i, cp := range colorPixels {
		dp, _, ok := s.colorToDepthPixel(cp, depth)
		if !ok {
			out[i] = UnmappedPixel
			continue
		}
		out[i] = dp
	}
	return out, nil
}

// colorPixelFootprint is the size, in color pixels, of one depth pixel seen by the color camera.
func (s *DepthColorSystem) colorPixelFootprint() float64 {
	return math.Max(1, math.Max(s.color.Fx/s.depth.Fx, s.color.Fy/s.depth.Fy))
}

// colorToDepthPixel returns the depth pixel under the color pixel cp and the point it sees, in
// the depth frame.
func (s *DepthColorSystem) colorToDepthPixel(cp image.Point, depth *rimage.DepthFrame) (image.Point, r3.Vector, bool) {
	ray, ok := s.color.PixelToRay(float64(cp.X), float64(cp.Y))
	if !ok {
		return UnmappedPixel, r3.Vector{}, false
	}
	pointAt := func(z float64) r3.Vector {
		return s.colorToDepth.TransformPoint(r3.Vector{X: ray.X * z, Y: ray.Y * z, Z: z})
	}

	// sample evenly in inverse depth, which is close to evenly along the epipolar line
	steps := maxSearchSteps / 4
	near, okNear := s.depth.PointToPixel(pointAt(s.minSearchDepth))
	far, okFar := s.depth.PointToPixel(pointAt(s.maxSearchDepth))
	if okNear && okFar {
		length := math.Max(math.Abs(far.X-near.X), math.Abs(far.Y-near.Y))
		steps = int(math.Min(maxSearchSteps, math.Ceil(2*length)+2))
	}

	target := r2.Point{X: float64(cp.X), Y: float64(cp.Y)}
	invNear := 1 / s.minSearchDepth
	invFar := 1 / s.maxSearchDepth
	best := UnmappedPixel
	var bestPoint r3.Vector
	bestDist := math.Inf(1)
	last := UnmappedPixel
	for i := 0; i < steps; i++ {
		z := 1 / (invNear + (invFar-invNear)*float64(i)/float64(steps-1))
		dp, ok := s.Project(pointAt(z), calibration.Depth)
		if !ok || dp == last {
			continue
		}
		last = dp

		d := depth.At(dp.X, dp.Y)
		if d == 0 {
			continue
		}
		rx, ry, ok := s.depthTable.At(dp.X, dp.Y)
		if !ok {
			continue
		}
		seen := r3.Vector{X: rx * float64(d), Y: ry * float64(d), Z: float64(d)}
		back, ok := s.color.PointToPixel(s.depthToColor.TransformPoint(seen))
		if !ok {
			continue
		}
		if dist := back.Sub(target).Norm(); dist < bestDist {
			best, bestPoint, bestDist = dp, seen, dist
		}
	}
	if bestDist > s.colorPixelFootprint() {
		return UnmappedPixel, r3.Vector{}, false
	}
	return best, bestPoint, true
}

// DepthToColorPixels maps each depth pixel, at its own depth sample, into the color image.
// Pixels without depth, or that the color camera does not see, map to UnmappedPixel.
func (s *DepthColorSystem) DepthToColorPixels(depthPixels []image.Point, depth *rimage.DepthFrame) ([]image.Point, error) {
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	if err := s.checkPixels(depthPixels, calibration.Depth); err != nil {
		return nil, err
	}
	out := make([]image.Point, len(depthPixels))
	for i, dp := range depthPixels {
		out[i] = s.depthPixelToColor(dp, depth)
	}
	return out, nil
}

func (s *DepthColorSystem) depthPixelToColor(dp image.Point, depth *rimage.DepthFrame) image.Point {
	d := depth.At(dp.X, dp.Y)
	if d == 0 {
		return UnmappedPixel
	}
	rx, ry, ok := s.depthTable.At(dp.X, dp.Y)
	if !ok {
		return UnmappedPixel
	}
	p := s.depthToColor.TransformPoint(r3.Vector{X: rx * float64(d), Y: ry * float64(d), Z: float64(d)})
	cp, _ := s.Project(p, calibration.Color)
	return cp
}

// PixelTo3D unprojects pixels of sensor using the depth frame and returns the points in the
// reference sensor's frame. Depth pixels use their own sample; color pixels use the depth found
// under them by ColorToDepthPixels. Pixels without depth give the invalid point.
func (s *DepthColorSystem) PixelTo3D(
	pixels []image.Point,
	depth *rimage.DepthFrame,
	sensor, reference calibration.Sensor,
) ([]pointcloud.Point3D, error) {
	if err := checkSensor(sensor); err != nil {
		return nil, err
	}
	if err := checkSensor(reference); err != nil {
		return nil, err
	}
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	if err := s.checkPixels(pixels, sensor); err != nil {
		return nil, err
	}
	out := make([]pointcloud.Point3D, len(pixels))
	for i, px := range pixels {
		v, ok := s.pixelTo3D(px, depth, sensor)
		if !ok {
			out[i] = pointcloud.InvalidPoint
			continue
		}
		out[i], _ = pointcloud.NewPoint3D(s.TransformPoint(v, sensor, reference))
	}
	return out, nil
}

// pixelTo3D returns the point seen by px in sensor's own frame.
func (s *DepthColorSystem) pixelTo3D(px image.Point, depth *rimage.DepthFrame, sensor calibration.Sensor) (r3.Vector, bool) {
	if sensor == calibration.Depth {
		d := depth.At(px.X, px.Y)
		if d == 0 {
			return r3.Vector{}, false
		}
		return s.depth.PixelToPoint(float64(px.X), float64(px.Y), float64(d))
	}
	_, seen, ok := s.colorToDepthPixel(px, depth)
	if !ok {
		return r3.Vector{}, false
	}
	z := s.depthToColor.TransformPoint(seen).Z
	return s.color.PixelToPoint(float64(px.X), float64(px.Y), z)
}

// ThreeDToPixel takes points in the reference sensor's frame into sensor's frame and projects
// them into its image. Invalid points and points the sensor does not see map to UnmappedPixel.
func (s *DepthColorSystem) ThreeDToPixel(
	points []pointcloud.Point3D,
	sensor, reference calibration.Sensor,
) ([]image.Point, error) {
	if err := checkSensor(sensor); err != nil {
		return nil, err
	}
	if err := checkSensor(reference); err != nil {
		return nil, err
	}
	out := make([]image.Point, len(points))
	for i, p := range points {
		if !p.IsValid() {
			out[i] = UnmappedPixel
			continue
		}
		out[i], _ = s.Project(s.TransformPoint(p.Vector(), reference, sensor), sensor)
	}
	return out, nil
}

func checkSensor(sensor calibration.Sensor) error {
	if sensor != calibration.Depth && sensor != calibration.Color {
		return NewInvalidInputErrorf("unknown sensor %d", int(sensor))
	}
	return nil
}

func referenceSensor(sensor calibration.Sensor, depthReference bool) calibration.Sensor {
	if depthReference {
		return calibration.Depth
	}
	return sensor
}

// ColorTo3D unprojects color pixels. The points are in the depth frame when depthReference is set,
// otherwise in the color frame.
func (s *DepthColorSystem) ColorTo3D(pixels []image.Point, depth *rimage.DepthFrame, depthReference bool) ([]pointcloud.Point3D, error) {
	return s.PixelTo3D(pixels, depth, calibration.Color, referenceSensor(calibration.Color, depthReference))
}

// DepthTo3D unprojects depth pixels. The points are in the depth frame when depthReference is set,
// otherwise in the color frame.
func (s *DepthColorSystem) DepthTo3D(pixels []image.Point, depth *rimage.DepthFrame, depthReference bool) ([]pointcloud.Point3D, error) {
	ref := calibration.Color
	if depthReference {
		ref = calibration.Depth
	}
	return s.PixelTo3D(pixels, depth, calibration.Depth, ref)
}

// ThreeDToDepth projects points into the depth image. The points are read in the depth frame when
// depthReference is set, otherwise in the color frame.
func (s *DepthColorSystem) ThreeDToDepth(points []pointcloud.Point3D, depthReference bool) ([]image.Point, error) {
	ref := calibration.Color
	if depthReference {
		ref = calibration.Depth
	}
	return s.ThreeDToPixel(points, calibration.Depth, ref)
}

// ThreeDToColor projects points into the color image. The points are read in the depth frame when
// depthReference is set, otherwise in the color frame.
func (s *DepthColorSystem) ThreeDToColor(points []pointcloud.Point3D, depthReference bool) ([]image.Point, error) {
	return s.ThreeDToPixel(points, calibration.Color, referenceSensor(calibration.Color, depthReference))
}
