package transform

import (
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage"
	"github.com/kinz-go/kinz/utils"
)

// GeneratePointCloud unprojects every pixel of the depth frame into the depth sensor's frame. The
// cloud has the frame's shape; pixels with zero depth, or outside the metric radius, hold the
// invalid point.
func (s *DepthColorSystem) GeneratePointCloud(depth *rimage.DepthFrame) (*pointcloud.PointCloud, error) {
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	pc := pointcloud.New(depth.Width, depth.Height)
	utils.ParallelForEachRow(depth.Height, func(y int) {
		for x, d := range depth.Row(y) {
			if d == 0 {
				continue
			}
			rx, ry, ok := s.depthTable.At(x, y)
			if !ok {
				continue
			}
			z := float64(d)
			if p, ok := pointcloud.NewPoint3D(r3.Vector{X: rx * z, Y: ry * z, Z: z}); ok {
				pc.Set(x, y, p)
			}
		}
	})
	return pc, nil
}

// Colorize pairs every point of the cloud with the pixel at the same grid position of a color frame
// already aligned to the depth frame. Invalid points get the zero color.
func Colorize(cloud *pointcloud.PointCloud, aligned *rimage.ColorFrame) ([]color.NRGBA, error) {
	if err := aligned.CheckValid(); err != nil {
		return nil, NewInvalidInputError(err.Error())
	}
	if aligned.Width != cloud.Width || aligned.Height != cloud.Height {
		return nil, NewInvalidInputErrorf("aligned color frame is %dx%d, point cloud is %dx%d",
			aligned.Width, aligned.Height, cloud.Width, cloud.Height)
	}
	colors := make([]color.NRGBA, cloud.Len())
	cloud.Iterate(func(i int, _ pointcloud.Point3D) bool {
		colors[i] = aligned.At(i%cloud.Width, i/cloud.Width)
		return true
	})
	return colors, nil
}

// GenerateColorPointCloud generates the depth frame's point cloud and colors it by aligning the
// color frame to the depth frame.
func (s *DepthColorSystem) GenerateColorPointCloud(
	depth *rimage.DepthFrame,
	colorFrame *rimage.ColorFrame,
) (*pointcloud.PointCloud, []color.NRGBA, error) {
	pc, err := s.GeneratePointCloud(depth)
	if err != nil {
		return nil, nil, err
	}
	aligned, err := s.AlignColorToDepth(colorFrame, depth)
	if err != nil {
		return nil, nil, err
	}
	colors, err := Colorize(pc, aligned)
	if err != nil {
		return nil, nil, err
	}
	return pc, colors, nil
}
