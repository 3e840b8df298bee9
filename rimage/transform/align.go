package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/rimage"
	"github.com/kinz-go/kinz/utils"
)

// AlignDepthToColor renders the depth frame as seen by the color camera, in an outWidth x
// outHeight image covering the color camera's full field of view. Every depth sample is moved into
// the color frame and written, with its new distance to the color camera, at the nearest output
// pixel. Pixels nothing lands on are zero. When several samples land on the same pixel the last
// one in the depth frame's raster order wins.
func (s *DepthColorSystem) AlignDepthToColor(depth *rimage.DepthFrame, outWidth, outHeight int) (*rimage.DepthFrame, error) {
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	if outWidth <= 0 || outHeight <= 0 {
		return nil, NewInvalidInputErrorf("invalid output size %dx%d", outWidth, outHeight)
	}
	scaleX := float64(outWidth) / float64(s.color.Width)
	scaleY := float64(outHeight) / float64(s.color.Height)

	// the projection runs in parallel, the scatter in raster order
	n := depth.Width * depth.Height
	dest := make([]int32, n)
	values := make([]uint16, n)
	utils.ParallelForEachRow(depth.Height, func(y int) {
		for x, d := range depth.Row(y) {
			i := y*depth.Width + x
			dest[i] = -1
			if d == 0 {
				continue
			}
			rx, ry, ok := s.depthTable.At(x, y)
			if !ok {
				continue
			}
			z := float64(d)
			p := s.depthToColor.TransformPoint(r3.Vector{X: rx * z, Y: ry * z, Z: z})
			if zc := math.Round(p.Z); zc <= 0 || zc > math.MaxUint16 {
				continue
			}
			px, ok := s.color.PointToPixel(p)
			if !ok {
				continue
			}
			out := roundPixel(r2.Point{X: (px.X+0.5)*scaleX - 0.5, Y: (px.Y+0.5)*scaleY - 0.5})
			if out.X < 0 || out.Y < 0 || out.X >= outWidth || out.Y >= outHeight {
				continue
			}
			dest[i] = int32(out.Y*outWidth + out.X)
			values[i] = uint16(math.Round(p.Z))
		}
	})

	aligned := rimage.NewDepthFrame(outWidth, outHeight)
	aligned.Timestamps = depth.Timestamps
	for i, di := range dest {
		if di < 0 {
			continue
		}
		aligned.Set(int(di)%outWidth, int(di)/outWidth, values[i])
	}
	return aligned, nil
}

// AlignColorToDepth renders the color frame as seen by the depth camera: every depth pixel with a
// valid sample takes the color of the nearest color pixel its 3D point projects to. Other pixels
// stay zero, including those the color camera does not see.
func (s *DepthColorSystem) AlignColorToDepth(colorFrame *rimage.ColorFrame, depth *rimage.DepthFrame) (*rimage.ColorFrame, error) {
	if err := s.checkColorFrame(colorFrame); err != nil {
		return nil, err
	}
	if err := s.checkDepthFrame(depth); err != nil {
		return nil, err
	}
	aligned := rimage.NewColorFrame(depth.Width, depth.Height)
	aligned.Timestamps = colorFrame.Timestamps
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
			px, ok := s.ProjectFloat(
				s.TransformPoint(r3.Vector{X: rx * z, Y: ry * z, Z: z}, calibration.Depth, calibration.Color),
				calibration.Color,
			)
			if !ok {
				continue
			}
			if c, ok := colorFrame.NearestNeighborColor(px); ok {
				aligned.Set(x, y, c)
			}
		}
	})
	return aligned, nil
}
