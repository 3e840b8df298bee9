package calibration

import (
	"math"

	"github.com/kinz-go/kinz/utils"
)

// XYTable holds the normalized undistorted ray (x, y) of every pixel of a sensor, so that the 3D
// point of pixel (u, v) at depth z is (x·z, y·z, z). Pixels outside the metric radius, or where
// undistortion fails, hold NaN.
type XYTable struct {
	Width  int
	Height int
	// Data is row-major, two values per pixel.
	Data []float64
}

// At returns the ray of pixel (x, y) and whether it is valid.
func (t *XYTable) At(x, y int) (float64, float64, bool) {
	i := 2 * (y*t.Width + x)
	rx, ry := t.Data[i], t.Data[i+1]
	if math.IsNaN(rx) {
		return 0, 0, false
	}
	return rx, ry, true
}

// XYTable computes the ray table of s.
func (c *Calibration) XYTable(s Sensor) *XYTable {
	in := &c.sensor(s).Intrinsics
	table := &XYTable{
		Width:  in.Width,
		Height: in.Height,
		Data:   make([]float64, 2*in.Width*in.Height),
	}
	utils.ParallelForEachRow(in.Height, func(y int) {
		row := table.Data[2*y*in.Width : 2*(y+1)*in.Width]
		for x := 0; x < in.Width; x++ {
			ray, ok := in.PixelToRay(float64(x), float64(y))
			if !ok {
				row[2*x], row[2*x+1] = math.NaN(), math.NaN()
				continue
			}
			row[2*x], row[2*x+1] = ray.X, ray.Y
		}
	})
	return table
}
