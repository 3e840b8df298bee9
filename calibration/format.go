package calibration

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// String prints a table with one row per sensor: size, focal length, principal point, distortion
// and the pose relative to the depth frame.
func (c *Calibration) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Sensor", "Size", "Focal", "Principal", "Distortion", "Metric Radius", "Rotation", "Translation (mm)"})
	for _, s := range []Sensor{Depth, Color} {
		sc := c.sensor(s)
		in := sc.Intrinsics
		r := sc.Extrinsics.RotationMatrix
		tr := sc.Extrinsics.TranslationVector
		t.AppendRow([]interface{}{
			s.String(),
			fmt.Sprintf("%dx%d", in.Width, in.Height),
			fmt.Sprintf("%.3f, %.3f", in.Fx, in.Fy),
			fmt.Sprintf("%.3f, %.3f", in.Ppx, in.Ppy),
			fmt.Sprintf("%.5g", in.Distortion.Parameters()),
			fmt.Sprintf("%.3f", in.MetricRadius),
			fmt.Sprintf("[%.4f %.4f %.4f; %.4f %.4f %.4f; %.4f %.4f %.4f]", r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], r[8]),
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", tr[0], tr[1], tr[2]),
		})
	}
	return t.Render()
}
