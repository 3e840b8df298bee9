package pointcloud

import (
	"github.com/montanaflynn/stats"
)

// Summary describes the depth distribution of a cloud's valid points, in millimeters.
type Summary struct {
	Points  int     `json:"points"`
	Valid   int     `json:"valid"`
	MinZ    float64 `json:"min_z_mm"`
	MaxZ    float64 `json:"max_z_mm"`
	MeanZ   float64 `json:"mean_z_mm"`
	MedianZ float64 `json:"median_z_mm"`
	StdDevZ float64 `json:"stddev_z_mm"`
}

// Summarize computes a Summary. The Z statistics are zero when the cloud has no valid point.
func Summarize(pc *PointCloud) (Summary, error) {
	s := Summary{Points: pc.Len()}
	zs := make(stats.Float64Data, 0, pc.Len())
	pc.Iterate(func(_ int, p Point3D) bool {
		zs = append(zs, float64(p.Z))
		return true
	})
	s.Valid = len(zs)
	if s.Valid == 0 {
		return s, nil
	}

	var err error
	if s.MinZ, err = zs.Min(); err != nil {
		return s, err
	}
	if s.MaxZ, err = zs.Max(); err != nil {
		return s, err
	}
	if s.MeanZ, err = zs.Mean(); err != nil {
		return s, err
	}
	if s.MedianZ, err = zs.Median(); err != nil {
		return s, err
	}
	if s.StdDevZ, err = zs.StandardDeviation(); err != nil {
		return s, err
	}
	return s, nil
}
