package cli

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kinz-go/kinz/calibration"
	"github.com/kinz-go/kinz/device"
	"github.com/kinz-go/kinz/logging"
	"github.com/kinz-go/kinz/pointcloud"
	"github.com/kinz-go/kinz/rimage"
	"github.com/kinz-go/kinz/rimage/transform"
	"github.com/kinz-go/kinz/session"
	"github.com/kinz-go/kinz/utils"
)

var pointCloudFormats = []string{"xyz", "txt", "ply", "pcd", "las"}

// CalibrationAction prints the calibration given as argument, or the configured one.
func CalibrationAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path = cfg.CalibrationFile
	}
	calib, err := calibration.LoadFile(path)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", calib.String())
	return nil
}

// PointCloudAction converts a single depth frame, or a directory of them, to point cloud files.
func PointCloudAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	switch {
	case c.String(depthFlag) != "":
		out := c.String(outFlag)
		if out == "" {
			return errors.Errorf("--%s is required with --%s", outFlag, depthFlag)
		}
		system, err := loadSystem(cfg)
		if err != nil {
			return err
		}
		capture := &device.Capture{}
		if capture.Depth, err = rimage.ReadDepthFrame(c.String(depthFlag)); err != nil {
			return err
		}
		if colorPath := c.String(colorFlag); colorPath != "" {
			if capture.Color, err = rimage.ReadColorFrame(colorPath); err != nil {
				return err
			}
		}
		summary, err := exportCapture(system, capture, out)
		if err != nil {
			return err
		}
		printSummaries(c, []string{out}, []pointcloud.Summary{summary})
		return nil
	case c.String(depthDirFlag) != "":
		outDir := c.String(outDirFlag)
		if outDir == "" {
			return errors.Errorf("--%s is required with --%s", outDirFlag, depthDirFlag)
		}
		cfg.Device.DepthDir = c.String(depthDirFlag)
		cfg.Device.ColorDir = c.String(colorDirFlag)
		sess, err := session.Open(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		return multierr.Combine(exportCaptures(c, sess, outDir, c.String(formatFlag), logger), sess.Close(c.Context))
	default:
		return errors.Errorf("one of --%s or --%s is required", depthFlag, depthDirFlag)
	}
}

// ReplayAction replays the recorded device of the configured session and writes a point cloud per
// capture.
func ReplayAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Device.DepthDir == "" {
		return errors.New("the session config has no device.depth_dir to replay")
	}
	logger := newLogger(c, cfg)
	sess, err := session.Open(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	return multierr.Combine(exportCaptures(c, sess, c.String(outDirFlag), c.String(formatFlag), logger), sess.Close(c.Context))
}

// exportCaptures drains the session's device, converting captures in parallel while the next ones
// are read.
func exportCaptures(c *cli.Context, sess *session.Session, outDir, format string, logger logging.Logger) error {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if !slices.Contains(pointCloudFormats, format) {
		return errors.Errorf("unsupported point cloud format %q, expected one of %v", format, pointCloudFormats)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	var mu sync.Mutex
	summaries := map[int]pointcloud.Summary{}
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(utils.ParallelFactor)

	count := 0
	for ; ; count++ {
		capture, err := sess.Capture(ctx)
		if errors.Is(err, device.ErrEndOfStream) {
			break
		}
		if err != nil {
			return multierr.Combine(err, g.Wait())
		}
		i := count
		path := filepath.Join(outDir, fmt.Sprintf("%06d.%s", i, format))
		g.Go(func() error {
			return sess.Do(func(cs transform.CameraSystem) error {
				summary, err := exportCapture(cs, capture, path)
				if err != nil {
					return err
				}
				logger.Debugw("exported capture", "path", path, "valid", summary.Valid,
					"device_timestamp", capture.Depth.DeviceTimestamp)
				mu.Lock()
				summaries[i] = summary
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if count == 0 {
		warningf(c.App.ErrWriter, "no captures to export")
		return nil
	}

	names := make([]string, count)
	rows := make([]pointcloud.Summary, count)
	for i := range rows {
		names[i] = filepath.Join(outDir, fmt.Sprintf("%06d.%s", i, format))
		rows[i] = summaries[i]
	}
	printSummaries(c, names, rows)
	logger.Infow("exported captures", "count", count, "out_dir", outDir)
	return nil
}

func exportCapture(cs transform.CameraSystem, capture *device.Capture, path string) (pointcloud.Summary, error) {
	var (
		pc     *pointcloud.PointCloud
		colors []color.NRGBA
		err    error
	)
	if capture.Color != nil {
		pc, colors, err = cs.GenerateColorPointCloud(capture.Depth, capture.Color)
	} else {
		pc, err = cs.GeneratePointCloud(capture.Depth)
	}
	if err != nil {
		return pointcloud.Summary{}, err
	}
	if err := pointcloud.Export(pc, colors, path); err != nil {
		return pointcloud.Summary{}, err
	}
	return pointcloud.Summarize(pc)
}

func printSummaries(c *cli.Context, names []string, summaries []pointcloud.Summary) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Cloud", "Points", "Valid", "Min Z", "Max Z", "Mean Z", "Median Z", "StdDev Z"})
	for i, s := range summaries {
		t.AppendRow(table.Row{
			names[i], s.Points, s.Valid,
			fmt.Sprintf("%.0f", s.MinZ), fmt.Sprintf("%.0f", s.MaxZ),
			fmt.Sprintf("%.1f", s.MeanZ), fmt.Sprintf("%.1f", s.MedianZ), fmt.Sprintf("%.1f", s.StdDevZ),
		})
	}
	printf(c.App.Writer, "%s", t.Render())
}

// AlignAction resamples a depth frame into the color camera, or a color frame into the depth
// camera, and writes the result.
func AlignAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	system, err := loadSystem(cfg)
	if err != nil {
		return err
	}
	to, err := calibration.ParseSensor(c.String(toFlag))
	if err != nil {
		return err
	}
	depth, err := rimage.ReadDepthFrame(c.String(depthFlag))
	if err != nil {
		return err
	}
	out := c.String(outFlag)

	if to == calibration.Color {
		colorIn := system.Calibration().Intrinsics(calibration.Color)
		width, height := colorIn.Width, colorIn.Height
		if w := c.Int(widthFlag); w != 0 {
			width = w
		}
		if h := c.Int(heightFlag); h != 0 {
			height = h
		}
		aligned, err := system.AlignDepthToColor(depth, width, height)
		if err != nil {
			return err
		}
		if err := rimage.WriteDepthFrame(out, aligned); err != nil {
			return err
		}
		printf(c.App.Writer, "Wrote %dx%d depth frame aligned to color to %s", width, height, out)
		return nil
	}

	colorPath := c.String(colorFlag)
	if colorPath == "" {
		return errors.Errorf("--%s is required to align to depth", colorFlag)
	}
	colorFrame, err := rimage.ReadColorFrame(colorPath)
	if err != nil {
		return err
	}
	aligned, err := system.AlignColorToDepth(colorFrame, depth)
	if err != nil {
		return err
	}
	if err := rimage.WriteColorFrame(out, aligned); err != nil {
		return err
	}
	printf(c.App.Writer, "Wrote %dx%d color frame aligned to depth to %s", aligned.Width, aligned.Height, out)
	return nil
}

// MapAction maps pixels to the other sensor or to 3D, or projects 3D points into a sensor, and
// prints the results as a table.
func MapAction(c *cli.Context) error {
	pixelArgs, pointArgs := c.StringSlice(pixelFlag), c.StringSlice(pointFlag)
	if (len(pixelArgs) == 0) == (len(pointArgs) == 0) {
		return errors.Errorf("exactly one of --%s or --%s is required", pixelFlag, pointFlag)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	system, err := loadSystem(cfg)
	if err != nil {
		return err
	}
	reference, err := calibration.ParseSensor(c.String(referenceFlag))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	if len(pointArgs) > 0 {
		points, err := parsePoints(pointArgs)
		if err != nil {
			return err
		}
		target := c.String(toFlag)
		if target == "" {
			target = calibration.Depth.String()
		}
		to, err := calibration.ParseSensor(target)
		if err != nil {
			return err
		}
		pixels, err := system.ThreeDToPixel(points, to, reference)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Point (" + reference.String() + ")", "Pixel (" + to.String() + ")"})
		for i, p := range points {
			t.AppendRow(table.Row{formatPoint(p), formatPixel(pixels[i])})
		}
		printf(c.App.Writer, "%s", t.Render())
		return nil
	}

	pixels, err := parsePixels(pixelArgs)
	if err != nil {
		return err
	}
	from, err := calibration.ParseSensor(c.String(fromFlag))
	if err != nil {
		return err
	}
	if c.String(depthFlag) == "" {
		return errors.Errorf("--%s is required to map pixels", depthFlag)
	}
	depth, err := rimage.ReadDepthFrame(c.String(depthFlag))
	if err != nil {
		return err
	}

	target := c.String(toFlag)
	if target == "" || strings.EqualFold(target, "3d") {
		points, err := system.PixelTo3D(pixels, depth, from, reference)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Pixel (" + from.String() + ")", "Point (" + reference.String() + ")"})
		for i, p := range pixels {
			t.AppendRow(table.Row{formatPixel(p), formatPoint(points[i])})
		}
		printf(c.App.Writer, "%s", t.Render())
		return nil
	}

	to, err := calibration.ParseSensor(target)
	if err != nil {
		return err
	}
	var mapped []image.Point
	switch {
	case from == to:
		return errors.Errorf("pixels are already in the %s sensor", to)
	case from == calibration.Color:
		mapped, err = system.ColorToDepthPixels(pixels, depth)
	default:
		mapped, err = system.DepthToColorPixels(pixels, depth)
	}
	if err != nil {
		return err
	}
	t.AppendHeader(table.Row{"Pixel (" + from.String() + ")", "Pixel (" + to.String() + ")"})
	for i, p := range pixels {
		t.AppendRow(table.Row{formatPixel(p), formatPixel(mapped[i])})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}
