// Package cli implements the kinz command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag      = "config"
	debugFlag       = "debug"
	calibrationFlag = "calibration"

	depthFlag     = "depth"
	colorFlag     = "color"
	outFlag       = "out"
	depthDirFlag  = "depth-dir"
	colorDirFlag  = "color-dir"
	outDirFlag    = "out-dir"
	formatFlag    = "format"
	toFlag        = "to"
	fromFlag      = "from"
	widthFlag     = "width"
	heightFlag    = "height"
	pixelFlag     = "pixel"
	pointFlag     = "point"
	referenceFlag = "reference"
)

var app = &cli.App{
	Name:            "kinz",
	Usage:           "map, align and export depth camera frames using the device calibration",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load session configuration from `FILE`",
		},
		&cli.StringFlag{
			Name:  calibrationFlag,
			Usage: "calibration blob `FILE`, overrides the configured one",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "calibration",
			Usage:     "print the intrinsics and extrinsics of both sensors",
			ArgsUsage: "[calibration file]",
			Action:    CalibrationAction,
		},
		{
			Name:  "pointcloud",
			Usage: "generate point clouds from depth frames and export them",
			Description: `A single frame is converted with --depth and --out. Whole directories are converted with
--depth-dir and --out-dir; color frames are paired with depth frames by sorted file name.
The output format follows the extension: .xyz, .txt, .ply, .pcd or .las.`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: depthFlag, Usage: "depth frame `FILE` (16-bit PNG or TIFF)"},
				&cli.StringFlag{Name: colorFlag, Usage: "color frame `FILE` to color the points with"},
				&cli.StringFlag{Name: outFlag, Usage: "output `FILE`"},
				&cli.StringFlag{Name: depthDirFlag, Usage: "directory of depth frames"},
				&cli.StringFlag{Name: colorDirFlag, Usage: "directory of color frames"},
				&cli.StringFlag{Name: outDirFlag, Usage: "directory to write point clouds to"},
				&cli.StringFlag{Name: formatFlag, Value: "xyz", Usage: "output format for --out-dir"},
			},
			Action: PointCloudAction,
		},
		{
			Name:  "align",
			Usage: "resample one sensor's frame into the other sensor's pixel grid",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: depthFlag, Required: true, Usage: "depth frame `FILE`"},
				&cli.StringFlag{Name: colorFlag, Usage: "color frame `FILE`, required with --to depth"},
				&cli.StringFlag{Name: toFlag, Value: "color", Usage: "sensor to align to, depth or color"},
				&cli.IntFlag{Name: widthFlag, Usage: "output width for --to color, the color width by default"},
				&cli.IntFlag{Name: heightFlag, Usage: "output height for --to color, the color height by default"},
				&cli.StringFlag{Name: outFlag, Required: true, Usage: "output `FILE`"},
			},
			Action: AlignAction,
		},
		{
			Name:  "map",
			Usage: "map pixels between sensors or to and from 3D",
			Description: `Pixels are given as x,y and points as x,y,z in millimeters. With --pixel the pixels of the
--from sensor are mapped to the --to target, which is a sensor or "3d". With --point the points,
given in the --reference sensor's frame, are projected into the --to sensor.`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: depthFlag, Usage: "depth frame `FILE`, required with --pixel"},
				&cli.StringSliceFlag{Name: pixelFlag, Usage: "pixel x,y; may be repeated"},
				&cli.StringSliceFlag{Name: pointFlag, Usage: "point x,y,z; may be repeated"},
				&cli.StringFlag{Name: fromFlag, Value: "depth", Usage: "sensor the pixels belong to"},
				&cli.StringFlag{Name: toFlag, Usage: "depth, color or 3d; 3d for --pixel and depth for --point by default"},
				&cli.StringFlag{Name: referenceFlag, Value: "depth", Usage: "sensor frame of the 3D points"},
			},
			Action: MapAction,
		},
		{
			Name:  "replay",
			Usage: "replay a recorded session and export a point cloud per capture",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: outDirFlag, Required: true, Usage: "directory to write point clouds to"},
				&cli.StringFlag{Name: formatFlag, Value: "ply", Usage: "output format"},
			},
			Action: ReplayAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
