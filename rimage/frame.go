// Package rimage holds the depth and color frame buffers handed over by the acquisition layer, with
// stride-aware access and conversions to and from the image package.
package rimage

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Timestamps of a capture. Device time counts from device start, system time is the host clock
// when the capture was read.
type Timestamps struct {
	DeviceTimestamp time.Duration
	SystemTimestamp time.Time
}

// DepthFrame is a row-major buffer of depth samples in millimeters. Stride is counted in samples
// and may exceed Width. Zero means no depth.
type DepthFrame struct {
	Width  int
	Height int
	Stride int
	Data   []uint16
	Timestamps
}

// NewDepthFrame returns an all-zero depth frame with Stride equal to width.
func NewDepthFrame(width, height int) *DepthFrame {
	return &DepthFrame{
		Width:  width,
		Height: height,
		Stride: width,
		Data:   make([]uint16, width*height),
	}
}

// CheckValid checks the size, stride and buffer length of the frame.
func (f *DepthFrame) CheckValid() error {
	if f == nil {
		return errors.New("depth frame is nil")
	}
	return checkLayout(f.Width, f.Height, f.Stride, 1, len(f.Data))
}

// Bounds returns the rectangle covered by the frame.
func (f *DepthFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Contains reports whether (x, y) is a pixel of the frame.
func (f *DepthFrame) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

// At returns the depth at (x, y).
func (f *DepthFrame) At(x, y int) uint16 {
	return f.Data[y*f.Stride+x]
}

// Set sets the depth at (x, y).
func (f *DepthFrame) Set(x, y int, depth uint16) {
	f.Data[y*f.Stride+x] = depth
}

// Row returns the Width samples of row y.
func (f *DepthFrame) Row(y int) []uint16 {
	return f.Data[y*f.Stride : y*f.Stride+f.Width]
}

// Clone returns a packed deep copy of the frame.
func (f *DepthFrame) Clone() *DepthFrame {
	out := NewDepthFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		copy(out.Row(y), f.Row(y))
	}
	out.Timestamps = f.Timestamps
	return out
}

// NearestNeighborDepth returns the depth at the pixel closest to the sub-pixel point, or false
// when that pixel is outside the frame.
func (f *DepthFrame) NearestNeighborDepth(pt r2.Point) (uint16, bool) {
	x, y := int(math.Round(pt.X)), int(math.Round(pt.Y))
	if !f.Contains(x, y) {
		return 0, false
	}
	return f.At(x, y), true
}

// ToGray16 converts the frame to a 16-bit grayscale image with the depth in millimeters as the
// gray value.
func (f *DepthFrame) ToGray16() *image.Gray16 {
	img := image.NewGray16(f.Bounds())
	for y := 0; y < f.Height; y++ {
		for x, d := range f.Row(y) {
			img.SetGray16(x, y, color.Gray16{Y: d})
		}
	}
	return img
}

// DepthFrameFromImage converts a grayscale image back to a depth frame. Only 16-bit and 8-bit
// grayscale images carry depth.
func DepthFrameFromImage(img image.Image) (*DepthFrame, error) {
	b := img.Bounds()
	f := NewDepthFrame(b.Dx(), b.Dy())
	switch gray := img.(type) {
	case *image.Gray16:
		for y := 0; y < f.Height; y++ {
			row := f.Row(y)
			for x := range row {
				row[x] = gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
	case *image.Gray:
		for y := 0; y < f.Height; y++ {
			row := f.Row(y)
			for x := range row {
				row[x] = uint16(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		return nil, errors.Errorf("cannot convert image type %T to a depth frame", img)
	}
	return f, nil
}

// ColorFrame is a row-major BGRA buffer. Stride is counted in bytes and may exceed 4*Width.
type ColorFrame struct {
	Width  int
	Height int
	Stride int
	Data   []uint8
	Timestamps
}

// NewColorFrame returns a transparent black color frame with Stride equal to 4*width.
func NewColorFrame(width, height int) *ColorFrame {
	return &ColorFrame{
		Width:  width,
		Height: height,
		Stride: 4 * width,
		Data:   make([]uint8, 4*width*height),
	}
}

// CheckValid checks the size, stride and buffer length of the frame.
func (f *ColorFrame) CheckValid() error {
	if f == nil {
		return errors.New("color frame is nil")
	}
	return checkLayout(f.Width, f.Height, f.Stride, 4, len(f.Data))
}

// Bounds returns the rectangle covered by the frame.
func (f *ColorFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Contains reports whether (x, y) is a pixel of the frame.
func (f *ColorFrame) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

// At returns the color at (x, y).
func (f *ColorFrame) At(x, y int) color.NRGBA {
	i := y*f.Stride + 4*x
	return color.NRGBA{R: f.Data[i+2], G: f.Data[i+1], B: f.Data[i], A: f.Data[i+3]}
}

// Set sets the color at (x, y).
func (f *ColorFrame) Set(x, y int, c color.NRGBA) {
	i := y*f.Stride + 4*x
	f.Data[i], f.Data[i+1], f.Data[i+2], f.Data[i+3] = c.B, c.G, c.R, c.A
}

// Pixel returns the four BGRA bytes of (x, y).
func (f *ColorFrame) Pixel(x, y int) []uint8 {
	i := y*f.Stride + 4*x
	return f.Data[i : i+4 : i+4]
}

// NearestNeighborColor returns the color at the pixel closest to the sub-pixel point, or false
// when that pixel is outside the frame.
func (f *ColorFrame) NearestNeighborColor(pt r2.Point) (color.NRGBA, bool) {
	x, y := int(math.Round(pt.X)), int(math.Round(pt.Y))
	if !f.Contains(x, y) {
		return color.NRGBA{}, false
	}
	return f.At(x, y), true
}

// ToNRGBA converts the frame to an image.NRGBA.
func (f *ColorFrame) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetNRGBA(x, y, f.At(x, y))
		}
	}
	return img
}

// ColorFrameFromImage converts any image to a BGRA color frame.
func ColorFrameFromImage(img image.Image) *ColorFrame {
	b := img.Bounds()
	f := NewColorFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c, _ := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			f.Set(x, y, c)
		}
	}
	return f
}

func checkLayout(width, height, stride, channels, length int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid frame size (%d, %d)", width, height)
	}
	if stride < width*channels {
		return errors.Errorf("stride %d is shorter than a row of %d", stride, width*channels)
	}
	if need := stride*(height-1) + width*channels; length < need {
		return errors.Errorf("frame buffer holds %d values, need %d", length, need)
	}
	return nil
}
