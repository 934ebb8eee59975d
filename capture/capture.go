// Package capture provides frame sources for a tracking session.
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned once a finite source has no more frames.
// Any other CaptureFrame error is transient and the caller may retry.
var ErrEndOfStream = errors.New("end of stream")

// Source produces full-size BGR frames. The caller owns and closes each Mat.
type Source interface {
	CaptureFrame() (gocv.Mat, error)
	Close() error
}

// Screen grabs one display.
type Screen struct {
	display int
	bounds  image.Rectangle
}

// NewScreen returns a source for the display with the given index.
func NewScreen(display int) (*Screen, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return nil, fmt.Errorf("display %d out of range, %d active", display, n)
	}
	return &Screen{display: display, bounds: screenshot.GetDisplayBounds(display)}, nil
}

func (s *Screen) Bounds() image.Rectangle {
	return s.bounds
}

func (s *Screen) CaptureFrame() (gocv.Mat, error) {
	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("capturing display %d: %w", s.display, err)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("converting display %d: %w", s.display, err)
	}
	return mat, nil
}

func (s *Screen) Close() error {
	return nil
}

// Video reads frames from a video file or a capture device. Interval frames
// are skipped between every returned frame, so a 60 fps recording with an
// interval of 59 yields one frame per second of footage.
type Video struct {
	name     string
	video    *gocv.VideoCapture
	interval int
}

// OpenVideo opens a file path, URL or numeric device id.
func OpenVideo(name string, interval int) (*Video, error) {
	var device interface{} = name
	if id, err := strconv.Atoi(name); err == nil {
		device = id
	}

	video, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening video %s: %w", name, err)
	}
	if interval < 0 {
		interval = 0
	}
	return &Video{name: name, video: video, interval: interval}, nil
}

// FPS reports the stream's nominal frame rate, or 0 if unknown
func (v *Video) FPS() float64 {
	return v.video.Get(gocv.VideoCaptureFPS)
}

func (v *Video) CaptureFrame() (gocv.Mat, error) {
	frame := gocv.NewMat()
	skipped := 0
	for {
		if ok := v.video.Read(&frame); !ok {
			frame.Close()
			return gocv.NewMat(), fmt.Errorf("%s: %w", v.name, ErrEndOfStream)
		}
		if frame.Empty() {
			continue
		}
		if skipped == v.interval {
			return frame, nil
		}
		skipped++
	}
}

func (v *Video) Close() error {
	return v.video.Close()
}
