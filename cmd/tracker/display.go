package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/vision"
)

var (
	lineColor      = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	trackColor     = color.RGBA{B: 255, A: 255}
	triggeredColor = color.RGBA{G: 200, A: 255}
)

// previewWindow is the optional operator-facing front end. The core pipeline
// is headless; everything here is presentation only.
type previewWindow struct {
	window *gocv.Window
	lineY  int
}

func newPreviewWindow(lineY int) *previewWindow {
	return &previewWindow{
		window: gocv.NewWindow("Parking Automation - Vehicle Tracker"),
		lineY:  lineY,
	}
}

// Show draws the virtual line and per-track annotations onto the frame and
// displays it. Returns true when the operator pressed q.
func (p *previewWindow) Show(frame gocv.Mat, result vision.FrameResult) bool {
	gocv.Line(&frame, image.Pt(0, p.lineY), image.Pt(frame.Cols(), p.lineY), lineColor, 2)

	for _, obs := range result.Observations {
		c := trackColor
		if obs.Triggered {
			c = triggeredColor
		}
		gocv.Rectangle(&frame, obs.Box, c, 2)

		var status []string
		if obs.MovementOK {
			status = append(status, "move")
		}
		if obs.Crossed {
			status = append(status, "cross")
		}
		label := fmt.Sprintf("ID %d %s", obs.TrackID, strings.Join(status, "/"))
		gocv.PutText(&frame, label, image.Pt(obs.Box.Min.X, obs.Box.Min.Y-10),
			gocv.FontHersheySimplex, 0.5, c, 1)
	}

	p.window.IMShow(frame)
	return p.window.WaitKey(1) == 'q'
}

func (p *previewWindow) Close() {
	p.window.Close()
}
