package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/monitoring"
)

// Engine is the plate extraction pipeline: locate candidate regions, OCR
// each (falling back to the whole frame when none are found), pool every
// reading from every region, and pick the best-confidence valid plate.
type Engine struct {
	reader       OCRReader
	locator      *CandidateLocator
	upscaleFloor int // regions narrower than this are upscaled 2x before OCR
}

// NewEngine creates a plate extraction engine. upscaleFloor is the minimum
// region width in pixels below which regions are doubled before OCR; small
// or distant plates read poorly at native resolution.
func NewEngine(reader OCRReader, locator *CandidateLocator, upscaleFloor int) *Engine {
	return &Engine{
		reader:       reader,
		locator:      locator,
		upscaleFloor: upscaleFloor,
	}
}

// Recognize extracts the best plate string from the frame. It never returns
// an error: decode problems, empty OCR output, and all-rejected readings all
// resolve to the not-found sentinel.
func (e *Engine) Recognize(img gocv.Mat) RecognitionResult {
	if img.Empty() {
		return NotFound()
	}

	candidates := e.locator.FindCandidates(img)
	defer CloseCandidates(candidates)

	regions := make([]gocv.Mat, 0, len(candidates))
	for _, c := range candidates {
		regions = append(regions, c.Region)
	}
	if len(regions) == 0 {
		// Recognition is never skipped just because region proposal came
		// up empty: OCR the whole frame.
		regions = append(regions, img)
	}

	var pooled []OCRReading
	for _, region := range regions {
		prepared := e.prepareRegion(region)
		readings, err := e.reader.ReadRegion(prepared)
		prepared.Close()
		if err != nil {
			monitoring.Debugf("OCR region failed: %v", err)
			continue
		}
		pooled = append(pooled, readings...)
	}

	monitoring.Debugf("OCR pooled %d reading(s) from %d region(s)", len(pooled), len(regions))
	return SelectBestReading(pooled)
}

// RecognizeBytes decodes an encoded image (JPEG/PNG) and extracts a plate
// from it. Decode failure resolves to the not-found sentinel.
func (e *Engine) RecognizeBytes(content []byte) RecognitionResult {
	img, err := gocv.IMDecode(content, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return NotFound()
	}
	defer img.Close()
	return e.Recognize(img)
}

// prepareRegion converts the region to grayscale and upscales narrow regions
// 2x with linear interpolation. Returns a new Mat the caller must close.
func (e *Engine) prepareRegion(region gocv.Mat) gocv.Mat {
	var gray gocv.Mat
	if region.Channels() > 1 {
		gray = gocv.NewMat()
		gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	} else {
		gray = region.Clone()
	}

	if gray.Cols() >= e.upscaleFloor {
		return gray
	}

	upscaled := gocv.NewMat()
	gocv.Resize(gray, &upscaled, image.Pt(gray.Cols()*2, gray.Rows()*2), 0, 0, gocv.InterpolationLinear)
	gray.Close()
	return upscaled
}
