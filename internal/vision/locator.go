package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/monitoring"
)

// LocatorConfig holds the geometric filters for plate candidate regions.
type LocatorConfig struct {
	MinAspect float64 // width/height lower bound, exclusive
	MaxAspect float64 // width/height upper bound, exclusive
	MinArea   float64 // contour area lower bound, exclusive (px²)
	MaxArea   float64 // contour area upper bound, exclusive (px²)
}

// DefaultLocatorConfig returns the filter bounds tuned for a plate at typical
// gate-camera distance.
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		MinAspect: 2.0,
		MaxAspect: 6.0,
		MinArea:   1000.0,
		MaxArea:   20000.0,
	}
}

// Candidate is a cropped sub-image hypothesised to contain a plate, with the
// bounding box it was cut from. The Region Mat is owned by the caller and
// must be closed.
type Candidate struct {
	Region gocv.Mat
	Box    image.Rectangle
}

// CloseCandidates releases the region Mats of all candidates.
func CloseCandidates(candidates []Candidate) {
	for i := range candidates {
		candidates[i].Region.Close()
	}
}

// CandidateLocator proposes plate-like rectangular regions in a frame using
// edge contours filtered by aspect ratio and area.
type CandidateLocator struct {
	cfg LocatorConfig
}

// NewCandidateLocator creates a locator with the given filter bounds.
func NewCandidateLocator(cfg LocatorConfig) *CandidateLocator {
	return &CandidateLocator{cfg: cfg}
}

// FindCandidates returns cropped candidate regions in contour order, or an
// empty slice when nothing plate-like is found. Callers that get an empty
// slice must fall back to OCR over the whole frame; region proposal finding
// nothing never skips recognition.
func (l *CandidateLocator) FindCandidates(img gocv.Mat) []Candidate {
	if img.Empty() {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 100, 200)

	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var candidates []Candidate
	for i := 0; i < contours.Size(); i++ {
		cnt := contours.At(i)

		approx := gocv.ApproxPolyDP(cnt, 0.02*gocv.ArcLength(cnt, true), true)
		rect := gocv.BoundingRect(approx)
		approx.Close()

		w, h := rect.Dx(), rect.Dy()
		if h <= 0 {
			continue
		}
		aspect := float64(w) / float64(h)
		area := gocv.ContourArea(cnt)

		if aspect <= l.cfg.MinAspect || aspect >= l.cfg.MaxAspect {
			continue
		}
		if area <= l.cfg.MinArea || area >= l.cfg.MaxArea {
			continue
		}

		roi := img.Region(rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows())))
		if roi.Empty() {
			roi.Close()
			continue
		}
		candidates = append(candidates, Candidate{Region: roi.Clone(), Box: rect})
		roi.Close()
	}

	monitoring.Debugf("plate locator: %d candidate region(s)", len(candidates))
	return candidates
}
