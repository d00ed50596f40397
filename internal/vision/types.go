package vision

import (
	"image"
	"time"
)

// RawDetection is a single detector hit for one frame, before track
// association has assigned it a stable identity.
type RawDetection struct {
	ClassID    int
	Confidence float64
	Box        image.Rectangle
}

// Centroid returns the center point of the detection's bounding box.
func (d RawDetection) Centroid() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// Detection is a tracked detection: a RawDetection with the stable track ID
// assigned by the tracker. The ID persists across frames for the same
// physical object.
type Detection struct {
	TrackID    int64
	ClassID    int
	Confidence float64
	Box        image.Rectangle
}

// Centroid returns the center point of the detection's bounding box.
func (d Detection) Centroid() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// OCRReading is one text hypothesis produced by the OCR engine for a region,
// with its confidence normalised to [0, 1].
type OCRReading struct {
	Text       string
	Confidence float64
}

// RecognitionResult is the outcome of a plate extraction attempt. A miss is
// the zero value: Found=false, Confidence=0. Misses are ordinary results,
// never errors.
type RecognitionResult struct {
	Plate      string
	Confidence float64
	Found      bool
}

// NotFound returns the sentinel result for a failed extraction.
func NotFound() RecognitionResult {
	return RecognitionResult{}
}

// TriggerEvent records one successful crossing trigger: the track that fired,
// when, the snapshot written at trigger time, and the extracted plate.
type TriggerEvent struct {
	TrackID      int64
	Timestamp    time.Time
	SnapshotPath string
	Plate        string
	Confidence   float64
	Reported     bool // whether the ledger accepted the sighting
}

// TrackObservation is the per-detection outcome of one processed frame,
// used by display front ends to annotate the preview.
type TrackObservation struct {
	Detection
	Crossed    bool
	MovementOK bool
	Triggered  bool // sticky triggered state of the track
}

// FrameResult is the outcome of processing one frame through a
// TrackingSession.
type FrameResult struct {
	Observations []TrackObservation
	Events       []TriggerEvent
}
