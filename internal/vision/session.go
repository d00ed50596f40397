package vision

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/monitoring"
	"github.com/bunyaminoter/parkingAutomation/internal/timeutil"
)

// Recognizer extracts a plate from a full frame. Implemented by Engine;
// faked in tests.
type Recognizer interface {
	Recognize(frame gocv.Mat) RecognitionResult
}

// Reporter hands a recognised sighting to the external ledger. Failures are
// the reporter's own concern to describe; the session only logs them.
type Reporter interface {
	ReportSighting(plate string, confidence float64) error
}

// SessionConfig holds the trigger-side tuning of one tracking session.
type SessionConfig struct {
	LineY               int
	MovementThresholdPx float64
	DebounceWindow      time.Duration
	TrackTTL            time.Duration
	MinPlateConfidence  float64
}

// TrackingSession owns every piece of per-track state for one camera: the
// motion model, the trigger debouncer, and the recognition dependencies.
// All methods must be called from a single goroutine; one session per
// camera, never shared.
type TrackingSession struct {
	cfg SessionConfig

	motion   *MotionModel
	debounce *Debouncer

	recognizer Recognizer
	snapshots  SnapshotWriter
	reporter   Reporter
	clock      timeutil.Clock
}

// NewTrackingSession wires a session from its dependencies. snapshots and
// reporter may be nil, in which case the corresponding side effect is
// skipped (useful in tests and replay tools). A nil clock uses real time.
func NewTrackingSession(cfg SessionConfig, recognizer Recognizer, snapshots SnapshotWriter, reporter Reporter, clock timeutil.Clock) *TrackingSession {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &TrackingSession{
		cfg:        cfg,
		motion:     NewMotionModel(),
		debounce:   NewDebouncer(cfg.DebounceWindow, cfg.TrackTTL),
		recognizer: recognizer,
		snapshots:  snapshots,
		reporter:   reporter,
		clock:      clock,
	}
}

// ProcessFrame advances the session by one frame. Detections are processed
// in the order the tracker returned them; a detection that crosses the
// virtual line with sufficient recent movement and a passed cooldown gate
// fires a recognition attempt. The returned result carries per-detection
// annotations for display front ends plus any trigger events that produced
// a valid plate.
//
// Recognition and reporting failures never propagate: they are logged and
// the session stays consistent (an OCR miss does not mark the track
// triggered, so it may retry on a later qualifying frame).
func (s *TrackingSession) ProcessFrame(frame gocv.Mat, detections []Detection) FrameResult {
	now := s.clock.Now()
	result := FrameResult{Observations: make([]TrackObservation, 0, len(detections))}

	for _, det := range detections {
		s.debounce.Observe(det.TrackID, now)

		centroid := det.Centroid()
		prev, hasPrev := s.motion.Update(det.TrackID, centroid)

		crossed := CrossedLine(prev, hasPrev, centroid, s.cfg.LineY)
		movementOK := s.motion.HasSufficientMovement(det.TrackID, s.cfg.MovementThresholdPx)

		if crossed && movementOK && s.debounce.CanTrigger(det.TrackID, now) {
			monitoring.Logf("triggering track=%d at (%d, %d)", det.TrackID, centroid.X, centroid.Y)
			if ev := s.handleTrigger(frame, det.TrackID, now); ev != nil {
				result.Events = append(result.Events, *ev)
			}
		}

		result.Observations = append(result.Observations, TrackObservation{
			Detection:  det,
			Crossed:    crossed,
			MovementOK: movementOK,
			Triggered:  s.debounce.HasTriggered(det.TrackID),
		})
	}

	// Evict state for tracks the detector stopped reporting.
	for _, id := range s.debounce.Prune(now) {
		s.motion.Remove(id)
	}

	return result
}

// handleTrigger runs one recognition attempt for a crossing track. The
// snapshot is written regardless of the OCR outcome; the track is marked
// triggered, and the cooldown consumed, only when a valid plate above the
// confidence floor came out.
func (s *TrackingSession) handleTrigger(frame gocv.Mat, trackID int64, now time.Time) *TriggerEvent {
	var snapshotPath string
	if s.snapshots != nil {
		path, err := s.snapshots.Save(frame, trackID, now)
		if err != nil {
			monitoring.Logf("snapshot failed for track=%d: %v", trackID, err)
		} else {
			snapshotPath = path
			monitoring.Debugf("saved trigger frame to %s", path)
		}
	}

	res := s.recognizer.Recognize(frame)
	if !res.Found || res.Confidence < s.cfg.MinPlateConfidence {
		plate := res.Plate
		if plate == "" {
			plate = "UNKNOWN"
		}
		monitoring.Logf("skipped posting for track=%d; plate=%s confidence=%.2f", trackID, plate, res.Confidence)
		return nil
	}

	ev := &TriggerEvent{
		TrackID:      trackID,
		Timestamp:    now,
		SnapshotPath: snapshotPath,
		Plate:        res.Plate,
		Confidence:   res.Confidence,
	}

	if s.reporter != nil {
		if err := s.reporter.ReportSighting(res.Plate, res.Confidence); err != nil {
			// Report failures are an I/O boundary concern; the trigger
			// still counts.
			monitoring.Logf("report failed for track=%d plate=%s: %v", trackID, res.Plate, err)
		} else {
			ev.Reported = true
		}
	}

	s.debounce.MarkTriggered(trackID, now)
	monitoring.Logf("trigger complete track=%d plate=%s (conf=%.2f)", trackID, res.Plate, res.Confidence)
	return ev
}

// HasTriggered reports whether the track has successfully triggered at least
// once in this session.
func (s *TrackingSession) HasTriggered(trackID int64) bool {
	return s.debounce.HasTriggered(trackID)
}

// TrackCount returns the number of tracks with live session state.
func (s *TrackingSession) TrackCount() int {
	return s.debounce.TrackCount()
}
