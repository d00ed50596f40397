package vision

import (
	"image"
	"math"
	"sort"
)

// TrackerConfig holds configuration parameters for the centroid tracker.
type TrackerConfig struct {
	MaxTracks      int     // Maximum number of concurrent tracks
	MaxMisses      int     // Consecutive missed frames before a track is dropped
	GatingDistance float64 // Maximum centroid distance (px) for association
}

// DefaultTrackerConfig returns default tracker configuration, tuned for a
// gate camera at roughly 15-30 fps.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxTracks:      64,
		MaxMisses:      10,
		GatingDistance: 120.0,
	}
}

type trackedBox struct {
	centroid image.Point
	misses   int
}

// CentroidTracker assigns stable track IDs to per-frame detections using
// gated nearest-centroid association. Detections that match no existing
// track within the gating distance start new tracks; tracks missing for
// MaxMisses consecutive frames are dropped. There is no motion prediction:
// at gate-camera frame rates, consecutive centroids of the same vehicle sit
// well inside the gate.
type CentroidTracker struct {
	tracks map[int64]*trackedBox
	nextID int64
	cfg    TrackerConfig
}

// NewCentroidTracker creates a tracker with the specified configuration.
func NewCentroidTracker(cfg TrackerConfig) *CentroidTracker {
	return &CentroidTracker{
		tracks: make(map[int64]*trackedBox),
		nextID: 1,
		cfg:    cfg,
	}
}

// Assign associates the frame's detections with existing tracks and returns
// them with stable track IDs, in input order. This is the per-frame entry
// point: call once per frame with every vehicle detection, including frames
// with none (misses still need counting).
func (t *CentroidTracker) Assign(detections []RawDetection) []Detection {
	// Greedy nearest-neighbour: visit detections in confidence order so the
	// strongest detection claims the contested track.
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Confidence > detections[order[b]].Confidence
	})

	assigned := make([]int64, len(detections))
	matched := make(map[int64]bool, len(t.tracks))

	for _, di := range order {
		c := detections[di].Centroid()
		bestID := int64(0)
		bestDist := t.cfg.GatingDistance

		for id, trk := range t.tracks {
			if matched[id] {
				continue
			}
			dist := math.Hypot(float64(c.X-trk.centroid.X), float64(c.Y-trk.centroid.Y))
			if dist < bestDist {
				bestDist = dist
				bestID = id
			}
		}

		if bestID != 0 {
			trk := t.tracks[bestID]
			trk.centroid = c
			trk.misses = 0
			matched[bestID] = true
			assigned[di] = bestID
		}
	}

	// Unmatched tracks accumulate misses and are eventually dropped.
	for id, trk := range t.tracks {
		if !matched[id] {
			trk.misses++
			if trk.misses > t.cfg.MaxMisses {
				delete(t.tracks, id)
			}
		}
	}

	// Unmatched detections start new tracks.
	for di := range detections {
		if assigned[di] != 0 {
			continue
		}
		if len(t.tracks) >= t.cfg.MaxTracks {
			continue
		}
		id := t.nextID
		t.nextID++
		t.tracks[id] = &trackedBox{centroid: detections[di].Centroid()}
		assigned[di] = id
	}

	out := make([]Detection, 0, len(detections))
	for di, raw := range detections {
		if assigned[di] == 0 {
			continue // over MaxTracks, detection dropped this frame
		}
		out = append(out, Detection{
			TrackID:    assigned[di],
			ClassID:    raw.ClassID,
			Confidence: raw.Confidence,
			Box:        raw.Box,
		})
	}
	return out
}

// ActiveTrackCount returns the number of currently live tracks.
func (t *CentroidTracker) ActiveTrackCount() int {
	return len(t.tracks)
}
