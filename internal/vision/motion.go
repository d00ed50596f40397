package vision

import (
	"image"
	"math"
)

// HistoryLimit is the number of recent centroids kept per track. The movement
// filter measures net displacement across this window, so the limit also
// bounds how far back "recent movement" looks.
const HistoryLimit = 8

// MotionModel keeps bounded centroid history per track and answers the two
// motion predicates the trigger logic needs: did the track cross the virtual
// line between its last two observations, and has it moved far enough across
// its recent history to be trusted.
type MotionModel struct {
	history      map[int64][]image.Point
	lastPosition map[int64]image.Point
}

// NewMotionModel creates an empty motion model.
func NewMotionModel() *MotionModel {
	return &MotionModel{
		history:      make(map[int64][]image.Point),
		lastPosition: make(map[int64]image.Point),
	}
}

// Update appends centroid to the track's history, evicting the oldest entry
// beyond HistoryLimit, and returns the previous centroid. ok is false on the
// first observation of a track.
func (m *MotionModel) Update(trackID int64, centroid image.Point) (prev image.Point, ok bool) {
	h := append(m.history[trackID], centroid)
	if len(h) > HistoryLimit {
		h = h[len(h)-HistoryLimit:]
	}
	m.history[trackID] = h

	prev, ok = m.lastPosition[trackID]
	m.lastPosition[trackID] = centroid
	return prev, ok
}

// CrossedLine reports whether the segment prev→cur straddles the horizontal
// line at lineY. Side is defined as y < lineY. A track seen for the first
// time has no previous point and cannot cross.
func CrossedLine(prev image.Point, hasPrev bool, cur image.Point, lineY int) bool {
	if !hasPrev {
		return false
	}
	prevAbove := prev.Y < lineY
	curAbove := cur.Y < lineY
	return prevAbove != curAbove
}

// HasSufficientMovement reports whether the net displacement between the
// oldest and newest stored centroid is at least threshold pixels. Net
// displacement, not path length: a vehicle jittering near the line without
// net progress is rejected. Fewer than two points is always insufficient.
func (m *MotionModel) HasSufficientMovement(trackID int64, threshold float64) bool {
	h := m.history[trackID]
	if len(h) < 2 {
		return false
	}
	oldest, newest := h[0], h[len(h)-1]
	dist := math.Hypot(float64(newest.X-oldest.X), float64(newest.Y-oldest.Y))
	return dist >= threshold
}

// History returns a copy of the stored centroid history for a track.
func (m *MotionModel) History(trackID int64) []image.Point {
	h := m.history[trackID]
	if h == nil {
		return nil
	}
	out := make([]image.Point, len(h))
	copy(out, h)
	return out
}

// Remove drops all stored state for a track.
func (m *MotionModel) Remove(trackID int64) {
	delete(m.history, trackID)
	delete(m.lastPosition, trackID)
}

// TrackCount returns the number of tracks with stored history.
func (m *MotionModel) TrackCount() int {
	return len(m.history)
}
