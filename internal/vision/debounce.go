package vision

import "time"

// Debouncer gates recognition attempts per track. A track may fire when it
// has never triggered before, or when its last successful trigger is at
// least the debounce window in the past. The caller marks a track triggered
// only after a valid plate was extracted, so an OCR miss leaves the track
// eligible to retry on the next qualifying frame without consuming cooldown.
//
// Debouncer also tracks when each track was last observed so stale per-track
// state can be evicted: the upstream tracker eventually reuses nothing, but
// a long-running session would otherwise accumulate state for every vehicle
// that ever passed.
type Debouncer struct {
	window time.Duration
	ttl    time.Duration

	lastTrigger map[int64]time.Time
	triggered   map[int64]bool
	lastSeen    map[int64]time.Time
}

// NewDebouncer creates a Debouncer with the given cooldown window and
// last-seen TTL for state eviction.
func NewDebouncer(window, ttl time.Duration) *Debouncer {
	return &Debouncer{
		window:      window,
		ttl:         ttl,
		lastTrigger: make(map[int64]time.Time),
		triggered:   make(map[int64]bool),
		lastSeen:    make(map[int64]time.Time),
	}
}

// Observe records that the track was seen at now. Call once per detection
// per frame.
func (d *Debouncer) Observe(trackID int64, now time.Time) {
	d.lastSeen[trackID] = now
}

// CanTrigger reports whether the cooldown gate passes for the track: either
// it has never successfully triggered, or the debounce window has elapsed
// since its last successful trigger.
func (d *Debouncer) CanTrigger(trackID int64, now time.Time) bool {
	if !d.triggered[trackID] {
		return true
	}
	return now.Sub(d.lastTrigger[trackID]) >= d.window
}

// MarkTriggered records a successful trigger (valid plate extracted) at now.
func (d *Debouncer) MarkTriggered(trackID int64, now time.Time) {
	d.triggered[trackID] = true
	d.lastTrigger[trackID] = now
}

// HasTriggered reports whether the track has ever successfully triggered.
func (d *Debouncer) HasTriggered(trackID int64) bool {
	return d.triggered[trackID]
}

// Prune drops state for tracks not observed within the TTL and returns the
// evicted track IDs so the caller can drop its own per-track state too.
func (d *Debouncer) Prune(now time.Time) []int64 {
	var evicted []int64
	for id, seen := range d.lastSeen {
		if now.Sub(seen) > d.ttl {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		delete(d.lastSeen, id)
		delete(d.lastTrigger, id)
		delete(d.triggered, id)
	}
	return evicted
}

// TrackCount returns the number of tracks with debounce state.
func (d *Debouncer) TrackCount() int {
	return len(d.lastSeen)
}
