package vision

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/timeutil"
)

type fakeRecognizer struct {
	results []RecognitionResult
	calls   int
}

func (f *fakeRecognizer) Recognize(frame gocv.Mat) RecognitionResult {
	f.calls++
	if len(f.results) == 0 {
		return NotFound()
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res
}

type reportedSighting struct {
	plate      string
	confidence float64
}

type fakeReporter struct {
	reports []reportedSighting
	err     error
}

func (f *fakeReporter) ReportSighting(plate string, confidence float64) error {
	f.reports = append(f.reports, reportedSighting{plate, confidence})
	return f.err
}

type fakeSnapshots struct {
	saves []int64
	err   error
}

func (f *fakeSnapshots) Save(frame gocv.Mat, trackID int64, ts time.Time) (string, error) {
	f.saves = append(f.saves, trackID)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("captures/car_%d.jpg", trackID), nil
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		LineY:               400,
		MovementThresholdPx: 30,
		DebounceWindow:      10 * time.Second,
		TrackTTL:            30 * time.Second,
		MinPlateConfidence:  0.8,
	}
}

func det(id int64, x, y int) Detection {
	return Detection{TrackID: id, ClassID: 2, Confidence: 0.9, Box: image.Rect(x-40, y-20, x+40, y+20)}
}

func TestCrossingTriggersRecognitionAndReport(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{{Plate: "34ABC56", Confidence: 0.85, Found: true}}}
	rep := &fakeReporter{}
	snaps := &fakeSnapshots{}
	s := NewTrackingSession(testSessionConfig(), rec, snaps, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	// Track 7 above the line: no trigger possible on first sight.
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	assert.Empty(t, res.Events)
	assert.Zero(t, rec.calls)

	// Crosses to below the line with 70px net displacement.
	res = s.ProcessFrame(frame, []Detection{det(7, 320, 420)})
	require.Len(t, res.Events, 1)

	ev := res.Events[0]
	assert.Equal(t, int64(7), ev.TrackID)
	assert.Equal(t, "34ABC56", ev.Plate)
	assert.Equal(t, 0.85, ev.Confidence)
	assert.True(t, ev.Reported)
	assert.Equal(t, clock.Now(), ev.Timestamp)
	assert.Equal(t, "captures/car_7.jpg", ev.SnapshotPath)

	require.Len(t, rep.reports, 1)
	assert.Equal(t, reportedSighting{"34ABC56", 0.85}, rep.reports[0])
	assert.Equal(t, []int64{7}, snaps.saves)
	assert.True(t, s.HasTriggered(7))

	require.Len(t, res.Observations, 1)
	assert.True(t, res.Observations[0].Crossed)
	assert.True(t, res.Observations[0].MovementOK)
	assert.True(t, res.Observations[0].Triggered)
}

func TestDebounceWindowSuppressesRetrigger(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{{Plate: "34ABC56", Confidence: 0.85, Found: true}}}
	rep := &fakeReporter{}
	s := NewTrackingSession(testSessionConfig(), rec, &fakeSnapshots{}, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 420)})
	require.Len(t, res.Events, 1)

	// Another qualifying crossing just inside the window: suppressed.
	clock.Advance(9 * time.Second)
	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res = s.ProcessFrame(frame, []Detection{det(7, 320, 430)})
	assert.Empty(t, res.Events)
	assert.Equal(t, 1, rec.calls, "no recognition attempt during cooldown")

	// Past the window the track re-arms.
	clock.Advance(2 * time.Second)
	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res = s.ProcessFrame(frame, []Detection{det(7, 320, 420)})
	require.Len(t, res.Events, 1)
	assert.Len(t, rep.reports, 2)
}

func TestOCRMissLeavesTrackEligible(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{
		NotFound(),
		{Plate: "34ABC56", Confidence: 0.85, Found: true},
	}}
	rep := &fakeReporter{}
	snaps := &fakeSnapshots{}
	s := NewTrackingSession(testSessionConfig(), rec, snaps, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 420)})

	// The attempt ran (snapshot written) but produced nothing.
	assert.Empty(t, res.Events)
	assert.Equal(t, []int64{7}, snaps.saves)
	assert.False(t, s.HasTriggered(7))
	assert.Empty(t, rep.reports)

	// The very next qualifying crossing may retry; no cooldown was consumed.
	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res = s.ProcessFrame(frame, []Detection{det(7, 320, 420)})
	require.Len(t, res.Events, 1)
	assert.True(t, s.HasTriggered(7))
	assert.Len(t, snaps.saves, 2, "every attempt snapshots, success or not")
}

func TestLowConfidencePlateIsSkipped(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{{Plate: "34ABC56", Confidence: 0.5, Found: true}}}
	rep := &fakeReporter{}
	s := NewTrackingSession(testSessionConfig(), rec, &fakeSnapshots{}, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 420)})

	assert.Empty(t, res.Events)
	assert.Empty(t, rep.reports)
	assert.False(t, s.HasTriggered(7), "below-floor plate must not consume the trigger")
}

func TestReportFailureStillMarksTriggered(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{{Plate: "34ABC56", Confidence: 0.85, Found: true}}}
	rep := &fakeReporter{err: errors.New("ledger unreachable")}
	s := NewTrackingSession(testSessionConfig(), rec, &fakeSnapshots{}, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(7, 320, 350)})
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 420)})

	require.Len(t, res.Events, 1)
	assert.False(t, res.Events[0].Reported)
	assert.True(t, s.HasTriggered(7), "report failures are an I/O concern, not a tracking one")
}

func TestNoTriggerWithoutMovement(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{}
	s := NewTrackingSession(testSessionConfig(), rec, &fakeSnapshots{}, &fakeReporter{}, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	// Crosses the line but only 10px of net displacement: camera jitter.
	s.ProcessFrame(frame, []Detection{det(7, 320, 395)})
	res := s.ProcessFrame(frame, []Detection{det(7, 320, 405)})

	assert.Empty(t, res.Events)
	assert.Zero(t, rec.calls)
	require.Len(t, res.Observations, 1)
	assert.True(t, res.Observations[0].Crossed)
	assert.False(t, res.Observations[0].MovementOK)
}

func TestStaleTrackStateIsEvicted(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s := NewTrackingSession(testSessionConfig(), &fakeRecognizer{}, nil, nil, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(7, 320, 350), det(8, 100, 100)})
	assert.Equal(t, 2, s.TrackCount())

	// Track 8 disappears; after the TTL its state is dropped while the
	// still-seen track 7 is kept.
	clock.Advance(31 * time.Second)
	s.ProcessFrame(frame, []Detection{det(7, 320, 352)})
	s.ProcessFrame(frame, []Detection{det(7, 320, 354)})
	assert.Equal(t, 1, s.TrackCount())
}

func TestMultipleTracksTriggerIndependently(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &fakeRecognizer{results: []RecognitionResult{
		{Plate: "34ABC56", Confidence: 0.85, Found: true},
		{Plate: "06XYZ123", Confidence: 0.9, Found: true},
	}}
	rep := &fakeReporter{}
	s := NewTrackingSession(testSessionConfig(), rec, &fakeSnapshots{}, rep, clock)

	frame := gocv.NewMat()
	defer frame.Close()

	s.ProcessFrame(frame, []Detection{det(1, 200, 350), det(2, 500, 450)})
	res := s.ProcessFrame(frame, []Detection{det(1, 200, 420), det(2, 500, 380)})

	require.Len(t, res.Events, 2)
	assert.Len(t, rep.reports, 2)
	assert.True(t, s.HasTriggered(1))
	assert.True(t, s.HasTriggered(2))
}
