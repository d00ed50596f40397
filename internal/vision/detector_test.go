package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testDetector() *YOLODetector {
	return &YOLODetector{
		confThreshold: 0.35,
		nmsThreshold:  0.45,
		classFilter:   map[int]bool{2: true, 3: true, 5: true, 7: true},
	}
}

// v8Output builds a (1, 4+nc, count) tensor in the YOLOv8 export layout:
// attribute rows, detection columns, no objectness row.
func v8Output(t *testing.T, numClasses, count int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizes([]int{1, 4 + numClasses, count}, gocv.MatTypeCV32F)
	t.Cleanup(func() { m.Close() })
	return m
}

func setV8Detection(m *gocv.Mat, col int, cx, cy, w, h float32, classScores map[int]float32) {
	m.SetFloatAt3(0, 0, col, cx)
	m.SetFloatAt3(0, 1, col, cy)
	m.SetFloatAt3(0, 2, col, w)
	m.SetFloatAt3(0, 3, col, h)
	for class, score := range classScores {
		m.SetFloatAt3(0, 4+class, col, score)
	}
}

func TestPostProcessDecodesAttributeMajorOutput(t *testing.T) {
	d := testDetector()
	frame := blankFrame(t, 640, 640)

	out := v8Output(t, 8, 3)
	// A confident car centred in the frame.
	setV8Detection(&out, 0, 320, 320, 64, 64, map[int]float32{2: 0.9})
	// A person: right confidence, wrong class.
	setV8Detection(&out, 1, 100, 100, 40, 80, map[int]float32{0: 0.95})
	// A car below the confidence floor.
	setV8Detection(&out, 2, 500, 200, 64, 64, map[int]float32{2: 0.2})

	dets := d.postProcess(frame, out)
	require.Len(t, dets, 1)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, image.Rect(288, 288, 352, 352), dets[0].Box)
}

func TestPostProcessScalesBoxesToFrameSize(t *testing.T) {
	d := testDetector()
	// Model coordinates are in 640px input space; a 1280x1280 frame doubles
	// them back out.
	frame := blankFrame(t, 1280, 1280)

	out := v8Output(t, 8, 1)
	setV8Detection(&out, 0, 320, 320, 64, 64, map[int]float32{5: 0.8})

	dets := d.postProcess(frame, out)
	require.Len(t, dets, 1)
	assert.Equal(t, image.Rect(576, 576, 704, 704), dets[0].Box)
}

func TestPostProcessClampsBoxesToFrame(t *testing.T) {
	d := testDetector()
	frame := blankFrame(t, 640, 640)

	out := v8Output(t, 8, 1)
	// Box centred near the edge spills outside the frame.
	setV8Detection(&out, 0, 620, 620, 100, 100, map[int]float32{7: 0.7})

	dets := d.postProcess(frame, out)
	require.Len(t, dets, 1)
	assert.True(t, dets[0].Box.In(image.Rect(0, 0, 640, 640)))
}

func TestPostProcessRejectsMalformedOutput(t *testing.T) {
	d := testDetector()
	frame := blankFrame(t, 640, 640)

	t.Run("missing class rows", func(t *testing.T) {
		out := v8Output(t, 0, 5)
		assert.Empty(t, d.postProcess(frame, out))
	})

	t.Run("2d output", func(t *testing.T) {
		out := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV32F)
		defer out.Close()
		assert.Empty(t, d.postProcess(frame, out))
	})
}
