package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"I0L2", "1012", true},
		{"ab-12!!cd", "AB12CD", true},
		{"34 ABC 56", "34ABC56", true},
		{"o0o0", "0000", true},
		{"ilIL", "1111", true},
		{"AB1", "", false},         // corrected length 3
		{"AB12CD34Z", "", false},   // corrected length 9
		{"", "", false},            // empty
		{"--!!..", "", false},      // nothing survives stripping
		{"tr 34 abc 56", "", false}, // length 9 after stripping
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizePlate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, 0.85, NormalizeConfidence(0.85))
	assert.Equal(t, 0.85, NormalizeConfidence(85))
	assert.Equal(t, 1.0, NormalizeConfidence(1.0))
	assert.Equal(t, 0.0, NormalizeConfidence(0))
}

func TestSelectBestReading(t *testing.T) {
	t.Run("global best valid reading wins", func(t *testing.T) {
		// The 0.9 reading is invalid (too short), so the next best valid
		// one is picked; the 0.4 reading is never reached.
		readings := []OCRReading{
			{Text: "AB12", Confidence: 0.4},
			{Text: "XY", Confidence: 0.9},
			{Text: "CD34EF", Confidence: 0.6},
		}
		res := SelectBestReading(readings)
		assert.True(t, res.Found)
		assert.Equal(t, "CD34EF", res.Plate)
		assert.Equal(t, 0.6, res.Confidence)
	})

	t.Run("confidence carries through normalization", func(t *testing.T) {
		res := SelectBestReading([]OCRReading{{Text: "i0l2-x", Confidence: 0.7}})
		assert.True(t, res.Found)
		assert.Equal(t, "1012X", res.Plate)
		assert.Equal(t, 0.7, res.Confidence)
	})

	t.Run("all invalid is a miss", func(t *testing.T) {
		readings := []OCRReading{
			{Text: "A", Confidence: 0.99},
			{Text: "!!!", Confidence: 0.95},
		}
		res := SelectBestReading(readings)
		assert.False(t, res.Found)
		assert.Equal(t, "", res.Plate)
		assert.Equal(t, 0.0, res.Confidence)
	})

	t.Run("empty pool is a miss", func(t *testing.T) {
		assert.False(t, SelectBestReading(nil).Found)
	})

	t.Run("input slice is not reordered", func(t *testing.T) {
		readings := []OCRReading{
			{Text: "AB12", Confidence: 0.1},
			{Text: "CD34", Confidence: 0.9},
		}
		SelectBestReading(readings)
		assert.Equal(t, "AB12", readings[0].Text)
	})
}
