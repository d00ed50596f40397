package vision

import (
	"sort"
	"strings"
)

// Plate strings shorter or longer than this range are OCR noise, not plates.
const (
	minPlateLength = 4
	maxPlateLength = 8
)

// NormalizePlate cleans an OCR text hypothesis into a plate string: uppercase,
// strip everything outside A-Z0-9, then apply the common OCR confusions
// I→1, L→1, O→0. The corrections are applied uniformly; this is a heuristic,
// not a locale-aware plate-format parser. ok is false when the corrected
// string falls outside the accepted 4..8 length range.
func NormalizePlate(text string) (plate string, ok bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		switch {
		case r >= 'A' && r <= 'Z':
			switch r {
			case 'I', 'L':
				b.WriteRune('1')
			case 'O':
				b.WriteRune('0')
			default:
				b.WriteRune(r)
			}
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	plate = b.String()
	if len(plate) < minPlateLength || len(plate) > maxPlateLength {
		return "", false
	}
	return plate, true
}

// SelectBestReading ranks pooled readings from all candidate regions by
// confidence and returns the first whose normalised text is a valid plate.
// Ranking globally across all regions beats committing to one region: a poor
// crop can still yield one high-confidence token among noisy output.
func SelectBestReading(readings []OCRReading) RecognitionResult {
	sorted := make([]OCRReading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	for _, r := range sorted {
		if plate, ok := NormalizePlate(r.Text); ok {
			return RecognitionResult{Plate: plate, Confidence: r.Confidence, Found: true}
		}
	}
	return NotFound()
}

// NormalizeConfidence maps an engine-reported confidence onto [0, 1]. Some
// engines report percentages; anything above 1 is treated as a 0-100 scale.
func NormalizeConfidence(conf float64) float64 {
	if conf > 1 {
		return conf / 100.0
	}
	return conf
}
