package vision

import (
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

const plateCharWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// OCRReader is the capability contract for the OCR engine: given an image
// region, return zero or more text hypotheses with [0,1] confidences.
type OCRReader interface {
	ReadRegion(img gocv.Mat) ([]OCRReading, error)
}

// TesseractReader is an OCRReader backed by a single Tesseract client. The
// client is expensive to construct, so it is initialised once on first use;
// the init is guarded so concurrent first readers cannot race a torn
// half-constructed client. Reads are serialised because the underlying
// client is stateful.
type TesseractReader struct {
	languages []string

	once    sync.Once
	initErr error
	client  *gosseract.Client

	mu sync.Mutex
}

// NewTesseractReader creates a reader for the given Tesseract language codes
// (for example "eng", "tur"). The Tesseract client itself is not created
// until the first ReadRegion call.
func NewTesseractReader(languages ...string) *TesseractReader {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractReader{languages: languages}
}

func (r *TesseractReader) init() {
	client := gosseract.NewClient()
	if err := client.SetLanguage(r.languages...); err != nil {
		client.Close()
		r.initErr = fmt.Errorf("set OCR languages %v: %w", r.languages, err)
		return
	}
	if err := client.SetWhitelist(plateCharWhitelist); err != nil {
		client.Close()
		r.initErr = fmt.Errorf("set OCR whitelist: %w", err)
		return
	}
	r.client = client
}

// ReadRegion runs OCR over the region and returns word-level readings with
// confidences normalised to [0,1]. Tesseract reports word confidences on a
// 0-100 scale.
func (r *TesseractReader) ReadRegion(img gocv.Mat) ([]OCRReading, error) {
	r.once.Do(r.init)
	if r.initErr != nil {
		return nil, r.initErr
	}
	if img.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(".png", img)
	if err != nil {
		return nil, fmt.Errorf("encode OCR region: %w", err)
	}
	defer buf.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("set OCR image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("read OCR words: %w", err)
	}

	readings := make([]OCRReading, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		readings = append(readings, OCRReading{
			Text:       word,
			Confidence: NormalizeConfidence(box.Confidence),
		})
	}
	return readings, nil
}

// Close releases the Tesseract client if one was created.
func (r *TesseractReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		return err
	}
	return nil
}
