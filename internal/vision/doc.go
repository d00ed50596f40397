// Package vision implements the camera-side pipeline of the parking
// automation system: per-track motion bookkeeping, virtual-line crossing
// detection, trigger debouncing, license-plate candidate location, and OCR
// based plate extraction.
//
// The pipeline is strictly single-threaded per camera: a TrackingSession owns
// all per-track state and is driven one frame at a time. The only shared
// resource is the Tesseract client inside TesseractReader, which is
// constructed once on first use and serialised with a mutex so multiple
// sessions may share one reader.
package vision
