package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

// SnapshotWriter persists a full-frame capture at trigger time. The snapshot
// is written on every trigger attempt, before OCR runs, so failed
// extractions still leave evidence on disk.
type SnapshotWriter interface {
	Save(frame gocv.Mat, trackID int64, ts time.Time) (path string, err error)
}

// DiskSnapshotWriter writes trigger snapshots as JPEG files into a capture
// directory. File names encode the track ID and a microsecond timestamp, so
// a track re-triggering after its cooldown never collides.
type DiskSnapshotWriter struct {
	dir string
}

// NewDiskSnapshotWriter creates the capture directory if needed.
func NewDiskSnapshotWriter(dir string) (*DiskSnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir %s: %w", dir, err)
	}
	return &DiskSnapshotWriter{dir: dir}, nil
}

// Save writes the frame as car_<trackID>_<yyyymmdd_hhmmss_micros>.jpg and
// returns the full path.
func (w *DiskSnapshotWriter) Save(frame gocv.Mat, trackID int64, ts time.Time) (string, error) {
	name := fmt.Sprintf("car_%d_%s_%06d.jpg", trackID, ts.Format("20060102_150405"), ts.Nanosecond()/1000)
	path := filepath.Join(w.dir, name)
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", fmt.Errorf("write snapshot %s", path)
	}
	return path, nil
}
