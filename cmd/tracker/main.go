// Command tracker runs the parking gate camera pipeline: it pulls frames,
// detects and tracks vehicles, fires plate recognition when a vehicle
// crosses the virtual line, posts sightings to the parking ledger, and
// records them locally.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/bunyaminoter/parkingAutomation/internal/config"
	"github.com/bunyaminoter/parkingAutomation/internal/monitoring"
	"github.com/bunyaminoter/parkingAutomation/internal/report"
	"github.com/bunyaminoter/parkingAutomation/internal/store"
	"github.com/bunyaminoter/parkingAutomation/internal/version"
	"github.com/bunyaminoter/parkingAutomation/internal/vision"
)

var (
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	camera     = flag.Int("camera", -1, "Camera index (overrides config)")
	source     = flag.String("source", "", "Video file path instead of a camera (overrides config)")
	lineY      = flag.Int("line-y", -1, "Virtual line Y position (overrides config)")
	movement   = flag.Float64("movement", -1, "Movement threshold in pixels (overrides config)")
	debounce   = flag.Float64("debounce", -1, "Per-track debounce window in seconds (overrides config)")
	minConf    = flag.Float64("min-confidence", -1, "Minimum acceptable OCR confidence (overrides config)")
	captureDir = flag.String("capture-dir", "", "Trigger snapshot directory (overrides config)")
	modelPath  = flag.String("model", "", "Detector model path (overrides config)")
	apiBase    = flag.String("api-base", "http://localhost:8000", "Parking ledger base URL")
	dbPath     = flag.String("db", "parking_sightings.db", "Local sighting database path (empty disables)")
	display    = flag.Bool("display", false, "Show the annotated preview window (press q to quit)")
	debug      = flag.Bool("debug", false, "Enable per-frame debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		monitoring.EnableDebug()
	}
	monitoring.Logf("parking tracker %s starting", version.String())

	cfg, err := loadConfig()
	if err != nil {
		monitoring.Logf("config error: %v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		monitoring.Logf("tracker exited with error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.TuningConfig, error) {
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flags beat the config file.
	if *camera >= 0 {
		cfg.CameraIndex = camera
	}
	if *source != "" {
		cfg.SourcePath = source
	}
	if *lineY >= 0 {
		cfg.VirtualLineY = lineY
	}
	if *movement >= 0 {
		cfg.MovementThresholdPx = movement
	}
	if *debounce >= 0 {
		cfg.DebounceSeconds = debounce
	}
	if *minConf >= 0 {
		cfg.MinPlateConfidence = minConf
	}
	if *captureDir != "" {
		cfg.CaptureDir = captureDir
	}
	if *modelPath != "" {
		cfg.DetectorModelPath = modelPath
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.TuningConfig) error {
	detector, err := vision.NewYOLODetector(
		cfg.GetDetectorModelPath(), cfg.GetDetectorConf(), cfg.GetDetectorIOU(), cfg.GetVehicleClassIDs())
	if err != nil {
		return err
	}
	defer detector.Close()

	reader := vision.NewTesseractReader(cfg.GetOCRLanguages()...)
	defer reader.Close()

	locator := vision.NewCandidateLocator(vision.LocatorConfig{
		MinAspect: cfg.GetCandidateMinAspect(),
		MaxAspect: cfg.GetCandidateMaxAspect(),
		MinArea:   cfg.GetCandidateMinArea(),
		MaxArea:   cfg.GetCandidateMaxArea(),
	})
	engine := vision.NewEngine(reader, locator, cfg.GetUpscaleWidthFloor())

	snapshots, err := vision.NewDiskSnapshotWriter(cfg.GetCaptureDir())
	if err != nil {
		return err
	}

	ledger := report.NewLedgerClient(*apiBase, nil)

	var sightings *store.SightingStore
	if *dbPath != "" {
		sightings, err = store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer sightings.Close()
	}

	session := vision.NewTrackingSession(vision.SessionConfig{
		LineY:               cfg.GetVirtualLineY(),
		MovementThresholdPx: cfg.GetMovementThresholdPx(),
		DebounceWindow:      time.Duration(cfg.GetDebounceSeconds() * float64(time.Second)),
		TrackTTL:            time.Duration(cfg.GetTrackTTLSeconds() * float64(time.Second)),
		MinPlateConfidence:  cfg.GetMinPlateConfidence(),
	}, engine, snapshots, ledger, nil)

	tracker := vision.NewCentroidTracker(vision.DefaultTrackerConfig())

	capture, err := openCapture(cfg)
	if err != nil {
		return err
	}
	defer capture.Close()

	var window *previewWindow
	if *display {
		window = newPreviewWindow(cfg.GetVirtualLineY())
		defer window.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	monitoring.Logf("vehicle tracker started (line_y=%d movement=%.0fpx debounce=%.0fs)",
		cfg.GetVirtualLineY(), cfg.GetMovementThresholdPx(), cfg.GetDebounceSeconds())

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case sig := <-stop:
			monitoring.Logf("received %v, shutting down", sig)
			return nil
		default:
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			// End of stream is pipeline-fatal, not retried.
			monitoring.Logf("frame grab failed, exiting")
			return nil
		}

		if cfg.GetFlipFrame() {
			gocv.Flip(frame, &frame, 1)
		}

		raw := detector.Detect(frame)
		detections := tracker.Assign(raw)
		result := session.ProcessFrame(frame, detections)

		for i := range result.Events {
			recordSighting(sightings, &result.Events[i])
		}

		if window != nil {
			if quit := window.Show(frame, result); quit {
				monitoring.Logf("quit signal received")
				return nil
			}
		}
	}
}

func openCapture(cfg *config.TuningConfig) (*gocv.VideoCapture, error) {
	if path := cfg.GetSourcePath(); path != "" {
		return gocv.VideoCaptureFile(path)
	}
	return gocv.VideoCaptureDevice(cfg.GetCameraIndex())
}

func recordSighting(sightings *store.SightingStore, ev *vision.TriggerEvent) {
	if sightings == nil {
		return
	}
	err := sightings.InsertSighting(&store.Sighting{
		TrackID:      ev.TrackID,
		Plate:        ev.Plate,
		Confidence:   ev.Confidence,
		SnapshotPath: ev.SnapshotPath,
		Reported:     ev.Reported,
		CreatedAt:    float64(ev.Timestamp.UnixNano()) / 1e9,
	})
	if err != nil {
		monitoring.Logf("failed to record sighting for track=%d: %v", ev.TrackID, err)
	}
}
