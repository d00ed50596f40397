package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the tunable parameters of the tracking and
// recognition pipeline. All fields are pointers so a partial JSON file only
// overrides what it names; the Get* accessors supply defaults for the rest.
type TuningConfig struct {
	// Capture params
	CameraIndex *int    `json:"camera_index,omitempty"`
	SourcePath  *string `json:"source_path,omitempty"` // video file path; overrides camera_index when set
	FlipFrame   *bool   `json:"flip_frame,omitempty"`

	// Crossing / trigger params
	VirtualLineY        *int     `json:"virtual_line_y,omitempty"`
	MovementThresholdPx *float64 `json:"movement_threshold_px,omitempty"`
	DebounceSeconds     *float64 `json:"debounce_seconds,omitempty"`
	TrackTTLSeconds     *float64 `json:"track_ttl_seconds,omitempty"`
	CaptureDir          *string  `json:"capture_dir,omitempty"`

	// Detector params
	DetectorModelPath *string  `json:"detector_model_path,omitempty"`
	DetectorConf      *float64 `json:"detector_conf,omitempty"`
	DetectorIOU       *float64 `json:"detector_iou,omitempty"`
	VehicleClassIDs   []int    `json:"vehicle_class_ids,omitempty"`

	// Plate candidate params
	CandidateMinAspect *float64 `json:"candidate_min_aspect,omitempty"`
	CandidateMaxAspect *float64 `json:"candidate_max_aspect,omitempty"`
	CandidateMinArea   *float64 `json:"candidate_min_area,omitempty"`
	CandidateMaxArea   *float64 `json:"candidate_max_area,omitempty"`

	// OCR params
	MinPlateConfidence *float64 `json:"min_plate_confidence,omitempty"`
	OCRLanguages       []string `json:"ocr_languages,omitempty"`
	UpscaleWidthFloor  *int     `json:"upscale_width_floor,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MovementThresholdPx != nil && *c.MovementThresholdPx < 0 {
		return fmt.Errorf("movement_threshold_px must be non-negative, got %f", *c.MovementThresholdPx)
	}
	if c.DebounceSeconds != nil && *c.DebounceSeconds < 0 {
		return fmt.Errorf("debounce_seconds must be non-negative, got %f", *c.DebounceSeconds)
	}
	if c.MinPlateConfidence != nil {
		if *c.MinPlateConfidence < 0 || *c.MinPlateConfidence > 1 {
			return fmt.Errorf("min_plate_confidence must be between 0 and 1, got %f", *c.MinPlateConfidence)
		}
	}
	if c.DetectorConf != nil {
		if *c.DetectorConf < 0 || *c.DetectorConf > 1 {
			return fmt.Errorf("detector_conf must be between 0 and 1, got %f", *c.DetectorConf)
		}
	}
	if c.DetectorIOU != nil {
		if *c.DetectorIOU < 0 || *c.DetectorIOU > 1 {
			return fmt.Errorf("detector_iou must be between 0 and 1, got %f", *c.DetectorIOU)
		}
	}
	if c.CandidateMinAspect != nil && c.CandidateMaxAspect != nil {
		if *c.CandidateMinAspect >= *c.CandidateMaxAspect {
			return fmt.Errorf("candidate_min_aspect %f must be below candidate_max_aspect %f",
				*c.CandidateMinAspect, *c.CandidateMaxAspect)
		}
	}
	if c.CandidateMinArea != nil && c.CandidateMaxArea != nil {
		if *c.CandidateMinArea >= *c.CandidateMaxArea {
			return fmt.Errorf("candidate_min_area %f must be below candidate_max_area %f",
				*c.CandidateMinArea, *c.CandidateMaxArea)
		}
	}
	return nil
}

// GetCameraIndex returns the camera_index value or the default.
func (c *TuningConfig) GetCameraIndex() int {
	if c.CameraIndex == nil {
		return 0
	}
	return *c.CameraIndex
}

// GetSourcePath returns the source_path value or empty (use the camera).
func (c *TuningConfig) GetSourcePath() string {
	if c.SourcePath == nil {
		return ""
	}
	return *c.SourcePath
}

// GetFlipFrame returns the flip_frame value or the default.
func (c *TuningConfig) GetFlipFrame() bool {
	if c.FlipFrame == nil {
		return true // mirror the operator view, matching the deployed camera rig
	}
	return *c.FlipFrame
}

// GetVirtualLineY returns the virtual_line_y value or the default.
func (c *TuningConfig) GetVirtualLineY() int {
	if c.VirtualLineY == nil {
		return 400
	}
	return *c.VirtualLineY
}

// GetMovementThresholdPx returns the movement_threshold_px value or the default.
func (c *TuningConfig) GetMovementThresholdPx() float64 {
	if c.MovementThresholdPx == nil {
		return 30.0
	}
	return *c.MovementThresholdPx
}

// GetDebounceSeconds returns the debounce_seconds value or the default.
func (c *TuningConfig) GetDebounceSeconds() float64 {
	if c.DebounceSeconds == nil {
		return 10.0
	}
	return *c.DebounceSeconds
}

// GetTrackTTLSeconds returns the track_ttl_seconds value or the default.
func (c *TuningConfig) GetTrackTTLSeconds() float64 {
	if c.TrackTTLSeconds == nil {
		return 30.0
	}
	return *c.TrackTTLSeconds
}

// GetCaptureDir returns the capture_dir value or the default.
func (c *TuningConfig) GetCaptureDir() string {
	if c.CaptureDir == nil {
		return "uploads/triggers"
	}
	return *c.CaptureDir
}

// GetDetectorModelPath returns the detector_model_path value or the default.
func (c *TuningConfig) GetDetectorModelPath() string {
	if c.DetectorModelPath == nil {
		return "models/yolov8n.onnx"
	}
	return *c.DetectorModelPath
}

// GetDetectorConf returns the detector_conf value or the default.
func (c *TuningConfig) GetDetectorConf() float64 {
	if c.DetectorConf == nil {
		return 0.35
	}
	return *c.DetectorConf
}

// GetDetectorIOU returns the detector_iou value or the default.
func (c *TuningConfig) GetDetectorIOU() float64 {
	if c.DetectorIOU == nil {
		return 0.45
	}
	return *c.DetectorIOU
}

// GetVehicleClassIDs returns the vehicle_class_ids value or the default
// COCO vehicle classes: car, motorcycle, bus, truck.
func (c *TuningConfig) GetVehicleClassIDs() []int {
	if len(c.VehicleClassIDs) == 0 {
		return []int{2, 3, 5, 7}
	}
	return c.VehicleClassIDs
}

// GetCandidateMinAspect returns the candidate_min_aspect value or the default.
func (c *TuningConfig) GetCandidateMinAspect() float64 {
	if c.CandidateMinAspect == nil {
		return 2.0
	}
	return *c.CandidateMinAspect
}

// GetCandidateMaxAspect returns the candidate_max_aspect value or the default.
func (c *TuningConfig) GetCandidateMaxAspect() float64 {
	if c.CandidateMaxAspect == nil {
		return 6.0
	}
	return *c.CandidateMaxAspect
}

// GetCandidateMinArea returns the candidate_min_area value or the default.
func (c *TuningConfig) GetCandidateMinArea() float64 {
	if c.CandidateMinArea == nil {
		return 1000.0
	}
	return *c.CandidateMinArea
}

// GetCandidateMaxArea returns the candidate_max_area value or the default.
func (c *TuningConfig) GetCandidateMaxArea() float64 {
	if c.CandidateMaxArea == nil {
		return 20000.0
	}
	return *c.CandidateMaxArea
}

// GetMinPlateConfidence returns the min_plate_confidence value or the default.
func (c *TuningConfig) GetMinPlateConfidence() float64 {
	if c.MinPlateConfidence == nil {
		return 0.8
	}
	return *c.MinPlateConfidence
}

// GetOCRLanguages returns the ocr_languages value or the default.
func (c *TuningConfig) GetOCRLanguages() []string {
	if len(c.OCRLanguages) == 0 {
		return []string{"eng", "tur"}
	}
	return c.OCRLanguages
}

// GetUpscaleWidthFloor returns the upscale_width_floor value or the default.
func (c *TuningConfig) GetUpscaleWidthFloor() int {
	if c.UpscaleWidthFloor == nil {
		return 200
	}
	return *c.UpscaleWidthFloor
}
