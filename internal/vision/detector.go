package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Detector is the capability contract for the object detector: given a
// frame, return vehicle detections. Track identity is assigned downstream by
// the CentroidTracker.
type Detector interface {
	Detect(frame gocv.Mat) []RawDetection
}

const yoloInputSize = 640

// YOLODetector runs a YOLOv8 ONNX model through the OpenCV DNN module and
// keeps only the configured vehicle classes.
type YOLODetector struct {
	net           gocv.Net
	confThreshold float32
	nmsThreshold  float32
	classFilter   map[int]bool
}

// NewYOLODetector loads the model at modelPath. conf is the per-detection
// confidence floor, iou the NMS overlap threshold, and classIDs the class
// indices to keep (COCO vehicle classes in the default configuration).
func NewYOLODetector(modelPath string, conf, iou float64, classIDs []int) (*YOLODetector, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("could not load detector model from %s", modelPath)
	}

	filter := make(map[int]bool, len(classIDs))
	for _, id := range classIDs {
		filter[id] = true
	}

	return &YOLODetector{
		net:           net,
		confThreshold: float32(conf),
		nmsThreshold:  float32(iou),
		classFilter:   filter,
	}, nil
}

// Detect runs the model over the frame and returns vehicle detections after
// non-maximum suppression.
func (d *YOLODetector) Detect(frame gocv.Mat) []RawDetection {
	if frame.Empty() {
		return nil
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	prob := d.net.Forward("")
	defer prob.Close()

	return d.postProcess(frame, prob)
}

// postProcess decodes a YOLOv8 output tensor of shape (1, 4+nc, N): four box
// attribute rows (cx, cy, w, h in input-size pixels) followed by nc per-class
// score rows, one column per detection and no objectness term. It filters by
// confidence and class, then applies NMS.
func (d *YOLODetector) postProcess(frame gocv.Mat, output gocv.Mat) []RawDetection {
	dims := output.Size()
	if len(dims) < 3 || dims[1] <= 4 {
		return nil
	}
	attrs, count := dims[1], dims[2]

	flat := output.Reshape(1, attrs)
	defer flat.Close()

	var classIDs []int
	var confidences []float32
	var boxes []image.Rectangle

	sx := float32(frame.Cols()) / yoloInputSize
	sy := float32(frame.Rows()) / yoloInputSize

	for j := 0; j < count; j++ {
		bestClass := -1
		bestScore := float32(0)
		for i := 4; i < attrs; i++ {
			if s := flat.GetFloatAt(i, j); s > bestScore {
				bestScore = s
				bestClass = i - 4
			}
		}

		if bestScore < d.confThreshold || !d.classFilter[bestClass] {
			continue
		}

		cx := flat.GetFloatAt(0, j)
		cy := flat.GetFloatAt(1, j)
		w := flat.GetFloatAt(2, j)
		h := flat.GetFloatAt(3, j)

		left := int((cx - w/2) * sx)
		top := int((cy - h/2) * sy)
		width := int(w * sx)
		height := int(h * sy)

		classIDs = append(classIDs, bestClass)
		confidences = append(confidences, bestScore)
		boxes = append(boxes, image.Rect(left, top, left+width, top+height))
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.confThreshold, d.nmsThreshold)

	detections := make([]RawDetection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx].Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
		if box.Empty() {
			continue
		}
		detections = append(detections, RawDetection{
			ClassID:    classIDs[idx],
			Confidence: float64(confidences[idx]),
			Box:        box,
		})
	}
	return detections
}

// Close releases the DNN model.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}
