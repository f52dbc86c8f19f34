package opencv

import (
	"fmt"
	"image"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// FaceDetector wraps an SSD-style face detection network. One instance per
// camera worker; gocv nets are not safe for concurrent Forward calls.
type FaceDetector struct {
	net        gocv.Net
	inputW     int
	inputH     int
	confidence float32
}

// NewFaceDetector loads the detection model from disk. A missing or broken
// model is a startup error: the pipeline cannot run without detection.
func NewFaceDetector(cfg config.ModelsConfig) (*FaceDetector, error) {
	net := gocv.ReadNet(cfg.DetectorModelPath, cfg.DetectorConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection model from %s", cfg.DetectorModelPath)
	}

	return &FaceDetector{
		net:        net,
		inputW:     cfg.DetectorInputWidth,
		inputH:     cfg.DetectorInputHeight,
		confidence: float32(cfg.DetectionConfidence),
	}, nil
}

// Detect returns bounding boxes for all faces in the frame, in source pixel
// coordinates. Model failures are swallowed: the frame simply yields zero
// boxes and the worker loop keeps running.
func (d *FaceDetector) Detect(frame gocv.Mat) (boxes []pipeline.Box) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Face detection panicked, treating frame as empty: %v", r)
			boxes = nil
		}
	}()

	if frame.Empty() {
		return nil
	}

	blob := gocv.BlobFromImage(frame, 1.0,
		image.Pt(d.inputW, d.inputH),
		gocv.NewScalar(104.0, 177.0, 123.0, 0), // mean subtraction for the SSD face model
		false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	// SSD output rows: [image_id, class_id, confidence, x1, y1, x2, y2]
	// with coordinates normalized to [0, 1].
	detections := prob.Reshape(1, prob.Total()/7)
	defer detections.Close()

	frameW, frameH := frame.Cols(), frame.Rows()
	for i := 0; i < detections.Rows(); i++ {
		conf := detections.GetFloatAt(i, 2)
		if conf < d.confidence {
			continue
		}

		box := pipeline.Box{
			X1: int(detections.GetFloatAt(i, 3) * float32(frameW)),
			Y1: int(detections.GetFloatAt(i, 4) * float32(frameH)),
			X2: int(detections.GetFloatAt(i, 5) * float32(frameW)),
			Y2: int(detections.GetFloatAt(i, 6) * float32(frameH)),
		}
		if box.X1 < 0 {
			box.X1 = 0
		}
		if box.Y1 < 0 {
			box.Y1 = 0
		}
		if box.X2 > frameW {
			box.X2 = frameW
		}
		if box.Y2 > frameH {
			box.Y2 = frameH
		}
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}
		boxes = append(boxes, box)
	}

	return boxes
}

// Close releases the network resources.
func (d *FaceDetector) Close() error {
	return d.net.Close()
}
