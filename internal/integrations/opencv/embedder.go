package opencv

import (
	"fmt"
	"image"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// FaceEmbedder wraps the face embedding network. Given a face crop it
// produces a fixed-length unit-normalized vector, or nil on any failure.
type FaceEmbedder struct {
	net       gocv.Net
	inputSize int
}

// NewFaceEmbedder loads the embedding model from disk.
func NewFaceEmbedder(cfg config.ModelsConfig) (*FaceEmbedder, error) {
	net := gocv.ReadNet(cfg.EmbedderModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load embedding model from %s", cfg.EmbedderModelPath)
	}
	return &FaceEmbedder{net: net, inputSize: cfg.EmbedderInputSize}, nil
}

// Embed computes the embedding for a face crop. Any internal failure returns
// nil; the caller treats that as "cannot match" and proceeds as Unknown.
func (e *FaceEmbedder) Embed(crop gocv.Mat) (vec []float32) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Face embedding panicked, treating crop as unmatchable: %v", r)
			vec = nil
		}
	}()

	if crop.Empty() {
		return nil
	}

	// Inputs are scaled to [-1, 1], matching the model's training
	// preprocessing, with BGR swapped to RGB.
	blob := gocv.BlobFromImage(crop, 1.0/127.5,
		image.Pt(e.inputSize, e.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	total := out.Total()
	if total == 0 {
		return nil
	}

	flat := out.Reshape(1, 1)
	defer flat.Close()

	vec = make([]float32, total)
	for i := 0; i < total; i++ {
		vec[i] = flat.GetFloatAt(0, i)
	}

	return pipeline.Normalize(vec)
}

// Close releases the network resources.
func (e *FaceEmbedder) Close() error {
	return e.net.Close()
}
