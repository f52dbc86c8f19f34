package processor

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"
	"github.com/nileshkowe/vision-hub/internal/storage/evidence"
	"github.com/nileshkowe/vision-hub/internal/util/timezone"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Source supplies decoded frames for one camera.
type Source interface {
	Next(ctx context.Context, dst *gocv.Mat) bool
	Close()
}

// Detector finds face bounding boxes in a frame.
type Detector interface {
	Detect(frame gocv.Mat) []pipeline.Box
	Close() error
}

// Embedder turns face crops into unit-normalized vectors; nil means the crop
// could not be embedded.
type Embedder interface {
	Embed(crop gocv.Mat) []float32
	Close() error
}

var (
	boxColor   = color.RGBA{0, 255, 0, 0}
	labelColor = color.RGBA{0, 255, 0, 0}
)

// Worker runs one camera's ingestion-and-recognition loop: acquire frame,
// detect faces, match against the gallery, drive the attendance and unknown
// handling, and publish the annotated frame for live viewing.
type Worker struct {
	cameraID string
	cfg      config.ProcessorConfig

	source   Source
	detector Detector
	embedder Embedder

	gallery  *pipeline.Gallery
	tracker  *pipeline.Tracker
	throttle *pipeline.UnknownThrottle
	emitter  *pipeline.Emitter
	evidence *evidence.Store

	frames *FrameStore
	stats  *Stats
}

// NewWorker wires a worker for one camera. The tracker, throttle, emitter,
// frame store and stats are shared across workers; source, detector and
// embedder belong to this worker alone.
func NewWorker(cameraID string, cfg config.ProcessorConfig, source Source, detector Detector,
	embedder Embedder, gallery *pipeline.Gallery, tracker *pipeline.Tracker,
	throttle *pipeline.UnknownThrottle, emitter *pipeline.Emitter, store *evidence.Store,
	frames *FrameStore, stats *Stats) *Worker {
	return &Worker{
		cameraID: cameraID,
		cfg:      cfg,
		source:   source,
		detector: detector,
		embedder: embedder,
		gallery:  gallery,
		tracker:  tracker,
		throttle: throttle,
		emitter:  emitter,
		evidence: store,
		frames:   frames,
		stats:    stats,
	}
}

// Run executes the camera loop until ctx is cancelled. Cancellation is
// checked at several points per iteration so shutdown latency stays bounded
// even mid-frame.
func (w *Worker) Run(ctx context.Context) {
	defer w.source.Close()
	defer w.detector.Close()
	defer w.embedder.Close()

	log.Infof("Camera %s: worker started", w.cameraID)
	defer log.Infof("Camera %s: worker stopped", w.cameraID)

	frame := gocv.NewMat()
	defer frame.Close()

	frameCounter := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if !w.source.Next(ctx, &frame) {
			return
		}
		frameCounter++

		// Cap the consumption rate so the loop does not spin through frames
		// faster than they are worth processing.
		if !pipeline.SleepInterruptible(ctx, 30*time.Millisecond) {
			return
		}

		// Downsample high-resolution captures to the processing resolution.
		// Smaller frames pass through untouched; we never upsample.
		if frame.Cols() > w.cfg.StreamWidth || frame.Rows() > w.cfg.StreamHeight {
			gocv.Resize(frame, &frame,
				image.Pt(w.cfg.StreamWidth, w.cfg.StreamHeight), 0, 0,
				gocv.InterpolationLinear)
		}

		// On skipped frames the previously published annotation stays
		// current; nothing is recomputed.
		if frameCounter%w.cfg.FrameSkip != 0 {
			continue
		}

		if ctx.Err() != nil {
			return
		}

		w.processFrame(ctx, frame)
	}
}

// processFrame runs detection and recognition on one frame and publishes the
// annotated result.
func (w *Worker) processFrame(ctx context.Context, frame gocv.Mat) {
	boxes := w.detector.Detect(frame)

	annotated := frame.Clone()
	defer annotated.Close()

	for _, box := range boxes {
		gocv.Rectangle(&annotated,
			image.Rect(box.X1, box.Y1, box.X2, box.Y2), boxColor, 2)
	}

	for _, box := range boxes {
		if ctx.Err() != nil {
			return
		}
		w.handleBox(ctx, frame, &annotated, box)
	}

	w.publish(annotated)
}

// handleBox runs the per-detection pipeline for one bounding box: crop
// expansion, size gate, embedding, matching, attendance or unknown handling,
// and event emission.
func (w *Worker) handleBox(ctx context.Context, frame gocv.Mat, annotated *gocv.Mat, box pipeline.Box) {
	ts := timezone.Now()
	crop := pipeline.ExpandBox(box, frame.Cols(), frame.Rows())

	// Crops too small to carry identity information are reported as-is and
	// never reach the embedder.
	if crop.ShorterSide() < w.cfg.MinFaceSize {
		event := pipeline.NewEvent(w.cameraID, pipeline.UnknownLabel, 0, ts, box)
		event.SmallFace = true
		w.emitter.Emit(ctx, event)
		return
	}

	region := frame.Region(image.Rect(crop.X1, crop.Y1, crop.X2, crop.Y2))
	defer region.Close()

	label := pipeline.UnknownLabel
	distance := 1.0
	if vec := w.embedder.Embed(region); vec != nil {
		label, distance = w.gallery.Match(vec)
	}

	confidence := 0.0
	if label != pipeline.UnknownLabel {
		confidence = 1.0 - distance
	}
	w.stats.RecordDetection(label != pipeline.UnknownLabel)

	var evidenceFile string
	if label != pipeline.UnknownLabel {
		evidenceFile = w.handleKnown(label, region, ts)
		gocv.PutText(annotated, label,
			image.Pt(box.X1, box.Y1-5), gocv.FontHersheyPlain, 1.2, labelColor, 2)
	} else {
		evidenceFile = w.handleUnknown(region, ts)
	}

	event := pipeline.NewEvent(w.cameraID, label, confidence, ts, box)
	event.EvidenceFilename = evidenceFile
	w.emitter.Emit(ctx, event)
}

// handleKnown advances the confirmation state for a recognized identity.
// Evidence is written only on the sighting that confirms attendance.
func (w *Worker) handleKnown(label string, crop gocv.Mat, ts time.Time) string {
	confirmed, confirmedAt := w.tracker.Observe(label, w.cameraID)
	if !confirmed {
		return ""
	}

	w.stats.RecordAttendance()

	filename, err := w.evidence.Save(crop, evidence.CategoryMatched, label, confirmedAt, w.cameraID)
	if err != nil {
		log.WithError(err).Errorf("Camera %s: failed to save matched evidence for %s", w.cameraID, label)
		return ""
	}
	return filename
}

// handleUnknown saves unknown-face evidence subject to the per-camera
// cooldown. The event is emitted either way; the filename is set only when a
// write actually happened.
func (w *Worker) handleUnknown(crop gocv.Mat, ts time.Time) string {
	if !w.throttle.Allow(w.cameraID) {
		return ""
	}

	filename, err := w.evidence.Save(crop, evidence.CategoryUnknown, pipeline.UnknownLabel, ts, w.cameraID)
	if err != nil {
		log.WithError(err).Errorf("Camera %s: failed to save unknown evidence", w.cameraID)
		return ""
	}
	w.throttle.MarkSaved(w.cameraID)
	return filename
}

// publish encodes the annotated frame and stores it as the camera's latest
// frame for live viewing.
func (w *Worker) publish(annotated gocv.Mat) {
	buf, err := gocv.IMEncode(".jpg", annotated)
	if err != nil {
		log.WithError(err).Warnf("Camera %s: failed to encode live frame", w.cameraID)
		return
	}
	defer buf.Close()

	// The native buffer is released with buf; keep our own copy.
	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	w.frames.Publish(w.cameraID, jpeg, timezone.Now())
}
