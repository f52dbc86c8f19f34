package processor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"
	"github.com/nileshkowe/vision-hub/internal/integrations/opencv"
	"github.com/nileshkowe/vision-hub/internal/storage/evidence"

	log "github.com/sirupsen/logrus"
)

// stopTimeout bounds how long Stop waits for each worker to finish. A worker
// stuck in a non-interruptible capture call may overrun this; the supervisor
// logs it and moves on rather than killing anything.
const stopTimeout = 5 * time.Second

// Supervisor owns the gallery and one camera worker per configured camera.
// It holds the shared pipeline state (confirmation tracker, unknown throttle,
// event emitter, latest-frame map) that all workers mutate under their
// respective locks.
type Supervisor struct {
	cfg     *config.Config
	gallery *pipeline.Gallery

	tracker  *pipeline.Tracker
	throttle *pipeline.UnknownThrottle
	emitter  *pipeline.Emitter
	evidence *evidence.Store
	frames   *FrameStore
	stats    *Stats

	cancel  context.CancelFunc
	workers map[string]chan struct{} // camera ID -> closed when its worker returns
}

// NewSupervisor loads the gallery and prepares the shared pipeline state.
// A gallery that fails to load is fatal: recognition cannot run without it.
func NewSupervisor(cfg *config.Config, sinks ...pipeline.EventSink) (*Supervisor, error) {
	gallery, err := pipeline.LoadGallery(cfg.Gallery.Path, cfg.Processor.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	ledger := pipeline.NewLedger(cfg.Storage.AttendancePath())

	return &Supervisor{
		cfg:      cfg,
		gallery:  gallery,
		tracker:  pipeline.NewTracker(cfg.Processor.RequiredConfirmations, ledger),
		throttle: pipeline.NewUnknownThrottle(time.Duration(cfg.Processor.UnknownIntervalSeconds) * time.Second),
		emitter:  pipeline.NewEmitter(time.Duration(cfg.Reporting.MinIntervalSeconds)*time.Second, sinks...),
		evidence: evidence.NewStore(cfg.Storage.MatchedPath(), cfg.Storage.UnknownPath()),
		frames:   NewFrameStore(),
		stats:    NewStats(),
		workers:  make(map[string]chan struct{}),
	}, nil
}

// Start loads the models and spawns one worker goroutine per configured
// camera. A model that fails to load is a startup error surfaced to the
// caller; nothing is left running in that case.
func (s *Supervisor) Start() error {
	if len(s.cfg.Cameras) == 0 {
		return fmt.Errorf("no cameras configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	started := make([]*Worker, 0, len(s.cfg.Cameras))
	for _, cameraID := range s.CameraIDs() {
		uri := s.cfg.Cameras[cameraID]

		detector, err := opencv.NewFaceDetector(s.cfg.Models)
		if err != nil {
			releaseWorkers(started)
			cancel()
			return fmt.Errorf("camera %s: %w", cameraID, err)
		}
		embedder, err := opencv.NewFaceEmbedder(s.cfg.Models)
		if err != nil {
			detector.Close()
			releaseWorkers(started)
			cancel()
			return fmt.Errorf("camera %s: %w", cameraID, err)
		}

		source := opencv.NewFrameSource(cameraID, uri, s.cfg.Processor)
		worker := NewWorker(cameraID, s.cfg.Processor, source, detector, embedder,
			s.gallery, s.tracker, s.throttle, s.emitter, s.evidence, s.frames, s.stats)
		started = append(started, worker)
	}

	for _, worker := range started {
		done := make(chan struct{})
		s.workers[worker.cameraID] = done
		go func(w *Worker, done chan struct{}) {
			defer close(done)
			w.Run(ctx)
		}(worker, done)
	}

	log.Infof("Processor supervisor started %d camera workers (gallery: %d identities)",
		len(started), s.gallery.Size())
	return nil
}

// releaseWorkers closes the per-camera resources of workers that were built
// but never started.
func releaseWorkers(workers []*Worker) {
	for _, w := range workers {
		w.source.Close()
		w.detector.Close()
		w.embedder.Close()
	}
}

// Stop cancels all workers and waits up to stopTimeout for each to finish.
// Workers that fail to stop in time are logged, never force-killed.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	log.Info("Stopping processor supervisor...")
	s.cancel()

	for cameraID, done := range s.workers {
		select {
		case <-done:
		case <-time.After(stopTimeout):
			log.Warnf("Camera %s: worker did not stop within %s", cameraID, stopTimeout)
		}
	}
	log.Info("Processor supervisor stopped")
}

// CameraIDs returns the configured camera IDs in stable order.
func (s *Supervisor) CameraIDs() []string {
	ids := make([]string, 0, len(s.cfg.Cameras))
	for id := range s.cfg.Cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LatestFrame returns the newest annotated JPEG frame for a camera.
func (s *Supervisor) LatestFrame(cameraID string) ([]byte, time.Time, bool) {
	return s.frames.Latest(cameraID)
}

// LastFrameTime returns when a camera last published a frame.
func (s *Supervisor) LastFrameTime(cameraID string) (time.Time, bool) {
	return s.frames.LastUpdate(cameraID)
}

// Stats returns a snapshot of the pipeline counters.
func (s *Supervisor) Stats() Snapshot {
	return s.stats.Snapshot()
}

// WorkerCount returns the number of camera workers.
func (s *Supervisor) WorkerCount() int {
	return len(s.workers)
}

// AttendanceCount returns how many identities have been confirmed this run.
func (s *Supervisor) AttendanceCount() int {
	return s.tracker.ConfirmedCount()
}
