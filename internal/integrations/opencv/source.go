package opencv

import (
	"context"
	"fmt"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// FrameSource owns one camera's capture handle. It delivers decoded frames on
// demand and transparently reconnects with a fixed, interruptible delay when
// the feed stalls or the handle cannot be opened.
type FrameSource struct {
	cameraID string
	uri      string
	cfg      config.ProcessorConfig

	cap        *gocv.VideoCapture
	failCount  int
	everOpened bool
	actualW    int
	actualH    int
}

// NewFrameSource creates a source for the camera's URI. The capture handle is
// opened lazily on the first Next call.
func NewFrameSource(cameraID, uri string, cfg config.ProcessorConfig) *FrameSource {
	return &FrameSource{cameraID: cameraID, uri: uri, cfg: cfg}
}

// Resolution returns the capture resolution the camera actually delivers.
// Valid only after a successful open.
func (s *FrameSource) Resolution() (int, int) { return s.actualW, s.actualH }

// open creates the capture handle and negotiates the capture resolution. The
// camera may ignore the request; the actual values are read back so the
// worker can decide whether to downsample.
func (s *FrameSource) open() error {
	cap, err := gocv.OpenVideoCapture(s.uri)
	if err != nil {
		return fmt.Errorf("failed to open video source: %w", err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("video source %s did not open", s.uri)
	}

	// Keep a single-frame buffer so we always process the newest frame
	// instead of a growing backlog.
	cap.Set(gocv.VideoCaptureBufferSize, 1)
	cap.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.CaptureWidth))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.CaptureHeight))

	s.actualW = int(cap.Get(gocv.VideoCaptureFrameWidth))
	s.actualH = int(cap.Get(gocv.VideoCaptureFrameHeight))
	fps := cap.Get(gocv.VideoCaptureFPS)

	log.Infof("Camera %s: opened %s (requested %dx%d, actual %dx%d, %.1f fps)",
		s.cameraID, s.uri, s.cfg.CaptureWidth, s.cfg.CaptureHeight, s.actualW, s.actualH, fps)

	s.cap = cap
	s.everOpened = true
	s.failCount = 0
	return nil
}

// Next blocks until a frame is decoded into dst or ctx is cancelled. It
// returns false only on cancellation; read failures and dead handles are
// recovered internally via the reconnect-with-backoff loop.
func (s *FrameSource) Next(ctx context.Context, dst *gocv.Mat) bool {
	for {
		if ctx.Err() != nil {
			return false
		}

		if s.cap == nil || !s.cap.IsOpened() {
			// The very first open happens immediately; later reopens wait out
			// the reconnect delay first.
			if s.everOpened {
				log.Warnf("Camera %s: stream not open, reconnecting in %ds",
					s.cameraID, s.cfg.ReconnectDelaySeconds)
				if !pipeline.SleepInterruptible(ctx, time.Duration(s.cfg.ReconnectDelaySeconds)*time.Second) {
					return false
				}
			}
			if err := s.open(); err != nil {
				log.WithError(err).Warnf("Camera %s: open failed", s.cameraID)
				s.everOpened = true
				continue
			}
			continue
		}

		if s.cap.Read(dst) && !dst.Empty() {
			s.failCount = 0
			return true
		}

		s.failCount++
		if s.failCount >= s.cfg.MaxFailures {
			log.Warnf("Camera %s: %d consecutive empty reads, releasing capture handle",
				s.cameraID, s.failCount)
			s.Close()
			continue
		}
		if !pipeline.SleepInterruptible(ctx, 500*time.Millisecond) {
			return false
		}
	}
}

// Close releases the capture handle. Safe to call repeatedly.
func (s *FrameSource) Close() {
	if s.cap != nil {
		if err := s.cap.Close(); err != nil {
			log.WithError(err).Warnf("Camera %s: failed to close capture", s.cameraID)
		}
		s.cap = nil
	}
	s.failCount = 0
}
