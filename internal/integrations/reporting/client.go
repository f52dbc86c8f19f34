package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"

	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "reporting",
}

// Client forwards detection events to the external reporting boundary. One
// HTTP request per event, no batching, no retry: delivery failures are the
// emitter's problem to log and forget.
type Client struct {
	cfg        config.ReportingConfig
	httpClient *http.Client
}

// violationPayload is the reporting boundary's wire contract.
type violationPayload struct {
	AppID     int            `json:"app_id"`
	CameraID  int            `json:"camera_id"`
	Details   pipeline.Event `json:"details"`
	ImagePath string         `json:"image_path"`
}

// NewClient creates a reporting client with the configured request timeout.
func NewClient(cfg config.ReportingConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Forward delivers one event. Implements pipeline.EventSink.
func (c *Client) Forward(ctx context.Context, event pipeline.Event) error {
	payload := violationPayload{
		AppID:     c.cfg.AppID,
		CameraID:  cameraNumber(event.CameraID),
		Details:   event,
		ImagePath: event.EvidenceFilename,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.URL, "/") + "/api/violations/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("reporting boundary returned status %d: %s", resp.StatusCode, snippet)
	}

	log.WithFields(logFields).Debugf("Reported %s event for %s/%s",
		event.Kind, event.CameraID, event.Label)
	return nil
}

// cameraNumber extracts the numeric suffix of a camera ID ("C12" -> 12) for
// the boundary's integer camera field. IDs without digits map to 0.
func cameraNumber(cameraID string) int {
	n := 0
	seen := false
	for _, r := range cameraID {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
		} else if seen {
			// Only the trailing run of digits counts.
			n = 0
			seen = false
		}
	}
	if !seen {
		return 0
	}
	return n
}
