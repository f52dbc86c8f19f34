package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/processor"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	galleryPath := filepath.Join(dir, "gallery.json")
	gallery := `[{"name": "Alice", "embedding": [1, 0, 0]}]`
	if err := os.WriteFile(galleryPath, []byte(gallery), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Cameras: map[string]string{
			"entrance": "rtsp://example/stream1",
			"lobby":    "rtsp://example/stream2",
		},
		Processor: config.ProcessorConfig{
			Threshold:              0.4,
			RequiredConfirmations:  3,
			UnknownIntervalSeconds: 30,
		},
		Gallery: config.GalleryConfig{Path: galleryPath},
		Storage: config.StorageConfig{
			DataDir:       dir,
			MatchedDir:    "matched",
			UnknownDir:    "unknown",
			AttendanceDir: "attendance",
		},
		Reporting: config.ReportingConfig{MinIntervalSeconds: 10},
	}

	sup, err := processor.NewSupervisor(cfg)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	return New(cfg, sup), dir
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestCamerasEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cameras", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var cameras []struct {
		CameraID     string `json:"camera_id"`
		URI          string `json:"uri"`
		LastFrameAge string `json:"last_frame_age"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cameras); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(cameras) != 2 {
		t.Fatalf("got %d cameras, want 2", len(cameras))
	}
	// Sorted by camera ID.
	if cameras[0].CameraID != "entrance" || cameras[1].CameraID != "lobby" {
		t.Errorf("camera order = %s, %s", cameras[0].CameraID, cameras[1].CameraID)
	}
	if cameras[0].URI != "rtsp://example/stream1" {
		t.Errorf("entrance URI = %q", cameras[0].URI)
	}
	// No frames published yet, so no age.
	if cameras[0].LastFrameAge != "" {
		t.Errorf("last_frame_age = %q, want empty before any frame", cameras[0].LastFrameAge)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Pipeline processor.Snapshot     `json:"pipeline"`
		System   map[string]interface{} `json:"system"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pipeline.TotalDetections != 0 {
		t.Errorf("total_detections = %d, want 0", body.Pipeline.TotalDetections)
	}
	if body.System == nil {
		t.Error("system stats missing from response")
	}
}

func TestLiveFrameNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live/entrance", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any frame is published", rec.Code)
	}
}

func TestEvidenceFileServing(t *testing.T) {
	srv, dir := newTestServer(t)
	router := srv.Router()

	matched := filepath.Join(dir, "matched")
	if err := os.MkdirAll(matched, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(matched, "x.jpg"), []byte("jpegbytes"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evidence/matched/x.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "jpegbytes" {
		t.Errorf("body = %q, want file contents", rec.Body.String())
	}
}
