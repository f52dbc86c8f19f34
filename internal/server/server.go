package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/processor"
	"github.com/nileshkowe/vision-hub/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Server exposes the pipeline's observability surface: health, statistics,
// the latest annotated frame per camera, and the saved evidence files. The
// full record-store API lives in a separate service; this is not it.
type Server struct {
	cfg *config.Config
	sup *processor.Supervisor
}

// New creates a server over the given supervisor.
func New(cfg *config.Config, sup *processor.Supervisor) *Server {
	return &Server{cfg: cfg, sup: sup}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	r.Get("/health", s.handleHealth)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/cameras", s.handleCameras)
	r.Get("/live/{camera}", s.handleLiveFrame)

	// Evidence images are plain files; serve them the simple way.
	fs := http.FileServer(http.Dir(s.cfg.Storage.DataDir))
	r.Mount("/evidence", http.StripPrefix("/evidence", fs))
	log.Infof("Serving evidence files from %s under /evidence/", s.cfg.Storage.DataDir)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	Pipeline processor.Snapshot `json:"pipeline"`
	System   *utils.SystemStats `json:"system"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Pipeline: s.sup.Stats(),
		System:   utils.GetSystemStats(s.sup.WorkerCount()),
	})
}

type cameraStatus struct {
	CameraID     string `json:"camera_id"`
	URI          string `json:"uri"`
	LastFrameAge string `json:"last_frame_age,omitempty"`
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	out := make([]cameraStatus, 0, len(s.cfg.Cameras))
	for _, id := range s.sup.CameraIDs() {
		status := cameraStatus{CameraID: id, URI: s.cfg.Cameras[id]}
		if at, ok := s.sup.LastFrameTime(id); ok {
			status.LastFrameAge = time.Since(at).Round(time.Millisecond).String()
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleLiveFrame serves the camera's most recently annotated frame as a
// single JPEG. A camera that has not produced a frame yet returns 404.
func (s *Server) handleLiveFrame(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera")

	jpeg, _, ok := s.sup.LatestFrame(cameraID)
	if !ok {
		http.Error(w, "no frame available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(jpeg); err != nil {
		log.WithError(err).Debug("Failed to write live frame response")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode JSON response")
	}
}
