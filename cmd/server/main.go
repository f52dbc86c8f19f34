package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nileshkowe/vision-hub/config"
	"github.com/nileshkowe/vision-hub/internal/core/pipeline"
	"github.com/nileshkowe/vision-hub/internal/core/processor"
	"github.com/nileshkowe/vision-hub/internal/integrations/mqtt"
	"github.com/nileshkowe/vision-hub/internal/integrations/reporting"
	"github.com/nileshkowe/vision-hub/internal/logger"
	"github.com/nileshkowe/vision-hub/internal/server"
	"github.com/nileshkowe/vision-hub/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "/config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}
	timezone.Initialize(cfg.Server.Timezone)

	// Event sinks: the reporting boundary, and optionally an MQTT mirror.
	var sinks []pipeline.EventSink
	if cfg.Reporting.Enabled {
		sinks = append(sinks, reporting.NewClient(cfg.Reporting))
		log.Infof("Event reporting enabled, boundary at %s", cfg.Reporting.URL)
	} else {
		log.Info("Event reporting is disabled in config.")
	}

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.NewPublisher(cfg.MQTT)
		if err := publisher.Start(); err != nil {
			log.Warnf("Failed to start MQTT publisher: %v. Continuing without MQTT.", err)
			publisher = nil
		} else {
			sinks = append(sinks, publisher)
		}
	} else {
		log.Info("MQTT is disabled in config.")
	}

	// Gallery and model loading failures are fatal: the pipeline cannot
	// degrade into something useful without them.
	sup, err := processor.NewSupervisor(cfg, sinks...)
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}
	if err := sup.Start(); err != nil {
		log.Fatalf("Failed to start processor: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(cfg, sup).Router(),
	}

	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Block until asked to stop, then shut everything down in order:
	// workers first so no new events or frames are produced, then the
	// HTTP surface and the MQTT connection.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infof("Received signal %s, shutting down", sig)

	sup.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}

	if publisher != nil {
		publisher.Stop()
	}

	log.Info("Server stopped.")
}
