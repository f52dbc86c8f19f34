package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       LogConfig         `mapstructure:"log"`
	Cameras   map[string]string `mapstructure:"cameras"` // camera ID -> source URI
	Processor ProcessorConfig   `mapstructure:"processor"`
	Models    ModelsConfig      `mapstructure:"models"`
	Gallery   GalleryConfig     `mapstructure:"gallery"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Reporting ReportingConfig   `mapstructure:"reporting"`
	MQTT      MQTTConfig        `mapstructure:"mqtt"`
}

// ServerConfig holds settings for the embedded HTTP server.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Timezone string `mapstructure:"timezone"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ProcessorConfig holds the per-camera pipeline parameters.
type ProcessorConfig struct {
	Threshold              float64 `mapstructure:"threshold"`                // cosine distance below which a match is accepted
	RequiredConfirmations  int     `mapstructure:"required_confirmations"`   // sightings before attendance is logged
	UnknownIntervalSeconds int     `mapstructure:"unknown_interval_seconds"` // cooldown between unknown evidence saves per camera
	FrameSkip              int     `mapstructure:"frame_skip"`               // process every Nth frame
	MinFaceSize            int     `mapstructure:"min_face_size"`            // crops with a shorter side below this are not embedded
	ReconnectDelaySeconds  int     `mapstructure:"reconnect_delay_seconds"`
	MaxFailures            int     `mapstructure:"max_failures"` // consecutive empty reads before reconnect
	CaptureWidth           int     `mapstructure:"capture_width"`
	CaptureHeight          int     `mapstructure:"capture_height"`
	StreamWidth            int     `mapstructure:"stream_width"`
	StreamHeight           int     `mapstructure:"stream_height"`
}

// ModelsConfig holds locations and parameters of the DNN models.
type ModelsConfig struct {
	DetectorModelPath   string  `mapstructure:"detector_model_path"`
	DetectorConfigPath  string  `mapstructure:"detector_config_path"`
	DetectorInputWidth  int     `mapstructure:"detector_input_width"`
	DetectorInputHeight int     `mapstructure:"detector_input_height"`
	DetectionConfidence float64 `mapstructure:"detection_confidence"`
	EmbedderModelPath   string  `mapstructure:"embedder_model_path"`
	EmbedderInputSize   int     `mapstructure:"embedder_input_size"`
}

// GalleryConfig holds settings for the reference gallery.
type GalleryConfig struct {
	Path string `mapstructure:"path"` // JSON file with {name, embedding} records
}

// StorageConfig holds output locations for evidence and attendance files.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	MatchedDir    string `mapstructure:"matched_dir"`
	UnknownDir    string `mapstructure:"unknown_dir"`
	AttendanceDir string `mapstructure:"attendance_dir"`
}

// ReportingConfig holds settings for the external reporting boundary.
type ReportingConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	URL                string `mapstructure:"url"`
	AppID              int    `mapstructure:"app_id"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MinIntervalSeconds int    `mapstructure:"min_interval_seconds"` // emitter dedup window per (camera, label)
}

// MQTTConfig holds settings for the optional MQTT event mirror.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// Load reads the configuration from file, environment variables and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables override the file.
	v.AutomaticEnv()
	v.SetEnvPrefix("VISION_HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// Validate checks constraints that would otherwise surface as confusing
// runtime behavior deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Processor.Threshold <= 0 || c.Processor.Threshold >= 2 {
		return fmt.Errorf("processor.threshold must be in (0, 2), got %v", c.Processor.Threshold)
	}
	if c.Processor.RequiredConfirmations < 1 {
		return fmt.Errorf("processor.required_confirmations must be >= 1, got %d", c.Processor.RequiredConfirmations)
	}
	if c.Processor.FrameSkip < 1 {
		return fmt.Errorf("processor.frame_skip must be >= 1, got %d", c.Processor.FrameSkip)
	}
	if c.Processor.MaxFailures < 1 {
		return fmt.Errorf("processor.max_failures must be >= 1, got %d", c.Processor.MaxFailures)
	}
	if c.Reporting.Enabled && c.Reporting.URL == "" {
		return fmt.Errorf("reporting.url is required when reporting is enabled")
	}
	return nil
}

// MatchedPath returns the directory for matched-face evidence.
func (c *StorageConfig) MatchedPath() string {
	return filepath.Join(c.DataDir, c.MatchedDir)
}

// UnknownPath returns the directory for unknown-face evidence.
func (c *StorageConfig) UnknownPath() string {
	return filepath.Join(c.DataDir, c.UnknownDir)
}

// AttendancePath returns the directory for attendance ledgers.
func (c *StorageConfig) AttendancePath() string {
	return filepath.Join(c.DataDir, c.AttendanceDir)
}

// setDefaults registers default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timezone", "UTC")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// Processor defaults mirror the reference deployment
	v.SetDefault("processor.threshold", 0.4)
	v.SetDefault("processor.required_confirmations", 3)
	v.SetDefault("processor.unknown_interval_seconds", 30)
	v.SetDefault("processor.frame_skip", 5)
	v.SetDefault("processor.min_face_size", 80)
	v.SetDefault("processor.reconnect_delay_seconds", 10)
	v.SetDefault("processor.max_failures", 10)
	v.SetDefault("processor.capture_width", 1920)
	v.SetDefault("processor.capture_height", 1080)
	v.SetDefault("processor.stream_width", 1280)
	v.SetDefault("processor.stream_height", 720)

	// Model defaults
	v.SetDefault("models.detector_input_width", 300)
	v.SetDefault("models.detector_input_height", 300)
	v.SetDefault("models.detection_confidence", 0.5)
	v.SetDefault("models.embedder_input_size", 160)

	// Gallery defaults
	v.SetDefault("gallery.path", "/data/gallery.json")

	// Storage defaults
	v.SetDefault("storage.data_dir", "/data")
	v.SetDefault("storage.matched_dir", "matched")
	v.SetDefault("storage.unknown_dir", "unknown")
	v.SetDefault("storage.attendance_dir", "attendance")

	// Reporting defaults
	v.SetDefault("reporting.enabled", false)
	v.SetDefault("reporting.app_id", 1)
	v.SetDefault("reporting.timeout_seconds", 5)
	v.SetDefault("reporting.min_interval_seconds", 10)

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "vision-hub")
	v.SetDefault("mqtt.topic", "vision-hub/detections")
}

// ensureDirectories makes sure all output directories exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.Storage.DataDir,
		cfg.Storage.MatchedPath(),
		cfg.Storage.UnknownPath(),
		cfg.Storage.AttendancePath(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}
