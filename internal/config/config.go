// Package config loads settings from an optional YAML file, HSKVISION_*
// environment variables and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g.
// HSKVISION_MOTION_ENABLED=true.
const EnvPrefix = "HSKVISION"

type Config struct {
	Capture       CaptureConfig       `mapstructure:"capture"`
	Motion        MotionConfig        `mapstructure:"motion"`
	Recording     RecordingConfig     `mapstructure:"recording"`
	TextDetection TextDetectionConfig `mapstructure:"text_detection"`
	OCR           OCRConfig           `mapstructure:"ocr"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Preview       PreviewConfig       `mapstructure:"preview"`
	Server        ServerConfig        `mapstructure:"server"`
}

type CaptureConfig struct {
	// Source is started automatically when set, e.g. "camera:0".
	Source string `mapstructure:"source"`
	// Camera labels the source in notifications. Defaults to Source.
	Camera   string        `mapstructure:"camera"`
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	Interval time.Duration `mapstructure:"interval"` // pacing for still image sources
	Loop     bool          `mapstructure:"loop"`
	// MeasureFrames is the window of the one-shot throughput measurement.
	MeasureFrames int `mapstructure:"measure_frames"`
}

type MotionConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	History          int     `mapstructure:"history"`
	VarThreshold     float64 `mapstructure:"var_threshold"`
	DetectShadows    bool    `mapstructure:"detect_shadows"`
	BinaryThreshold  int     `mapstructure:"binary_threshold"`
	KernelSize       int     `mapstructure:"kernel_size"`
	ErodeIterations  int     `mapstructure:"erode_iterations"`
	DilateIterations int     `mapstructure:"dilate_iterations"`
	MinArea          int     `mapstructure:"min_area"`
	ProcessWidth     int     `mapstructure:"process_width"`
	Draw             bool    `mapstructure:"draw"`
}

type RecordingConfig struct {
	MediaDir    string  `mapstructure:"media_dir"`
	Writer      string  `mapstructure:"writer"` // mjpeg or opencv
	FPS         float64 `mapstructure:"fps"`    // 0 = measured, else 30
	JPEGQuality int     `mapstructure:"jpeg_quality"`
}

type TextDetectionConfig struct {
	ModelPath     string  `mapstructure:"model_path"`
	LibraryPath   string  `mapstructure:"library_path"` // onnxruntime shared library
	InputName     string  `mapstructure:"input_name"`
	ScoreName     string  `mapstructure:"score_name"`
	GeometryName  string  `mapstructure:"geometry_name"`
	Layout        string  `mapstructure:"layout"` // nhwc or nchw
	InputWidth    int     `mapstructure:"input_width"`
	InputHeight   int     `mapstructure:"input_height"`
	ConfThreshold float64 `mapstructure:"conf_threshold"`
	NMSThreshold  float64 `mapstructure:"nms_threshold"`
}

type OCRConfig struct {
	Language       string `mapstructure:"language"`
	TessdataPrefix string `mapstructure:"tessdata_prefix"`
}

type NotifyConfig struct {
	WebhookURL   string        `mapstructure:"webhook_url"`
	RedisURL     string        `mapstructure:"redis_url"`
	RedisChannel string        `mapstructure:"redis_channel"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Interval     time.Duration `mapstructure:"interval"` // minimum spacing between alerts
	Burst        int           `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`   // json or text
	Output     string `mapstructure:"output"`   // stderr or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type PreviewConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	JPEGQuality     int           `mapstructure:"jpeg_quality"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ServerConfig struct {
	ImageCacheSize int `mapstructure:"image_cache_size"`
}

// Load reads configPath (optional) and applies environment overrides and
// defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Recording.MediaDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve media dir: %w", err)
		}
		cfg.Recording.MediaDir = filepath.Join(home, "Videos", "Gazer")
	}
	if cfg.Capture.Camera == "" {
		cfg.Capture.Camera = cfg.Capture.Source
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv can override it.
	v.SetDefault("capture.source", "")
	v.SetDefault("capture.camera", "")
	v.SetDefault("capture.width", 0)
	v.SetDefault("capture.height", 0)
	v.SetDefault("capture.interval", "0s")
	v.SetDefault("capture.loop", false)
	v.SetDefault("capture.measure_frames", 100)

	v.SetDefault("motion.enabled", false)
	v.SetDefault("motion.history", 500)
	v.SetDefault("motion.var_threshold", 16.0)
	v.SetDefault("motion.detect_shadows", true)
	v.SetDefault("motion.binary_threshold", 25)
	v.SetDefault("motion.kernel_size", 9)
	v.SetDefault("motion.erode_iterations", 1)
	v.SetDefault("motion.dilate_iterations", 3)
	v.SetDefault("motion.min_area", 0)
	v.SetDefault("motion.process_width", 0)
	v.SetDefault("motion.draw", true)

	v.SetDefault("recording.media_dir", "")
	v.SetDefault("recording.writer", "mjpeg")
	v.SetDefault("recording.fps", 0.0)
	v.SetDefault("recording.jpeg_quality", 90)

	v.SetDefault("text_detection.model_path", "")
	v.SetDefault("text_detection.library_path", "")
	v.SetDefault("text_detection.input_name", "input_images:0")
	v.SetDefault("text_detection.score_name", "feature_fusion/Conv_7/Sigmoid:0")
	v.SetDefault("text_detection.geometry_name", "feature_fusion/concat_3:0")
	v.SetDefault("text_detection.layout", "nhwc")
	v.SetDefault("text_detection.input_width", 320)
	v.SetDefault("text_detection.input_height", 320)
	v.SetDefault("text_detection.conf_threshold", 0.5)
	v.SetDefault("text_detection.nms_threshold", 0.4)

	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_prefix", "")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.redis_url", "")
	v.SetDefault("notify.redis_channel", "hskvision:motion")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.interval", "0s")
	v.SetDefault("notify.burst", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)

	v.SetDefault("preview.enabled", false)
	v.SetDefault("preview.addr", "127.0.0.1:8090")
	v.SetDefault("preview.jpeg_quality", 80)
	v.SetDefault("preview.shutdown_timeout", "5s")

	v.SetDefault("server.image_cache_size", 16)
}
