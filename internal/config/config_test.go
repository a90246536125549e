package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Capture.MeasureFrames)
	assert.False(t, cfg.Motion.Enabled)
	assert.Equal(t, 500, cfg.Motion.History)
	assert.Equal(t, 16.0, cfg.Motion.VarThreshold)
	assert.Equal(t, 25, cfg.Motion.BinaryThreshold)
	assert.Equal(t, 9, cfg.Motion.KernelSize)
	assert.Equal(t, "mjpeg", cfg.Recording.Writer)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "Videos", "Gazer"), cfg.Recording.MediaDir)
	assert.Equal(t, 320, cfg.TextDetection.InputWidth)
	assert.Equal(t, 0.5, cfg.TextDetection.ConfThreshold)
	assert.Equal(t, 0.4, cfg.TextDetection.NMSThreshold)
	assert.Equal(t, "nhwc", cfg.TextDetection.Layout)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Preview.Enabled)
	assert.Equal(t, 16, cfg.Server.ImageCacheSize)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
capture:
  source: "camera:1"
  interval: 250ms
motion:
  enabled: true
  process_width: 320
recording:
  media_dir: /tmp/gazer
  fps: 15
notify:
  webhook_url: https://maker.example.com/trigger/motion
  interval: 1m
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "camera:1", cfg.Capture.Source)
	assert.Equal(t, "camera:1", cfg.Capture.Camera, "camera label defaults to the source")
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.Interval)
	assert.True(t, cfg.Motion.Enabled)
	assert.Equal(t, 320, cfg.Motion.ProcessWidth)
	assert.Equal(t, "/tmp/gazer", cfg.Recording.MediaDir)
	assert.Equal(t, 15.0, cfg.Recording.FPS)
	assert.Equal(t, time.Minute, cfg.Notify.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HSKVISION_MOTION_ENABLED", "true")
	t.Setenv("HSKVISION_OCR_LANGUAGE", "deu")
	t.Setenv("HSKVISION_RECORDING_MEDIA_DIR", "/srv/media")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Motion.Enabled)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, "/srv/media", cfg.Recording.MediaDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HSKVISION_RECORDING_WRITER", "ffmpeg")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording config")
}

func validConfig() *Config {
	return &Config{
		Capture:   CaptureConfig{MeasureFrames: 100},
		Motion:    MotionConfig{History: 500, VarThreshold: 16, BinaryThreshold: 25, KernelSize: 9},
		Recording: RecordingConfig{Writer: "mjpeg", JPEGQuality: 90},
		TextDetection: TextDetectionConfig{
			Layout: "nhwc", InputWidth: 320, InputHeight: 320, ConfThreshold: 0.5, NMSThreshold: 0.4,
		},
		Notify:  NotifyConfig{Timeout: time.Second, Burst: 1},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		Server:  ServerConfig{ImageCacheSize: 4},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"stdout logging", func(c *Config) { c.Logging.Output = "stdout" }, "cannot be stdout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad writer", func(c *Config) { c.Recording.Writer = "x264" }, "unknown writer"},
		{"negative fps", func(c *Config) { c.Recording.FPS = -1 }, "fps"},
		{"input not multiple of 32", func(c *Config) { c.TextDetection.InputWidth = 300 }, "multiple of 32"},
		{"bad layout", func(c *Config) { c.TextDetection.Layout = "hwc" }, "unknown layout"},
		{"zero history", func(c *Config) { c.Motion.History = 0 }, "history"},
		{"threshold range", func(c *Config) { c.Motion.BinaryThreshold = 300 }, "binary_threshold"},
		{"webhook scheme", func(c *Config) { c.Notify.WebhookURL = "ftp://x" }, "webhook_url"},
		{"redis scheme", func(c *Config) { c.Notify.RedisURL = "localhost:6379" }, "redis_url"},
		{"preview without addr", func(c *Config) { c.Preview = PreviewConfig{Enabled: true, JPEGQuality: 80} }, "addr"},
		{"measure window", func(c *Config) { c.Capture.MeasureFrames = 1 }, "measure_frames"},
		{"cache size", func(c *Config) { c.Server.ImageCacheSize = 0 }, "image_cache_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
