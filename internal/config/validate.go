package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Motion.Validate(); err != nil {
		return fmt.Errorf("motion config: %w", err)
	}

	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	if err := c.TextDetection.Validate(); err != nil {
		return fmt.Errorf("text detection config: %w", err)
	}

	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Preview.Validate(); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}

	if c.Server.ImageCacheSize < 1 {
		return fmt.Errorf("server config: image_cache_size must be positive")
	}

	return nil
}

func (c *CaptureConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if c.MeasureFrames < 2 {
		return fmt.Errorf("measure_frames must be at least 2")
	}
	return nil
}

func (m *MotionConfig) Validate() error {
	if m.History < 1 {
		return fmt.Errorf("history must be positive")
	}
	if m.VarThreshold <= 0 {
		return fmt.Errorf("var_threshold must be positive")
	}
	if m.BinaryThreshold < 0 || m.BinaryThreshold > 255 {
		return fmt.Errorf("binary_threshold must be between 0 and 255")
	}
	if m.KernelSize < 1 {
		return fmt.Errorf("kernel_size must be positive")
	}
	if m.ErodeIterations < 0 || m.DilateIterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}
	if m.MinArea < 0 || m.ProcessWidth < 0 {
		return fmt.Errorf("min_area and process_width must not be negative")
	}
	return nil
}

func (r *RecordingConfig) Validate() error {
	switch r.Writer {
	case "mjpeg", "opencv":
	default:
		return fmt.Errorf("unknown writer %q (want mjpeg or opencv)", r.Writer)
	}
	if r.FPS < 0 {
		return fmt.Errorf("fps must not be negative")
	}
	if r.JPEGQuality < 1 || r.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (t *TextDetectionConfig) Validate() error {
	switch strings.ToLower(t.Layout) {
	case "nhwc", "nchw":
	default:
		return fmt.Errorf("unknown layout %q (want nhwc or nchw)", t.Layout)
	}
	if t.InputWidth <= 0 || t.InputWidth%32 != 0 || t.InputHeight <= 0 || t.InputHeight%32 != 0 {
		return fmt.Errorf("input size %dx%d must be a positive multiple of 32", t.InputWidth, t.InputHeight)
	}
	if t.ConfThreshold < 0 || t.ConfThreshold > 1 {
		return fmt.Errorf("conf_threshold must be between 0 and 1")
	}
	if t.NMSThreshold < 0 || t.NMSThreshold > 1 {
		return fmt.Errorf("nms_threshold must be between 0 and 1")
	}
	return nil
}

func (n *NotifyConfig) Validate() error {
	if n.WebhookURL != "" {
		u, err := url.Parse(n.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("webhook_url must be an http(s) URL")
		}
	}
	if n.RedisURL != "" && !strings.HasPrefix(n.RedisURL, "redis://") && !strings.HasPrefix(n.RedisURL, "rediss://") {
		return fmt.Errorf("redis_url must start with redis:// or rediss://")
	}
	if n.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if n.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if n.Burst < 1 {
		return fmt.Errorf("burst must be positive")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("log output is required")
	}
	// stdout carries the JSON-RPC stream.
	if l.Output == "stdout" {
		return fmt.Errorf("log output cannot be stdout")
	}
	return nil
}

func (p *PreviewConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Addr == "" {
		return fmt.Errorf("addr is required when the preview is enabled")
	}
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100")
	}
	return nil
}
