package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/hardsoftkoop/hsk-vision/internal/capture"
	"github.com/hardsoftkoop/hsk-vision/internal/config"
	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	imgproc "github.com/hardsoftkoop/hsk-vision/internal/imaging"
	"github.com/hardsoftkoop/hsk-vision/internal/logger"
	"github.com/hardsoftkoop/hsk-vision/internal/motion"
	"github.com/hardsoftkoop/hsk-vision/internal/notify"
	"github.com/hardsoftkoop/hsk-vision/internal/ocr"
	"github.com/hardsoftkoop/hsk-vision/internal/preview"
	"github.com/hardsoftkoop/hsk-vision/internal/recorder"
	"github.com/hardsoftkoop/hsk-vision/internal/server"
	"github.com/hardsoftkoop/hsk-vision/internal/source"
	"github.com/hardsoftkoop/hsk-vision/internal/textdetect"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("hsk-vision - camera capture, motion recording and text reading over MCP")
	fmt.Println()
	fmt.Println("Usage: hsk-vision [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>  YAML configuration file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables override configuration keys, e.g.")
	fmt.Println("  HSKVISION_LOGGING_LEVEL=debug")
	fmt.Println("  HSKVISION_CAPTURE_SOURCE=camera:0")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version information")
	flag.BoolVar(showVersion, "v", false, "Print version information")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("hsk-vision %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting hsk-vision")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server error")
	}
	log.Info("Shutdown complete")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newWriter, err := writerFactory(&cfg.Recording)
	if err != nil {
		return err
	}

	dispatcher, err := newDispatcher(&cfg.Notify, log)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	detector, closeDetector, err := newTextDetector(&cfg.TextDetection, log)
	if err != nil {
		return err
	}
	defer closeDetector()

	buf := frame.NewBuffer()
	defer buf.Close()

	var srv *server.Server
	worker := capture.NewWorker(capture.Options{
		Buffer: buf,
		Open: func(id string) (source.Source, error) {
			return source.Open(id, source.Options{
				Width:    cfg.Capture.Width,
				Height:   cfg.Capture.Height,
				Interval: cfg.Capture.Interval,
				Loop:     cfg.Capture.Loop,
			})
		},
		Motion:        motionConfig(&cfg.Motion),
		MotionEnabled: cfg.Motion.Enabled,
		Recorder: recorder.Options{
			MediaDir:     cfg.Recording.MediaDir,
			FPS:          cfg.Recording.FPS,
			CoverQuality: cfg.Recording.JPEGQuality,
			NewWriter:    newWriter,
			Logger:       logger.WithComponent(log, "recorder"),
		},
		MeasureFrames: cfg.Capture.MeasureFrames,
		Camera:        cfg.Capture.Camera,
		Notifier:      dispatcher,
		Logger:        logger.WithComponent(log, "capture"),
		OnEvent:       func(e capture.Event) { srv.PushEvent(e) },
	})
	defer worker.Stop()

	srv = server.New(server.Deps{
		Worker:   worker,
		Cache:    imgproc.NewImageCache(cfg.Server.ImageCacheSize),
		Detector: detector,
		OCR: &ocr.Recognizer{
			Language:       cfg.OCR.Language,
			TessdataPrefix: cfg.OCR.TessdataPrefix,
		},
		Logger:  logger.WithComponent(log, "mcp"),
		Version: Version,
	})

	if cfg.Preview.Enabled {
		pv := preview.New(cfg.Preview, buf, logger.WithComponent(log, "preview"))
		go func() {
			if err := pv.Start(ctx); err != nil {
				log.WithError(err).Error("Preview server stopped")
			}
		}()
	}

	if cfg.Capture.Source != "" {
		session, err := worker.Start(cfg.Capture.Source)
		if err != nil {
			// The client can still start a source later.
			log.WithError(err).WithField("source", cfg.Capture.Source).Warn("Failed to start configured source")
		} else {
			log.WithField("session_id", session.ID).Info("Capture started")
		}
	}

	return srv.Run(ctx, os.Stdin, os.Stdout)
}

func writerFactory(cfg *config.RecordingConfig) (recorder.WriterFactory, error) {
	switch cfg.Writer {
	case "", "mjpeg":
		return recorder.NewMJPEGWriterFactory(cfg.JPEGQuality), nil
	case "opencv":
		f, err := recorder.NewCVWriterFactory()
		if err != nil {
			return nil, fmt.Errorf("failed to create video writer: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown recording writer %q", cfg.Writer)
	}
}

func newDispatcher(cfg *config.NotifyConfig, log *logrus.Logger) (*notify.Dispatcher, error) {
	var notifiers []notify.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.RedisURL != "" {
		pub, err := notify.NewRedisPublisher(cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		notifiers = append(notifiers, pub)
	}
	return notify.NewDispatcher(notify.DispatcherConfig{
		Timeout:  cfg.Timeout,
		Interval: cfg.Interval,
		Burst:    cfg.Burst,
	}, logger.WithComponent(log, "notify"), notifiers...), nil
}

// newTextDetector loads the EAST model when one is configured. A nil detector
// makes text_detect fall back to the edge heuristic.
func newTextDetector(cfg *config.TextDetectionConfig, log *logrus.Logger) (*textdetect.Detector, func(), error) {
	if cfg.ModelPath == "" {
		return nil, func() {}, nil
	}
	layout, err := textdetect.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, nil, err
	}
	network, err := textdetect.NewONNXNetwork(textdetect.ONNXConfig{
		ModelPath:    cfg.ModelPath,
		LibraryPath:  cfg.LibraryPath,
		InputName:    cfg.InputName,
		ScoreName:    cfg.ScoreName,
		GeometryName: cfg.GeometryName,
		Layout:       layout,
		InputWidth:   cfg.InputWidth,
		InputHeight:  cfg.InputHeight,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load text detection model: %w", err)
	}

	dcfg := textdetect.DefaultConfig()
	dcfg.InputWidth = cfg.InputWidth
	dcfg.InputHeight = cfg.InputHeight
	dcfg.ConfThreshold = float32(cfg.ConfThreshold)
	dcfg.NMSThreshold = float32(cfg.NMSThreshold)
	detector, err := textdetect.NewDetector(network, dcfg)
	if err != nil {
		network.Destroy()
		return nil, nil, err
	}
	log.WithField("model", cfg.ModelPath).Info("Text detection model loaded")
	return detector, network.Destroy, nil
}

func motionConfig(cfg *config.MotionConfig) motion.Config {
	mc := motion.DefaultConfig()
	mc.History = cfg.History
	mc.VarThreshold = cfg.VarThreshold
	mc.DetectShadows = cfg.DetectShadows
	mc.BinaryThreshold = uint8(cfg.BinaryThreshold)
	mc.KernelSize = cfg.KernelSize
	mc.ErodeIterations = cfg.ErodeIterations
	mc.DilateIterations = cfg.DilateIterations
	mc.MinArea = cfg.MinArea
	mc.ProcessWidth = cfg.ProcessWidth
	mc.Draw = cfg.Draw
	return mc
}
