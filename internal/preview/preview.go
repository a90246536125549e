// Package preview serves the published frames over HTTP: a single JPEG
// snapshot, an MJPEG stream, Prometheus metrics and a health check.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hardsoftkoop/hsk-vision/internal/config"
	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	imgproc "github.com/hardsoftkoop/hsk-vision/internal/imaging"
	"github.com/hardsoftkoop/hsk-vision/internal/logger"
	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
)

// Server is the preview HTTP server.
type Server struct {
	cfg        config.PreviewConfig
	buffer     *frame.Buffer
	router     *mux.Router
	stream     *mjpeg.Stream
	httpServer *http.Server
	log        *logrus.Entry

	streamed atomic.Uint64
}

// New builds the router. Nothing listens until Start.
func New(cfg config.PreviewConfig, buf *frame.Buffer, log *logrus.Entry) *Server {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logger.Discard())
	}
	s := &Server{
		cfg:    cfg,
		buffer: buf,
		router: mux.NewRouter(),
		stream: mjpeg.NewStream(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/frame.jpg", s.handleFrame).Methods("GET")
	s.router.Handle("/stream.mjpg", s.stream).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Start listens on the configured address and feeds the MJPEG stream until
// ctx is cancelled, then shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go s.feed(feedCtx)

	s.log.WithField("addr", s.cfg.Addr).Info("Starting preview server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("preview server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections. Open MJPEG clients are not waited
// for beyond ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("Shutting down preview server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return s.httpServer.Close()
		}
		return fmt.Errorf("failed to shutdown preview server: %w", err)
	}
	s.log.Info("Preview server shutdown complete")
	return nil
}

// feed pushes every published frame into the MJPEG stream.
func (s *Server) feed(ctx context.Context) {
	sub := s.buffer.Subscribe()
	defer sub.Close()

	var lastDropped uint64
	for {
		f, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if d := sub.Dropped(); d > lastDropped {
			metrics.AddFramesDropped(d - lastDropped)
			lastDropped = d
		}

		jpeg, err := imgproc.EncodeJPEG(f.Image(), s.cfg.JPEGQuality)
		if err != nil {
			s.log.WithError(err).Warn("Failed to encode preview frame")
			continue
		}
		s.stream.UpdateJPEG(jpeg)
		s.streamed.Add(1)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f, ok := s.buffer.Latest()
	if !ok {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
		return
	}
	jpeg, err := imgproc.EncodeJPEG(f.Image(), s.cfg.JPEGQuality)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", fmt.Sprintf("%d", f.Seq))
	_, _ = w.Write(jpeg)
}

type healthResponse struct {
	Status   string      `json:"status"`
	Buffer   frame.Stats `json:"buffer"`
	Streamed uint64      `json:"streamed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Buffer:   s.buffer.Stats(),
		Streamed: s.streamed.Load(),
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": w.Header().Get("X-Request-ID"),
			"duration":   time.Since(start),
		}).Debug("Preview request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
