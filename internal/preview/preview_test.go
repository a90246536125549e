package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardsoftkoop/hsk-vision/internal/config"
	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

func newTestServer(t *testing.T) (*Server, *frame.Buffer) {
	t.Helper()
	buf := frame.NewBuffer()
	t.Cleanup(buf.Close)
	return New(config.PreviewConfig{Addr: "127.0.0.1:0"}, buf, nil), buf
}

func testFrame(seq uint64) frame.Frame {
	f := frame.New(16, 8, frame.LayoutRGB)
	for i := range f.Pix {
		f.Pix[i] = 200
	}
	f.Seq = seq
	return f
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestFrame_UnavailableBeforePublish(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/frame.jpg")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFrame_ServesLatestJPEG(t *testing.T) {
	s, buf := newTestServer(t)
	buf.Publish(testFrame(3))

	rec := get(t, s, "/frame.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("X-Frame-Seq"))

	img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestHealth(t *testing.T) {
	s, buf := newTestServer(t)
	buf.Publish(testFrame(1))
	buf.Publish(testFrame(2))

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(2), body.Buffer.Published)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hskvision_"), "expected hskvision metrics")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestStreamRouteRegistered(t *testing.T) {
	s, _ := newTestServer(t)
	var match mux.RouteMatch
	req := httptest.NewRequest(http.MethodGet, "/stream.mjpg", nil)
	require.True(t, s.router.Match(req, &match))
	tpl, err := match.Route.GetPathTemplate()
	require.NoError(t, err)
	assert.Equal(t, "/stream.mjpg", tpl)
}

func TestFeed_UpdatesStream(t *testing.T) {
	s, buf := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.feed(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return buf.Stats().Subscribers == 1 }, time.Second, 5*time.Millisecond)
	buf.Publish(testFrame(1))
	require.Eventually(t, func() bool { return s.streamed.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
	assert.Equal(t, 0, buf.Stats().Subscribers)
}

func TestShutdown_NotStarted(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
