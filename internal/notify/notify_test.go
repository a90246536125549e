package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

var testMessage = Message{Camera: "camera:0", Host: "gazer", Session: "abc-123"}

func TestWebhook_Payload(t *testing.T) {
	var got map[string]string
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Notify(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]string{
		"value1": "camera:0",
		"value2": "gazer",
		"value3": "abc-123",
	}, got)
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, srv.Client()).Notify(context.Background(), testMessage)
	assert.ErrorContains(t, err, "502")
}

func TestRedisPublisher_Publishes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	pub, err := NewRedisPublisher("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer pub.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, pub.Notify(ctx, testMessage))

	select {
	case m := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &got))
		assert.Equal(t, "camera:0", got.Camera)
		assert.Equal(t, "abc-123", got.Session)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestNewRedisPublisher_BadURL(t *testing.T) {
	_, err := NewRedisPublisher("http://nope", "x")
	assert.Error(t, err)
}

type recordingNotifier struct {
	mu    sync.Mutex
	name  string
	msgs  []Message
	err   error
	delay time.Duration
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(ctx context.Context, msg Message) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func TestDispatcher_FansOut(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b", err: errors.New("down")}
	d := NewDispatcher(DispatcherConfig{}, testLogger(), a, b)

	assert.True(t, d.Dispatch(testMessage))
	assert.True(t, d.Dispatch(testMessage), "no throttling without an interval")
	d.Close()

	assert.Equal(t, 2, a.count())
	assert.Equal(t, 2, b.count())
}

func TestDispatcher_Throttles(t *testing.T) {
	n := &recordingNotifier{name: "n"}
	d := NewDispatcher(DispatcherConfig{Interval: time.Hour, Burst: 1}, testLogger(), n)

	assert.True(t, d.Dispatch(testMessage))
	assert.False(t, d.Dispatch(testMessage))
	d.Close()
	assert.Equal(t, 1, n.count())
}

func TestDispatcher_DoesNotBlock(t *testing.T) {
	slow := &recordingNotifier{name: "slow", delay: 200 * time.Millisecond}
	d := NewDispatcher(DispatcherConfig{}, testLogger(), slow)

	start := time.Now()
	d.Dispatch(testMessage)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	d.Close()
	assert.Equal(t, 1, slow.count(), "Close waits for in-flight deliveries")
}

func TestDispatcher_Timeout(t *testing.T) {
	slow := &recordingNotifier{name: "slow", delay: time.Minute}
	d := NewDispatcher(DispatcherConfig{Timeout: 20 * time.Millisecond}, testLogger(), slow)

	d.Dispatch(testMessage)
	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was not bounded by the timeout")
	}
	assert.Equal(t, 0, slow.count())
}

func TestDispatcher_ClosedAndEmpty(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{}, testLogger())
	assert.False(t, d.Dispatch(testMessage))
	assert.Equal(t, 0, d.Len())

	n := &recordingNotifier{name: "n"}
	d = NewDispatcher(DispatcherConfig{}, testLogger(), n)
	d.Close()
	assert.False(t, d.Dispatch(testMessage))
}
