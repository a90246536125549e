// Package notify delivers motion alerts to external sinks. Delivery is best
// effort: failures are logged and counted, never returned to the capture
// loop.
package notify

import (
	"context"
	"time"
)

// Message describes one motion start.
type Message struct {
	Camera  string    `json:"camera"`
	Host    string    `json:"host"`
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
}

// Notifier delivers a message to one sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}
