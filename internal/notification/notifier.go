// Package notification delivers run lifecycle alerts to external channels
// (Telegram, generic webhooks). Evaluation runs can take a long time, so
// completion and failure alerts are sent out-of-band.
package notification

import (
	"context"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts locally. Used when no external channel is configured.
type LogNotifier struct{}

func (n LogNotifier) Send(_ context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// FanOut delivers each alert to every backend. Individual failures are
// logged and do not stop delivery to the remaining backends.
type FanOut struct {
	backends []Notifier
}

// NewFanOut creates a fan-out notifier. With no backends it falls back
// to LogNotifier.
func NewFanOut(backends ...Notifier) *FanOut {
	if len(backends) == 0 {
		backends = []Notifier{LogNotifier{}}
	}
	return &FanOut{backends: backends}
}

func (f *FanOut) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, b := range f.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] backend error: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
