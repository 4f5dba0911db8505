package monitor

import (
	"log"
	"time"

	"github.com/patruff/moltapp-sub001/internal/events"
)

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the standard logger.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Println("🚨 " + message)
	return nil
}

func formatAlert(msg any) string {
	return "[" + time.Now().UTC().Format(time.RFC3339) + "] " + toString(msg)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case events.Alert:
		return t.Level + ": " + t.Message
	case *events.Alert:
		return t.Level + ": " + t.Message
	default:
		return "alert triggered"
	}
}
