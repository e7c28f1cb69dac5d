package logrecord

import (
	"errors"
	"fmt"
	"time"
)

// Level is the severity attached to a record.
type Level string

// Supported levels.
const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Record is one log emission tied to a request.
type Record struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Level is the record severity.
	Level Level
	// Message is a short, fixed description of what happened.
	Message string
	// Path is the request path that produced the record.
	Path string
	// RequestID correlates the record with the X-Request-ID header.
	RequestID string
	// TraceID is the hex trace id of the request span, when one is recording.
	TraceID string
}

// Validate performs coarse validation on Record payloads.
func (r Record) Validate() error {
	if r.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	switch r.Level {
	case LevelInfo, LevelWarning, LevelError:
	default:
		return fmt.Errorf("unknown level %q", r.Level)
	}
	return nil
}
