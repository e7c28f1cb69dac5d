// Package sinks contains logrecord.Sink implementations: a zap sink that
// writes each record as a structured log line and a Prometheus sink that
// counts records by level.
package sinks
