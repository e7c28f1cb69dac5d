package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/catalog-service/internal/logrecord"
)

// PrometheusSink counts delivered records by level.
type PrometheusSink struct {
	records *prometheus.CounterVec
}

// NewPrometheusSink registers the collector against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_log_records_total",
			Help: "Total number of request log records delivered, labeled by level.",
		}, []string{"level"}),
	}
	if err := reg.Register(s.records); err != nil {
		return nil, fmt.Errorf("register log record collector: %w", err)
	}
	return s, nil
}

// Consume increments the per-level counter for each record.
func (s *PrometheusSink) Consume(_ context.Context, batch []logrecord.Record) error {
	for _, rec := range batch {
		s.records.WithLabelValues(string(rec.Level)).Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
