package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshelf/bookharvest/internal/progress"
)

// PrometheusSink exports harvest progress metrics. It owns all collectors
// for run lifecycle and per-item outcomes.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	itemsDone     prometheus.Counter
	itemsFailed   *prometheus.CounterVec
	itemsLeft     prometheus.Gauge
	quotaUsed     prometheus.Gauge
	callDuration  prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_runs_started_total",
			Help: "Total harvest runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_runs_completed_total",
			Help: "Total harvest runs completed partitioned by stop reason.",
		}, []string{"reason"}),
		itemsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_items_processed_total",
			Help: "Candidate items with a terminal success outcome.",
		}),
		itemsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_items_failed_total",
			Help: "Candidate items recorded as failed, partitioned by reason.",
		}, []string{"reason"}),
		itemsLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_items_remaining",
			Help: "Candidate items still unprocessed in the current run.",
		}),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_quota_used",
			Help: "Cumulative remote calls issued this run.",
		}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harvest_call_duration_seconds",
			Help:    "Remote enrichment call latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.itemsDone,
		s.itemsFailed,
		s.itemsLeft,
		s.quotaUsed,
		s.callDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. Safe for
// concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		reason := evt.Reason
		if reason == "" {
			reason = "unknown"
		}
		s.runsCompleted.WithLabelValues(reason).Inc()
	case progress.StageItemDone:
		s.itemsDone.Inc()
		if evt.Dur > 0 {
			s.callDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StageItemError:
		s.itemsFailed.WithLabelValues(evt.Reason).Inc()
		if evt.Dur > 0 {
			s.callDuration.Observe(evt.Dur.Seconds())
		}
	}
	switch evt.Stage {
	case progress.StageItemDone, progress.StageItemError, progress.StageRunHB, progress.StageRunDone:
		s.itemsLeft.Set(float64(evt.Remaining))
		s.quotaUsed.Set(float64(evt.QuotaUsed))
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
