// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostics

import "github.com/prometheus/client_golang/prometheus"

// PromMetrics is a MetricsSink that mirrors every emitted event into a
// Prometheus counter vector, labeled by channel and severity. Grounded on
// the teacher's client_golang usage throughout services/trace's
// exporters; separate from the ring-buffer storage above so the
// diagnostics pane (ring buffer reads) and the ops-facing scrape endpoint
// (Prometheus) stay independent consumers of the same Emit call.
type PromMetrics struct {
	events *prometheus.CounterVec
}

// NewPromMetrics registers its counter vector against reg (pass
// prometheus.DefaultRegisterer for the global registry).
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphshell",
		Subsystem: "diagnostics",
		Name:      "events_total",
		Help:      "Diagnostic events emitted, by channel and severity.",
	}, []string{"channel", "severity"})
	reg.MustRegister(events)
	return &PromMetrics{events: events}
}

func (p *PromMetrics) ObserveEvent(channel string, sev Severity) {
	p.events.WithLabelValues(channel, sev.String()).Inc()
}
