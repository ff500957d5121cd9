// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package metrics exposes a Prometheus collector over a set of fbasync
// Connections, grounded in the same per-instance Describe/Collect shape
// the host application uses for its own domain metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the subset of Connection's accessors a collector needs. It
// exists so tests can supply a fake without standing up a real worker.
type Stats interface {
	ID() uint64
	IsOpen() bool
	QueueDepth() int
	RowsFetched() uint64
	CommandsProcessed() uint64
}

// Collector is a prometheus.Collector over a registry of named
// Connections. Connections are registered and unregistered as they're
// opened and closed; Collect only ever reads, never blocks on a worker.
type Collector struct {
	mu    sync.RWMutex
	named map[string]Stats

	openDesc       *prometheus.Desc
	queueDepthDesc *prometheus.Desc
	rowsFetchDesc  *prometheus.Desc
	processedDesc  *prometheus.Desc
}

// NewCollector builds an empty Collector. Register connections with Add.
func NewCollector() *Collector {
	return &Collector{
		named: make(map[string]Stats),
		openDesc: prometheus.NewDesc(
			"fbasync_connection_open",
			"Whether the named connection is currently open (1) or closed (0)",
			[]string{"connection"}, nil,
		),
		queueDepthDesc: prometheus.NewDesc(
			"fbasync_queue_depth",
			"Number of commands currently queued for the connection's worker",
			[]string{"connection"}, nil,
		),
		rowsFetchDesc: prometheus.NewDesc(
			"fbasync_rows_fetched_total",
			"Cumulative rows fetched across every statement the connection has driven",
			[]string{"connection"}, nil,
		),
		processedDesc: prometheus.NewDesc(
			"fbasync_commands_processed_total",
			"Cumulative commands executed by the connection's worker",
			[]string{"connection"}, nil,
		),
	}
}

// Add registers s under name, replacing any previous registration with
// the same name. Typically name is the DSN or a caller-chosen label.
func (c *Collector) Add(name string, s Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.named[name] = s
}

// Remove drops name from the collector, e.g. once its Connection closes
// for good.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.named, name)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDesc
	ch <- c.queueDepthDesc
	ch <- c.rowsFetchDesc
	ch <- c.processedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, s := range c.named {
		open := 0.0
		if s.IsOpen() {
			open = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, open, name)
		ch <- prometheus.MustNewConstMetric(c.queueDepthDesc, prometheus.GaugeValue, float64(s.QueueDepth()), name)
		ch <- prometheus.MustNewConstMetric(c.rowsFetchDesc, prometheus.CounterValue, float64(s.RowsFetched()), name)
		ch <- prometheus.MustNewConstMetric(c.processedDesc, prometheus.CounterValue, float64(s.CommandsProcessed()), name)
	}
}
