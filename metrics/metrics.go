// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports client activity as Prometheus collectors.
//
// A Collector implements the observer interfaces of the engine, network and mirror
// packages, so a single value can be handed to each of them:
//
//	collector := metrics.NewCollector(metrics.WithRegisterer(prometheus.DefaultRegisterer))
//	client, err := hiero.NewClient(hiero.WithMetrics(collector))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "hiero"

type Config struct {
	Namespace  string
	Registerer prometheus.Registerer
}

type ConfigOptionFunc func(*Config)

func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		Namespace: defaultNamespace,
	}
	for _, option := range options {
		option(&c)
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.NewRegistry()
	}
	return c
}

// WithNamespace specifies the metric name prefix
func WithNamespace(namespace string) ConfigOptionFunc {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegisterer specifies where the collectors are registered. A private registry is used
// by default
func WithRegisterer(registerer prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.Registerer = registerer
	}
}

// Collector holds the client's Prometheus metrics
type Collector struct {
	AttemptsTotal        *prometheus.CounterVec
	AttemptDuration      *prometheus.HistogramVec
	NodeOutcomesTotal    *prometheus.CounterVec
	NodeFailures         *prometheus.GaugeVec
	NodeBackoffSeconds   *prometheus.GaugeVec
	AssemblyResultsTotal *prometheus.CounterVec
}

// NewCollector creates and registers the client metrics. It panics if a metric with the
// same name is already registered with the configured registerer
func NewCollector(options ...ConfigOptionFunc) *Collector {
	config := NewConfig(options...)
	factory := promauto.With(config.Registerer)
	return &Collector{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "attempts_total",
				Help:      "Total number of attempts made against nodes, by operation kind and result",
			},
			[]string{"kind", "node", "result"},
		),
		AttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of attempts made against nodes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		NodeOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "node_outcomes_total",
				Help:      "Total number of health outcomes recorded against nodes",
			},
			[]string{"node", "outcome"},
		),
		NodeFailures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "node_consecutive_failures",
				Help:      "Current number of consecutive failures for each node",
			},
			[]string{"node"},
		),
		NodeBackoffSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "node_backoff_seconds",
				Help:      "Most recent backoff applied to each node in seconds",
			},
			[]string{"node"},
		),
		AssemblyResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "stream_assembly_results_total",
				Help:      "Total number of stream assembly events, by result",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) ObserveAttempt(kind string, node string, result string, duration time.Duration) {
	c.AttemptsTotal.WithLabelValues(kind, node, result).Inc()
	c.AttemptDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *Collector) ObserveNodeOutcome(node string, outcome string, failures int, backoff time.Duration) {
	c.NodeOutcomesTotal.WithLabelValues(node, outcome).Inc()
	c.NodeFailures.WithLabelValues(node).Set(float64(failures))
	c.NodeBackoffSeconds.WithLabelValues(node).Set(backoff.Seconds())
}

func (c *Collector) ObserveAssembly(result string) {
	c.AssemblyResultsTotal.WithLabelValues(result).Inc()
}
