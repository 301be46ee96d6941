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

package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/metrics"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ engine.AttemptObserver  = (*metrics.Collector)(nil)
	_ network.HealthObserver  = (*metrics.Collector)(nil)
	_ mirror.AssemblyObserver = (*metrics.Collector)(nil)
)

func TestCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(metrics.WithRegisterer(registry))
	collector.ObserveAttempt("TransactionSubmit", "0.0.3", "retry", 10*time.Millisecond)
	collector.ObserveAttempt("TransactionSubmit", "0.0.3", "retry", 20*time.Millisecond)
	collector.ObserveAttempt("TransactionSubmit", "0.0.4", "accepted", 5*time.Millisecond)
	collector.ObserveNodeOutcome("0.0.3", "transient", 2, 500*time.Millisecond)
	collector.ObserveNodeOutcome("0.0.3", "success", 0, 0)
	collector.ObserveAssembly("emitted")
	collector.ObserveAssembly("emitted")
	collector.ObserveAssembly("duplicate")

	assert.InDelta(t, 2, testutil.ToFloat64(collector.AttemptsTotal.WithLabelValues("TransactionSubmit", "0.0.3", "retry")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.AttemptsTotal.WithLabelValues("TransactionSubmit", "0.0.4", "accepted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.NodeOutcomesTotal.WithLabelValues("0.0.3", "transient")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(collector.NodeFailures.WithLabelValues("0.0.3")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.AssemblyResultsTotal.WithLabelValues("emitted")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.AttemptDuration))

	expected := `
# HELP hiero_stream_assembly_results_total Total number of stream assembly events, by result
# TYPE hiero_stream_assembly_results_total counter
hiero_stream_assembly_results_total{result="duplicate"} 1
hiero_stream_assembly_results_total{result="emitted"} 2
`
	require.NoError(
		t,
		testutil.GatherAndCompare(registry, strings.NewReader(expected), "hiero_stream_assembly_results_total"),
	)
}

func TestCollectorNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(
		metrics.WithRegisterer(registry),
		metrics.WithNamespace("custom"),
	)
	collector.ObserveAssembly("timeout")
	count, err := testutil.GatherAndCount(registry, "custom_stream_assembly_results_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewCollector(metrics.WithRegisterer(registry))
	assert.Panics(t, func() {
		metrics.NewCollector(metrics.WithRegisterer(registry))
	})
}
