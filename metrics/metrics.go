/*
Copyright © 2020 Disfetch Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the fetch session's Prometheus metrics. All
// observe methods are safe on a nil receiver so the core can
// run without a registry.
type Metrics struct {
	CurrentOffset   *prometheus.GaugeVec
	CommittedOffset *prometheus.GaugeVec
	RecordsEmitted  *prometheus.CounterVec
	BatchesConsumed prometheus.Counter
	CommitsTotal    *prometheus.CounterVec
	CommitDuration  prometheus.Gauge
	LastWatermark   prometheus.Gauge
}

// New creates and registers all fetch metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CurrentOffset: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disfetch_current_offset",
			Help: "Offset of the last emitted record per partition.",
		}, []string{"stream", "partition"}),

		CommittedOffset: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "disfetch_committed_offset",
			Help: "Last offset acknowledged to the remote service per partition.",
		}, []string{"stream", "partition"}),

		RecordsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disfetch_records_emitted_total",
			Help: "Records emitted downstream per partition.",
		}, []string{"stream", "partition"}),

		BatchesConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "disfetch_batches_consumed_total",
			Help: "Batches drained from the handover.",
		}),

		CommitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disfetch_commits_total",
			Help: "Executed offset commits by result.",
		}, []string{"result"}),

		CommitDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "disfetch_commit_duration_seconds",
			Help: "Duration of the most recent offset commit.",
		}),

		LastWatermark: factory.NewGauge(prometheus.GaugeOpts{
			Name: "disfetch_last_watermark",
			Help: "Most recent global watermark in epoch milliseconds.",
		}),
	}
}

func (m *Metrics) ObserveRecord(stream string, partition int32, offset int64) {
	if m == nil {
		return
	}
	p := strconv.Itoa(int(partition))
	m.RecordsEmitted.WithLabelValues(stream, p).Inc()
	m.CurrentOffset.WithLabelValues(stream, p).Set(float64(offset))
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.BatchesConsumed.Inc()
}

func (m *Metrics) ObserveCommittedOffset(stream string, partition int32, offset int64) {
	if m == nil {
		return
	}
	m.CommittedOffset.WithLabelValues(stream, strconv.Itoa(int(partition))).Set(float64(offset))
}

func (m *Metrics) ObserveCommit(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.CommitsTotal.WithLabelValues(result).Inc()
	m.CommitDuration.Set(duration.Seconds())
}

func (m *Metrics) ObserveWatermark(timestamp int64) {
	if m == nil {
		return
	}
	m.LastWatermark.Set(float64(timestamp))
}

// Expose serves the default registry on /metrics.
func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
