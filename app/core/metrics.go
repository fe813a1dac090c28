package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coursebrain/coursebrain/pkg/metrics"
)

type Metrics struct {
	apiResponseTime    *prometheus.HistogramVec
	apiErrorCounter    *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	stageErrorCounter  *prometheus.CounterVec
	embeddingBatchTime *prometheus.HistogramVec
	itemsProcessed     *prometheus.CounterVec
	queueDepth         *prometheus.GaugeVec
}

func NewMetrics(ns, system string) *Metrics {
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:    metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:    metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		stageDuration:      metrics.NewHistogramVec("pipeline_stage_duration", []string{"stage"}),
		stageErrorCounter:  metrics.NewCounterVec("pipeline_stage_error", []string{"stage"}),
		embeddingBatchTime: metrics.NewHistogramVec("embedding_batch_time", []string{"model"}),
		itemsProcessed:     metrics.NewCounterVec("items_processed", []string{"status"}),
		queueDepth:         metrics.NewGaugeVec("process_queue_depth", nil),
	}

	return m
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) StageTimer(stage string) *prometheus.Timer {
	return prometheus.NewTimer(m.stageDuration.WithLabelValues(stage))
}

func (m *Metrics) StageErrorInc(stage string) {
	m.stageErrorCounter.WithLabelValues(stage).Inc()
}

func (m *Metrics) EmbeddingBatchTimer(model string) *prometheus.Timer {
	return prometheus.NewTimer(m.embeddingBatchTime.WithLabelValues(model))
}

func (m *Metrics) ItemProcessedInc(status string) {
	m.itemsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.WithLabelValues().Set(float64(n))
}
