// Package metrics owns the process-wide prometheus registry. Callers
// build their vectors through the constructors here so every metric
// lands in the same registry under the service namespace.
package metrics

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

const defaultKey = "default"

var defaultManager map[string]*manager

func init() {
	defaultManager = make(map[string]*manager)
	defaultManager[defaultKey] = &manager{
		namespace: defaultKey,
		system:    defaultKey,
		registry:  prometheus.NewRegistry(),
	}
}

func SetupMetricsManager(ns, system string, registry *prometheus.Registry) {
	defaultManager[defaultKey] = &manager{
		namespace: ns,
		system:    system,
		registry:  registry,
	}
	register(registry, collectors.NewGoCollector(), "go_collector")
}

func MustGetDefaultManager() (string, string, prometheus.Registerer) {
	m := defaultManager[defaultKey]
	return m.namespace, m.system, m.registry
}

// register keeps duplicate registration from taking the process down;
// re-registering the same vector only costs a warning.
func register(registerer prometheus.Registerer, c prometheus.Collector, name string) {
	if err := registerer.Register(c); err != nil {
		slog.Warn("Metric registration skipped",
			slog.String("metric", name), slog.String("error", err.Error()))
	}
}

func NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	ns, system, registerer := MustGetDefaultManager()

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, ns, system),
		},
		labels,
	)
	vec.WithLabelValues(make([]string, len(labels))...).Add(0)

	register(registerer, vec, name)
	return vec
}

func NewHistogramVec(name string, labels []string) *prometheus.HistogramVec {
	ns, system, registerer := MustGetDefaultManager()

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, ns, system),
		},
		labels,
	)
	vec.WithLabelValues(make([]string, len(labels))...).Observe(0)

	register(registerer, vec, name)
	return vec
}

func NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	ns, system, registerer := MustGetDefaultManager()

	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, ns, system),
		},
		labels,
	)
	vec.WithLabelValues(make([]string, len(labels))...).Add(0)

	register(registerer, vec, name)
	return vec
}

func DefaultExportHandler() gin.HandlerFunc {
	registry := defaultManager[defaultKey].registry
	h := promhttp.InstrumentMetricHandler(
		registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// FmtFixer rewrites dots and dashes, which prometheus rejects in metric
// names, into underscores.
func FmtFixer(in string) string {
	return strings.Replace(strings.Replace(in, ".", "_", -1), "-", "_", -1)
}
