package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は生成処理の Prometheus メトリクスです。
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics は専用レジストリにメトリクスを登録します。
// remaining は現在の残り回数を返す関数で、スクレイプ時に評価されます。
func NewMetrics(remaining func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "image_editor",
			Name:      "generations_total",
			Help:      "Number of generation attempts by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "image_editor",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation calls to the model service.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
	m.registry.MustRegister(m.generations, m.duration)
	if remaining != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "image_editor",
			Name:      "rate_limit_remaining",
			Help:      "Generations remaining in the current window.",
		}, remaining))
	}
	return m
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(result string, seconds float64) {
	m.generations.WithLabelValues(result).Inc()
	if result == resultSuccess || result == resultError {
		m.duration.Observe(seconds)
	}
}

const (
	resultSuccess  = "success"
	resultError    = "error"
	resultRejected = "rejected"
)
