// Package metrics records prompt detection and answering counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder defines the interface for recording monitor metrics.
type Recorder interface {
	// ObserveDetection counts a classified prompt by family and prompt type.
	ObserveDetection(family, promptType string)
	// ObserveRejection counts a candidate menu turned down by a guard.
	ObserveRejection(family, guard string)
	// ObserveAnswer counts a sent answer. mode is "keys" or "text".
	ObserveAnswer(family, mode string, success bool)
	// ObserveCapture records how long a pane capture took.
	ObserveCapture(transport string, d time.Duration, err error)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder { return NoopRecorder{} }

func (NoopRecorder) ObserveDetection(_, _ string) {}
func (NoopRecorder) ObserveRejection(_, _ string) {}
func (NoopRecorder) ObserveAnswer(_, _ string, _ bool) {}
func (NoopRecorder) ObserveCapture(_ string, _ time.Duration, _ error) {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	detectionsTotal *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	answersTotal    *prometheus.CounterVec
	captureDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the bdesk metrics on a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		detectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdesk_prompt_detections_total",
				Help: "Prompts detected by CLI tool family and prompt type",
			},
			[]string{"family", "type"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdesk_prompt_rejections_total",
				Help: "Candidate menus rejected by a detection guard",
			},
			[]string{"family", "guard"},
		),
		answersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdesk_prompt_answers_total",
				Help: "Answers sent by family, encoding mode and status",
			},
			[]string{"family", "mode", "status"},
		),
		captureDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bdesk_capture_duration_seconds",
				Help:    "Duration of pane captures in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "status"},
		),
	}
}

func (p *PrometheusRecorder) ObserveDetection(family, promptType string) {
	p.detectionsTotal.WithLabelValues(family, promptType).Inc()
}

func (p *PrometheusRecorder) ObserveRejection(family, guard string) {
	p.rejectionsTotal.WithLabelValues(family, guard).Inc()
}

func (p *PrometheusRecorder) ObserveAnswer(family, mode string, success bool) {
	p.answersTotal.WithLabelValues(family, mode, status(success)).Inc()
}

func (p *PrometheusRecorder) ObserveCapture(transport string, d time.Duration, err error) {
	p.captureDuration.WithLabelValues(transport, status(err == nil)).Observe(d.Seconds())
}

// Handler serves the recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
