package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailauth"

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	registrations  prometheus.Counter
	logins         *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	otpSent        *prometheus.CounterVec
	otpVerified    *prometheus.CounterVec
	otpSwept       prometheus.Counter
	emailDispatch  prometheus.Histogram
	rateLimited    *prometheus.CounterVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewPrometheus creates a PrometheusRecorder with Go runtime and process
// collectors registered alongside the application metrics.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Count of registered users",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Count of login attempts by outcome",
		}, []string{"status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Count of token refresh attempts by outcome",
		}, []string{"status"}),
		otpSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "sent_total",
			Help:      "Count of OTP send attempts by outcome",
		}, []string{"status"}),
		otpVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "Count of OTP verification attempts by outcome",
		}, []string{"status"}),
		otpSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "swept_total",
			Help:      "Count of expired OTP records removed by the sweeper",
		}),
		emailDispatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "dispatch_duration_seconds",
			Help:      "Latency distribution of email dispatch",
			Buckets:   histogramBuckets,
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"scope"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.registrations,
		p.logins,
		p.refreshes,
		p.otpSent,
		p.otpVerified,
		p.otpSwept,
		p.emailDispatch,
		p.rateLimited,
		p.requestTotal,
		p.requestLatency,
	)
	return p
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncRegistration() { p.registrations.Inc() }
func (p *PrometheusRecorder) IncLogin(status string) { p.logins.WithLabelValues(status).Inc() }
func (p *PrometheusRecorder) IncRefresh(status string) { p.refreshes.WithLabelValues(status).Inc() }
func (p *PrometheusRecorder) IncOTPSent(status string) { p.otpSent.WithLabelValues(status).Inc() }
func (p *PrometheusRecorder) IncOTPVerified(status string) { p.otpVerified.WithLabelValues(status).Inc() }
func (p *PrometheusRecorder) IncRateLimited(scope string) { p.rateLimited.WithLabelValues(scope).Inc() }

func (p *PrometheusRecorder) AddOTPSwept(count int64) {
	if count > 0 {
		p.otpSwept.Add(float64(count))
	}
}

func (p *PrometheusRecorder) ObserveEmailDispatchDuration(duration time.Duration) {
	p.emailDispatch.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	p.requestTotal.With(labels).Inc()
	p.requestLatency.With(labels).Observe(duration.Seconds())
}
