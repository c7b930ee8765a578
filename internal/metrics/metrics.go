package metrics

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// Recorder exports MISP call statistics. It implements misp.CallRecorder.
type Recorder struct {
	registry *prometheus.Registry
	basePath string

	// Calls tracks the number of MISP API calls by endpoint and outcome
	Calls *prometheus.CounterVec

	// CallDuration tracks the duration of MISP API calls
	CallDuration *prometheus.HistogramVec
}

// NewRecorder registers the MISP call metrics on a fresh registry. Endpoint
// labels are taken relative to baseURL, so a MISP served under a path prefix
// is labelled the same as one served at the root.
func NewRecorder(baseURL string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	var basePath string
	if u, err := url.Parse(baseURL); err == nil {
		basePath = strings.TrimRight(u.Path, "/")
	}
	return &Recorder{
		registry: reg,
		basePath: basePath,
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mispctl_api_calls_total",
				Help: "The total number of MISP API calls",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mispctl_api_call_duration_seconds",
				Help:    "The duration of MISP API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordCall implements misp.CallRecorder.
func (r *Recorder) RecordCall(ctx context.Context, call misp.Call) error {
	endpoint := Endpoint(r.basePath, call.URI)
	r.Calls.WithLabelValues(call.Method, endpoint, call.Kind.String()).Inc()
	r.CallDuration.WithLabelValues(call.Method, endpoint).Observe(call.Duration.Seconds())
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Endpoint reduces a request URI to its controller/action pair below
// basePath so ids and search fragments do not end up as label values.
func Endpoint(basePath, uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "invalid"
	}
	path := u.Path
	if basePath != "" && (path == basePath || strings.HasPrefix(path, basePath+"/")) {
		path = path[len(basePath):]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	if len(parts) == 1 && parts[0] == "" {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}
