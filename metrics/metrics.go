// Package metrics exposes prometheus collectors for gateway operations.
package metrics

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sagarc03/storegate"
)

const namespace = "storegate"

// Operation label values.
const (
	OpIssueGrant   = "issue_grant"
	OpUpload       = "upload"
	OpSaveCustomer = "save_customer"
	OpGetCustomer  = "get_customer"
)

// Metrics holds the gateway collectors. Results are labelled with
// storegate.ErrorKind, so "ok" counts successes.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	UploadedBytes prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total gateway operations by operation and result kind.",
		}, []string{"operation", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Gateway operation latency, including backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Total payload bytes written by successful uploads.",
		}),
	}
}

// Register registers the collectors; call once per registry.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Operations, m.Duration, m.UploadedBytes)
}

// Handler serves the collectors gathered by g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.Operations.WithLabelValues(op, storegate.ErrorKind(err)).Inc()
}

// Service is the set of gateway operations that can be instrumented.
type Service interface {
	IssueGrant(ctx context.Context, container, object string) (storegate.AccessGrant, error)
	Upload(ctx context.Context, container, object string, payload io.Reader) (storegate.UploadResult, error)
	SaveCustomer(ctx context.Context, firstName, lastName, email, phoneNumber string) (string, error)
	GetCustomer(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error)
}

// InstrumentedService records every call on the wrapped Service.
type InstrumentedService struct {
	next    Service
	metrics *Metrics
}

// Instrument wraps next so that its calls are recorded in m.
func (m *Metrics) Instrument(next Service) *InstrumentedService {
	return &InstrumentedService{next: next, metrics: m}
}

func (s *InstrumentedService) IssueGrant(ctx context.Context, container, object string) (grant storegate.AccessGrant, err error) {
	defer func(start time.Time) { s.metrics.observe(OpIssueGrant, start, err) }(time.Now())
	return s.next.IssueGrant(ctx, container, object)
}

func (s *InstrumentedService) Upload(ctx context.Context, container, object string, payload io.Reader) (result storegate.UploadResult, err error) {
	defer func(start time.Time) {
		s.metrics.observe(OpUpload, start, err)
		if err == nil {
			s.metrics.UploadedBytes.Add(float64(result.BytesWritten))
		}
	}(time.Now())
	return s.next.Upload(ctx, container, object, payload)
}

func (s *InstrumentedService) SaveCustomer(ctx context.Context, firstName, lastName, email, phoneNumber string) (rowKey string, err error) {
	defer func(start time.Time) { s.metrics.observe(OpSaveCustomer, start, err) }(time.Now())
	return s.next.SaveCustomer(ctx, firstName, lastName, email, phoneNumber)
}

func (s *InstrumentedService) GetCustomer(ctx context.Context, partitionKey, rowKey string) (rec storegate.CustomerRecord, err error) {
	defer func(start time.Time) { s.metrics.observe(OpGetCustomer, start, err) }(time.Now())
	return s.next.GetCustomer(ctx, partitionKey, rowKey)
}
