package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Token Operation Metrics
	transactionsTotal             *prometheus.CounterVec
	transactionConfirmDuration    *prometheus.HistogramVec
	transactionStatusPollsTotal   *prometheus.CounterVec
	rentLamports                  *prometheus.GaugeVec
	launchWorkflowDuration        *prometheus.HistogramVec
	launchWorkflowExecutionsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_transactions_total",
				Help: "Total number of submitted token transactions by operation and outcome",
			},
			[]string{"operation", "status", "reason"},
		),
		transactionConfirmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_transaction_confirm_duration_seconds",
				Help:    "Time from submission until a terminal transaction status",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
			},
			[]string{"operation", "status"},
		),
		transactionStatusPollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_transaction_status_polls_total",
				Help: "Total number of signature status polls while awaiting confirmation",
			},
			[]string{"operation"},
		),
		rentLamports: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "token_rent_exempt_lamports",
				Help: "Most recently quoted rent-exempt minimum by account size",
			},
			[]string{"space"},
		),
		launchWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launch_workflow_duration_seconds",
				Help:    "Duration of launch workflow execution in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		launchWorkflowExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launch_workflow_executions_total",
				Help: "Total number of launch workflow executions",
			},
			[]string{"status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method", "status_code"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status_code"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC Metrics Methods

// RecordRPCCall records a Solana RPC call with its duration and status.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Token Operation Metrics Methods

// RecordTransaction records the terminal outcome of a submitted transaction.
// reason is empty for confirmed transactions.
func (m *Metrics) RecordTransaction(operation, status, reason string) {
	m.transactionsTotal.WithLabelValues(operation, status, reason).Inc()
}

// RecordConfirmDuration records how long a transaction took to reach a terminal status.
func (m *Metrics) RecordConfirmDuration(operation, status string, duration float64) {
	m.transactionConfirmDuration.WithLabelValues(operation, status).Observe(duration)
}

// RecordStatusPoll records one signature status poll.
func (m *Metrics) RecordStatusPoll(operation string) {
	m.transactionStatusPollsTotal.WithLabelValues(operation).Inc()
}

// RecordRent records a rent-exempt quote for an account size.
func (m *Metrics) RecordRent(space uint64, lamports uint64) {
	m.rentLamports.WithLabelValues(fmt.Sprintf("%d", space)).Set(float64(lamports))
}

// RecordLaunchWorkflow records a launch workflow execution.
func (m *Metrics) RecordLaunchWorkflow(status string, duration float64) {
	m.launchWorkflowDuration.WithLabelValues(status).Observe(duration)
	m.launchWorkflowExecutionsTotal.WithLabelValues(status).Inc()
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request with its duration and status.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	statusCodeStr := fmt.Sprintf("%d", statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, statusCodeStr).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, statusCodeStr).Inc()
}

// NATS Metrics Methods

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Push sends everything gathered by g to a Prometheus Pushgateway under job.
// The CLI is short-lived, so this is how its counters outlive the process.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
