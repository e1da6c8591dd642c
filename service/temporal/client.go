package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/mintctl/service/metrics"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

// Client starts launch workflows on a Temporal cluster and waits for them.
type Client struct {
	client    client.Client
	taskQueue string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
// If m is nil, no metrics will be recorded.
func NewClient(host, namespace, taskQueue string, m *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")
	return newClient(c, taskQueue, m, logger), nil
}

func newClient(c client.Client, taskQueue string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		client:    c,
		taskQueue: taskQueue,
		metrics:   m,
		logger:    logger,
	}
}

// ExecuteLaunch starts LaunchTokenWorkflow and blocks until it completes.
// A failed workflow returns whatever partial result it produced together
// with an error that matches the operation error kinds.
func (c *Client) ExecuteLaunch(ctx context.Context, input LaunchTokenInput) (*LaunchTokenResult, error) {
	start := time.Now()
	id := "launch-token-" + uuid.New().String()

	c.logger.Debug("starting launch workflow",
		"workflow_id", id,
		"task_queue", c.taskQueue,
		"symbol", input.Metadata.Symbol,
	)

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
	}, LaunchTokenWorkflow, input)
	if err != nil {
		c.record("error", start)
		_, opErr := operationError("launch", fmt.Errorf("failed to start launch workflow: %w", err))
		return nil, opErr
	}

	var result LaunchTokenResult
	if err := run.Get(ctx, &result); err != nil {
		c.record("failed", start)
		c.logger.Error("launch workflow failed",
			"workflow_id", run.GetID(),
			"run_id", run.GetRunID(),
			"error", err,
		)
		created, opErr := operationError("launch", err)
		return &LaunchTokenResult{Create: created}, opErr
	}

	c.record("completed", start)
	c.logger.Info("launch workflow completed",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return &result, nil
}

func (c *Client) record(status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordLaunchWorkflow(status, time.Since(start).Seconds())
	}
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
