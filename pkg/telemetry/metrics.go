// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/rebatetrack/rebatetrack"
)

// Metrics holds all application metrics
type Metrics struct {
	// Purchase lifecycle metrics
	PurchasesTotal metric.Int64Counter
	RefundsTotal   metric.Int64Counter
	RefundAmount   metric.Float64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Short link metrics
	ShortLinkResolvesTotal metric.Int64Counter

	// Backup metrics
	BackupsTotal  metric.Int64Counter
	RestoresTotal metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Return empty metrics to avoid nil pointer
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// initMetrics initializes all application metrics
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.PurchasesTotal, err = meter.Int64Counter(
		"rebatetrack_purchases_total",
		metric.WithDescription("Total number of purchases created"),
		metric.WithUnit("{purchase}"),
	)
	if err != nil {
		return nil, err
	}

	m.RefundsTotal, err = meter.Int64Counter(
		"rebatetrack_refunds_total",
		metric.WithDescription("Total number of refunds recorded"),
		metric.WithUnit("{refund}"),
	)
	if err != nil {
		return nil, err
	}

	m.RefundAmount, err = meter.Float64Counter(
		"rebatetrack_refund_amount_total",
		metric.WithDescription("Cumulative refunded amount"),
	)
	if err != nil {
		return nil, err
	}

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"rebatetrack_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"rebatetrack_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.ShortLinkResolvesTotal, err = meter.Int64Counter(
		"rebatetrack_short_link_resolves_total",
		metric.WithDescription("Total number of short link resolutions"),
		metric.WithUnit("{resolve}"),
	)
	if err != nil {
		return nil, err
	}

	m.BackupsTotal, err = meter.Int64Counter(
		"rebatetrack_backups_total",
		metric.WithDescription("Total number of database backups taken"),
		metric.WithUnit("{backup}"),
	)
	if err != nil {
		return nil, err
	}

	m.RestoresTotal, err = meter.Int64Counter(
		"rebatetrack_restores_total",
		metric.WithDescription("Total number of database restores performed"),
		metric.WithUnit("{restore}"),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordPurchaseCreated records that a purchase was created
func (m *Metrics) RecordPurchaseCreated(ctx context.Context, backend string) {
	if m.PurchasesTotal == nil {
		return
	}
	m.PurchasesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}

// RecordRefund records a recorded refund and its amount
func (m *Metrics) RecordRefund(ctx context.Context, backend string, amount float64) {
	if m.RefundsTotal != nil {
		m.RefundsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("backend", backend)),
		)
	}
	if m.RefundAmount != nil {
		m.RefundAmount.Add(ctx, amount,
			metric.WithAttributes(attribute.String("backend", backend)),
		)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}

// RecordShortLinkResolve records a short link resolution attempt
func (m *Metrics) RecordShortLinkResolve(ctx context.Context, hit bool) {
	if m.ShortLinkResolvesTotal == nil {
		return
	}
	m.ShortLinkResolvesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("hit", hit)),
	)
}

// RecordBackup records a completed backup
func (m *Metrics) RecordBackup(ctx context.Context, backend string, success bool) {
	if m.BackupsTotal == nil {
		return
	}
	m.BackupsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.Bool("success", success),
		),
	)
}

// RecordRestore records a completed restore
func (m *Metrics) RecordRestore(ctx context.Context, backend string, success bool) {
	if m.RestoresTotal == nil {
		return
	}
	m.RestoresTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.Bool("success", success),
		),
	)
}
