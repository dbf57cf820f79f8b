// Package telemetry provides OpenTelemetry integration for the application.
// This file contains unit tests for the metrics.
package telemetry

import (
	"context"
	"testing"
)

// TestGetMetrics tests the GetMetrics function
func TestGetMetrics(t *testing.T) {
	metrics := GetMetrics()
	if metrics == nil {
		t.Fatal("GetMetrics() returned nil")
	}

	// Second call should return same instance
	metrics2 := GetMetrics()
	if metrics != metrics2 {
		t.Error("GetMetrics() returned different instances on subsequent calls")
	}
}

// TestMetricsRecordPurchaseCreated tests RecordPurchaseCreated
func TestMetricsRecordPurchaseCreated(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic even if metrics are nil/empty
	metrics.RecordPurchaseCreated(ctx, "memory")
	metrics.RecordPurchaseCreated(ctx, "sqlite")
}

// TestMetricsRecordRefund tests RecordRefund
func TestMetricsRecordRefund(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic
	metrics.RecordRefund(ctx, "sqlite", 10.99)
}

// TestMetricsRecordHTTPRequest tests RecordHTTPRequest
func TestMetricsRecordHTTPRequest(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/v1/me/purchases", 200, 0.05)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/me/purchases", 201, 0.1)
	metrics.RecordHTTPRequest(ctx, "GET", "/s/abc12345", 404, 0.01)
}

// TestMetricsRecordShortLinkResolve tests RecordShortLinkResolve
func TestMetricsRecordShortLinkResolve(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic
	metrics.RecordShortLinkResolve(ctx, true)
	metrics.RecordShortLinkResolve(ctx, false)
}

// TestMetricsRecordBackupRestore tests RecordBackup and RecordRestore
func TestMetricsRecordBackupRestore(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	// Should not panic
	metrics.RecordBackup(ctx, "memory", true)
	metrics.RecordRestore(ctx, "sqlite", false)
}

// TestMetricsNilSafe tests that metrics methods are nil-safe
func TestMetricsNilSafe(t *testing.T) {
	// Create empty metrics struct (simulating initialization failure)
	emptyMetrics := &Metrics{}
	ctx := context.Background()

	// None of these should panic
	t.Run("RecordPurchaseCreated", func(t *testing.T) {
		emptyMetrics.RecordPurchaseCreated(ctx, "memory")
	})

	t.Run("RecordRefund", func(t *testing.T) {
		emptyMetrics.RecordRefund(ctx, "memory", 1.0)
	})

	t.Run("RecordHTTPRequest", func(t *testing.T) {
		emptyMetrics.RecordHTTPRequest(ctx, "GET", "/test", 200, 0.1)
	})

	t.Run("RecordShortLinkResolve", func(t *testing.T) {
		emptyMetrics.RecordShortLinkResolve(ctx, true)
	})

	t.Run("RecordBackup", func(t *testing.T) {
		emptyMetrics.RecordBackup(ctx, "memory", true)
	})

	t.Run("RecordRestore", func(t *testing.T) {
		emptyMetrics.RecordRestore(ctx, "memory", true)
	})
}
