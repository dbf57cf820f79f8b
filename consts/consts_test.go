package consts

import (
	"sync"
	"testing"
	"time"
)

func TestServiceName(t *testing.T) {
	if ServiceName != "rebatetrack" {
		t.Errorf("ServiceName = %q, want %q", ServiceName, "rebatetrack")
	}
}

func TestBackendNames(t *testing.T) {
	if BackendMemory != "memory" {
		t.Errorf("BackendMemory = %q, want %q", BackendMemory, "memory")
	}
	if BackendSQLite != "sqlite" {
		t.Errorf("BackendSQLite = %q, want %q", BackendSQLite, "sqlite")
	}
	if BackendPostgres != "postgres" {
		t.Errorf("BackendPostgres = %q, want %q", BackendPostgres, "postgres")
	}
	if BackendDocument != "document" {
		t.Errorf("BackendDocument = %q, want %q", BackendDocument, "document")
	}
}

func TestProjectInfo(t *testing.T) {
	if ProjectName != "RebateTrack" {
		t.Errorf("ProjectName = %q, want %q", ProjectName, "RebateTrack")
	}
	if ProjectURL != "https://github.com/rebatetrack/rebatetrack" {
		t.Errorf("ProjectURL = %q, want %q", ProjectURL, "https://github.com/rebatetrack/rebatetrack")
	}
}

func TestSetStartedAt(t *testing.T) {
	// Reset state for testing
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	now := time.Now()
	SetStartedAt(now)

	got := GetStartedAt()
	if !got.Equal(now) {
		t.Errorf("GetStartedAt() = %v, want %v", got, now)
	}

	// Test that SetStartedAt can only be called once
	anotherTime := now.Add(time.Hour)
	SetStartedAt(anotherTime)
	got = GetStartedAt()
	if !got.Equal(now) {
		t.Errorf("GetStartedAt() after second call = %v, want %v (should not change)", got, now)
	}
}

func TestGetUptime(t *testing.T) {
	// Reset state
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	// Test zero time
	uptime := GetUptime()
	if uptime != 0 {
		t.Errorf("GetUptime() with zero time = %v, want 0", uptime)
	}

	// Test with set time
	now := time.Now()
	SetStartedAt(now)
	uptime = GetUptime()
	if uptime < 0 {
		t.Errorf("GetUptime() = %v, want non-negative", uptime)
	}
	if uptime > time.Second {
		t.Errorf("GetUptime() = %v, want less than 1 second", uptime)
	}
}
