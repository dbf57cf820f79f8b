// Package shortlink manages time-limited public codes for purchases and
// their periodic garbage collection.
package shortlink

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

const (
	// DefaultTTL is the default lifetime of a minted code
	DefaultTTL = 72 * time.Hour
	// DefaultCleanupSchedule runs the expired-code sweep hourly
	DefaultCleanupSchedule = "0 * * * *"
)

// Service mints and resolves short links and sweeps expired codes on a
// cron schedule.
type Service struct {
	db       store.Database
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
}

// NewService creates a short-link service. Non-positive ttl and empty
// schedule fall back to the defaults.
func NewService(db store.Database, ttl time.Duration, schedule string) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &Service{
		db:       db,
		ttl:      ttl,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// CreateForPurchase mints a code for a purchase owned by the tester.
// Unknown and foreign purchases read as not found.
func (s *Service) CreateForPurchase(ctx context.Context, purchaseID, testerUUID string) (*model.ShortLink, error) {
	purchase, err := s.db.Purchases().Get(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil || purchase.TesterUUID != testerUUID {
		return nil, errors.ErrNotFound("purchase")
	}
	return s.db.ShortLinks().Create(ctx, purchaseID, s.ttl)
}

// Resolve returns the purchase id behind an unexpired code, "" otherwise.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.db.ShortLinks().Resolve(ctx, code)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", nil
	}
	return link.PurchaseID, nil
}

// Start schedules the expired-code sweep
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		logger.Error("Failed to schedule short-link cleanup", zap.Error(err))
		return err
	}
	s.cron.Start()

	logger.Info("Short-link cleanup started",
		zap.String("schedule", s.schedule),
		zap.Duration("ttl", s.ttl),
	)

	// Initial sweep without waiting for the first tick
	go s.sweep()

	return nil
}

// Stop stops the sweep scheduler and waits for a running job to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		logger.Info("Short-link cleanup stopped")
	}
}

// sweep deletes expired codes and logs the count
func (s *Service) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "shortlink.sweep",
		telemetry.WithBackendAttributes(s.db.Backend()))
	defer span.End()

	deleted, err := s.db.ShortLinks().DeleteExpired(ctx)
	if err != nil {
		telemetry.SetSpanError(span, err)
		logger.Error("Short-link cleanup failed", zap.Error(err))
		return
	}

	telemetry.SetSpanAttributes(span, telemetry.AttrSweptCount.Int64(deleted))
	telemetry.SetSpanOK(span)
	if deleted > 0 {
		logger.Info("Expired short links deleted", zap.Int64("count", deleted))
	}
}
