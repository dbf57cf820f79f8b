package memstore

import (
	"context"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type purchaseStore struct {
	db *DB
}

func (s *purchaseStore) Put(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p := purchase.Clone()
	if p.ID == "" {
		p.ID = idgen.NewUUID()
	}
	s.db.data.purchases[p.ID] = p.Clone()
	return p, nil
}

func (s *purchaseStore) Get(ctx context.Context, id string) (*model.Purchase, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, exists := s.db.data.purchases[id]
	if !exists {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *purchaseStore) Update(ctx context.Context, id string, update *model.PurchaseUpdate) (*model.Purchase, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, exists := s.db.data.purchases[id]
	if !exists {
		return nil, errors.ErrNotFound("purchase")
	}
	update.Apply(p)
	return p.Clone(), nil
}

func (s *purchaseStore) Delete(ctx context.Context, id, testerUUID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, exists := s.db.data.purchases[id]
	if !exists || p.TesterUUID != testerUUID {
		return errors.ErrNotFound("purchase")
	}
	delete(s.db.data.purchases, id)
	// Dependent records go with the purchase.
	delete(s.db.data.feedbacks, id)
	delete(s.db.data.publications, id)
	delete(s.db.data.refunds, id)
	return nil
}

func (s *purchaseStore) ForTester(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return s.collect(func(p *model.Purchase) bool {
		return p.TesterUUID == testerUUID
	}), nil
}

func (s *purchaseStore) Refunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return s.collect(func(p *model.Purchase) bool {
		return p.TesterUUID == testerUUID && p.Refunded
	}), nil
}

func (s *purchaseStore) NotRefunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return s.collect(func(p *model.Purchase) bool {
		return p.TesterUUID == testerUUID && !p.Refunded
	}), nil
}

func (s *purchaseStore) collect(keep func(*model.Purchase) bool) []*model.Purchase {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Purchase
	for _, p := range s.db.data.purchases {
		if keep(p) {
			result = append(result, p.Clone())
		}
	}
	sortPurchases(result)
	return result
}

func (s *purchaseStore) Statuses(ctx context.Context, testerUUID string, filter store.StatusFilter, page store.PageRequest) (*store.Page[model.PurchaseStatus], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	s.db.mu.RLock()
	var rows []model.PurchaseStatus
	for _, p := range s.db.data.purchases {
		if p.TesterUUID != testerUUID {
			continue
		}
		if filter.OnlyUnrefunded && p.Refunded {
			continue
		}
		rows = append(rows, s.db.data.statusOf(p))
	}
	s.db.mu.RUnlock()

	sortRows(rows, page,
		func(r model.PurchaseStatus) int64 { return r.Date.UnixNano() },
		func(r model.PurchaseStatus) string { return r.Order })
	return store.SlicePage(rows, page), nil
}

func (s *purchaseStore) ReadyForRefund(ctx context.Context, testerUUID string, page store.PageRequest) (*store.Page[model.PurchaseWithFeedback], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	s.db.mu.RLock()
	var rows []model.PurchaseWithFeedback
	for _, p := range s.db.data.purchases {
		if p.TesterUUID != testerUUID || p.Refunded {
			continue
		}
		feedback, hasFeedback := s.db.data.feedbacks[p.ID]
		publication, hasPublication := s.db.data.publications[p.ID]
		if !hasFeedback || !hasPublication {
			continue
		}
		rows = append(rows, model.PurchaseWithFeedback{
			ID:                    p.ID,
			TesterUUID:            p.TesterUUID,
			Date:                  p.Date,
			Order:                 p.Order,
			Description:           p.Description,
			Amount:                p.Amount,
			Screenshot:            p.Screenshot,
			ScreenshotSummary:     p.ScreenshotSummary,
			Feedback:              feedback.Feedback,
			FeedbackDate:          feedback.Date,
			PublicationScreenshot: publication.Screenshot,
			PublicationDate:       publication.Date,
		})
	}
	s.db.mu.RUnlock()

	sortRows(rows, page,
		func(r model.PurchaseWithFeedback) int64 { return r.Date.UnixNano() },
		func(r model.PurchaseWithFeedback) string { return r.Order })
	return store.SlicePage(rows, page), nil
}

func (s *purchaseStore) RefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return s.sumAmounts(testerUUID, true), nil
}

func (s *purchaseStore) NotRefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return s.sumAmounts(testerUUID, false), nil
}

func (s *purchaseStore) sumAmounts(testerUUID string, refunded bool) float64 {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var sum float64
	for _, p := range s.db.data.purchases {
		if p.TesterUUID == testerUUID && p.Refunded == refunded {
			sum += p.Amount
		}
	}
	return sum
}

func (s *purchaseStore) Find(ctx context.Context, q store.Query) (*model.Purchase, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *purchaseStore) Filter(ctx context.Context, q store.Query) ([]*model.Purchase, error) {
	if err := q.Validate(store.PurchaseFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Purchase
	for _, p := range s.db.data.purchases {
		match, err := q.Match(p)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, p.Clone())
		}
	}
	sortPurchases(result)
	return result, nil
}

func (s *purchaseStore) GetAll(ctx context.Context) ([]*model.Purchase, error) {
	return s.Filter(ctx, store.Query{})
}

// statusOf builds the derived status row for a purchase. Caller holds
// the lock.
func (g *graph) statusOf(p *model.Purchase) model.PurchaseStatus {
	_, hasFeedback := g.feedbacks[p.ID]
	publication, hasPublication := g.publications[p.ID]
	refund, hasRefund := g.refunds[p.ID]

	status := model.PurchaseStatus{
		Purchase:           p.ID,
		TesterUUID:         p.TesterUUID,
		Date:               p.Date,
		Order:              p.Order,
		Description:        p.Description,
		Amount:             p.Amount,
		Refunded:           p.Refunded,
		HasFeedback:        hasFeedback,
		HasPublication:     hasPublication,
		HasRefund:          hasRefund,
		PurchaseScreenshot: p.Screenshot,
		ScreenshotSummary:  p.ScreenshotSummary,
	}
	if hasPublication {
		status.PublicationScreenshot = publication.Screenshot
	}
	if hasRefund {
		status.TransactionID = refund.TransactionID
	}
	return status
}
