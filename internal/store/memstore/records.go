package memstore

import (
	"context"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

type feedbackStore struct {
	db *DB
}

func (s *feedbackStore) Put(ctx context.Context, feedback *model.Feedback) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.data.feedbacks[feedback.PurchaseID] = feedback.Clone()
	return nil
}

func (s *feedbackStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Feedback, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	f, exists := s.db.data.feedbacks[purchaseID]
	if !exists {
		return nil, nil
	}
	return f.Clone(), nil
}

func (s *feedbackStore) Delete(ctx context.Context, purchaseID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.data.feedbacks, purchaseID)
	return nil
}

func (s *feedbackStore) Find(ctx context.Context, q store.Query) (*model.Feedback, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *feedbackStore) Filter(ctx context.Context, q store.Query) ([]*model.Feedback, error) {
	if err := q.Validate(store.FeedbackFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Feedback
	for _, f := range s.db.data.feedbacks {
		match, err := q.Match(f)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, f.Clone())
		}
	}
	sortByPurchaseID(result, func(f *model.Feedback) string { return f.PurchaseID })
	return result, nil
}

func (s *feedbackStore) GetAll(ctx context.Context) ([]*model.Feedback, error) {
	return s.Filter(ctx, store.Query{})
}

type publicationStore struct {
	db *DB
}

func (s *publicationStore) Put(ctx context.Context, publication *model.Publication) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.data.publications[publication.PurchaseID] = publication.Clone()
	return nil
}

func (s *publicationStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Publication, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, exists := s.db.data.publications[purchaseID]
	if !exists {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *publicationStore) Delete(ctx context.Context, purchaseID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.data.publications, purchaseID)
	return nil
}

func (s *publicationStore) Find(ctx context.Context, q store.Query) (*model.Publication, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *publicationStore) Filter(ctx context.Context, q store.Query) ([]*model.Publication, error) {
	if err := q.Validate(store.PublicationFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Publication
	for _, p := range s.db.data.publications {
		match, err := q.Match(p)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, p.Clone())
		}
	}
	sortByPurchaseID(result, func(p *model.Publication) string { return p.PurchaseID })
	return result, nil
}

func (s *publicationStore) GetAll(ctx context.Context) ([]*model.Publication, error) {
	return s.Filter(ctx, store.Query{})
}

type refundStore struct {
	db *DB
}

func (s *refundStore) Create(ctx context.Context, refund *model.Refund) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	purchase, exists := s.db.data.purchases[refund.PurchaseID]
	if !exists {
		return errors.ErrNotFound("purchase")
	}
	if _, exists := s.db.data.refunds[refund.PurchaseID]; exists {
		return errors.ErrConflict("purchase " + refund.PurchaseID + " already has a refund")
	}

	// Insert the refund before flipping the flag; the lock makes the
	// pair atomic here, the write order mirrors the other backends.
	s.db.data.refunds[refund.PurchaseID] = refund.Clone()
	purchase.Refunded = true
	return nil
}

func (s *refundStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Refund, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	r, exists := s.db.data.refunds[purchaseID]
	if !exists {
		return nil, nil
	}
	return r.Clone(), nil
}

func (s *refundStore) Find(ctx context.Context, q store.Query) (*model.Refund, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *refundStore) Filter(ctx context.Context, q store.Query) ([]*model.Refund, error) {
	if err := q.Validate(store.RefundFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Refund
	for _, r := range s.db.data.refunds {
		match, err := q.Match(r)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, r.Clone())
		}
	}
	sortByPurchaseID(result, func(r *model.Refund) string { return r.PurchaseID })
	return result, nil
}

func (s *refundStore) GetAll(ctx context.Context) ([]*model.Refund, error) {
	return s.Filter(ctx, store.Query{})
}
