package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

type feedbackStore struct {
	db *gorm.DB
}

func (fs *feedbackStore) Put(ctx context.Context, feedback *model.Feedback) error {
	if err := fs.db.WithContext(ctx).Save(feedback.Clone()).Error; err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert feedback", err)
	}
	return nil
}

func (fs *feedbackStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Feedback, error) {
	var f model.Feedback
	err := fs.db.WithContext(ctx).First(&f, "purchase_id = ?", purchaseID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get feedback", err)
	}
	return &f, nil
}

func (fs *feedbackStore) Delete(ctx context.Context, purchaseID string) error {
	err := fs.db.WithContext(ctx).Delete(&model.Feedback{}, "purchase_id = ?", purchaseID).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete feedback", err)
	}
	return nil
}

func (fs *feedbackStore) Find(ctx context.Context, q store.Query) (*model.Feedback, error) {
	list, err := fs.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (fs *feedbackStore) Filter(ctx context.Context, q store.Query) ([]*model.Feedback, error) {
	tx, err := applyQuery(fs.db.WithContext(ctx), q, store.FeedbackFields, feedbackColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Feedback
	if err := tx.Order("purchase_id").Find(&list).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter feedbacks", err)
	}
	return list, nil
}

func (fs *feedbackStore) GetAll(ctx context.Context) ([]*model.Feedback, error) {
	return fs.Filter(ctx, store.Query{})
}

type publicationStore struct {
	db *gorm.DB
}

func (ps *publicationStore) Put(ctx context.Context, publication *model.Publication) error {
	if err := ps.db.WithContext(ctx).Save(publication.Clone()).Error; err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert publication", err)
	}
	return nil
}

func (ps *publicationStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Publication, error) {
	var p model.Publication
	err := ps.db.WithContext(ctx).First(&p, "purchase_id = ?", purchaseID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get publication", err)
	}
	return &p, nil
}

func (ps *publicationStore) Delete(ctx context.Context, purchaseID string) error {
	err := ps.db.WithContext(ctx).Delete(&model.Publication{}, "purchase_id = ?", purchaseID).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete publication", err)
	}
	return nil
}

func (ps *publicationStore) Find(ctx context.Context, q store.Query) (*model.Publication, error) {
	list, err := ps.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (ps *publicationStore) Filter(ctx context.Context, q store.Query) ([]*model.Publication, error) {
	tx, err := applyQuery(ps.db.WithContext(ctx), q, store.PublicationFields, publicationColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Publication
	if err := tx.Order("purchase_id").Find(&list).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter publications", err)
	}
	return list, nil
}

func (ps *publicationStore) GetAll(ctx context.Context) ([]*model.Publication, error) {
	return ps.Filter(ctx, store.Query{})
}

type refundStore struct {
	db *gorm.DB
}

// Create inserts the refund and flips the purchase's refunded flag inside
// db.Transaction, refund row first.
func (rs *refundStore) Create(ctx context.Context, refund *model.Refund) error {
	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Purchase{}).Where("id = ?", refund.PurchaseID).Count(&count).Error
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to check purchase", err)
		}
		if count == 0 {
			return errors.ErrNotFound("purchase")
		}

		err = tx.Model(&model.Refund{}).Where("purchase_id = ?", refund.PurchaseID).Count(&count).Error
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to check refund", err)
		}
		if count > 0 {
			return errors.ErrConflict("purchase " + refund.PurchaseID + " already has a refund")
		}

		if err := tx.Create(refund.Clone()).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert refund", err)
		}
		err = tx.Model(&model.Purchase{}).Where("id = ?", refund.PurchaseID).
			Update("refunded", true).Error
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to mark purchase refunded", err)
		}
		return nil
	})
}

func (rs *refundStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Refund, error) {
	var r model.Refund
	err := rs.db.WithContext(ctx).First(&r, "purchase_id = ?", purchaseID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get refund", err)
	}
	return &r, nil
}

func (rs *refundStore) Find(ctx context.Context, q store.Query) (*model.Refund, error) {
	list, err := rs.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (rs *refundStore) Filter(ctx context.Context, q store.Query) ([]*model.Refund, error) {
	tx, err := applyQuery(rs.db.WithContext(ctx), q, store.RefundFields, refundColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Refund
	if err := tx.Order("purchase_id").Find(&list).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter refunds", err)
	}
	return list, nil
}

func (rs *refundStore) GetAll(ctx context.Context) ([]*model.Refund, error) {
	return rs.Filter(ctx, store.Query{})
}
