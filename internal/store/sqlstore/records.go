package sqlstore

import (
	"context"
	"database/sql"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

type feedbackStore struct {
	s *DB
}

func (fs *feedbackStore) Put(ctx context.Context, feedback *model.Feedback) error {
	_, err := fs.s.db.ExecContext(ctx, fs.s.rebind(
		`INSERT INTO feedbacks (purchase_id, date, feedback) VALUES (?, ?, ?)
		 ON CONFLICT (purchase_id) DO UPDATE SET date = excluded.date, feedback = excluded.feedback`),
		feedback.PurchaseID, feedback.Date, feedback.Feedback)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert feedback", err)
	}
	return nil
}

func (fs *feedbackStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Feedback, error) {
	var f model.Feedback
	err := fs.s.db.GetContext(ctx, &f, fs.s.rebind(
		"SELECT purchase_id, date, feedback FROM feedbacks WHERE purchase_id = ?"), purchaseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get feedback", err)
	}
	return &f, nil
}

func (fs *feedbackStore) Delete(ctx context.Context, purchaseID string) error {
	_, err := fs.s.db.ExecContext(ctx,
		fs.s.rebind("DELETE FROM feedbacks WHERE purchase_id = ?"), purchaseID)
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
	where, args, err := whereClause(q, store.FeedbackFields, feedbackColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Feedback
	err = fs.s.db.SelectContext(ctx, &list, fs.s.rebind(
		"SELECT purchase_id, date, feedback FROM feedbacks"+where+" ORDER BY purchase_id"), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter feedbacks", err)
	}
	return list, nil
}

func (fs *feedbackStore) GetAll(ctx context.Context) ([]*model.Feedback, error) {
	return fs.Filter(ctx, store.Query{})
}

type publicationStore struct {
	s *DB
}

func (ps *publicationStore) Put(ctx context.Context, publication *model.Publication) error {
	_, err := ps.s.db.ExecContext(ctx, ps.s.rebind(
		`INSERT INTO publications (purchase_id, date, screenshot) VALUES (?, ?, ?)
		 ON CONFLICT (purchase_id) DO UPDATE SET date = excluded.date, screenshot = excluded.screenshot`),
		publication.PurchaseID, publication.Date, publication.Screenshot)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert publication", err)
	}
	return nil
}

func (ps *publicationStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Publication, error) {
	var p model.Publication
	err := ps.s.db.GetContext(ctx, &p, ps.s.rebind(
		"SELECT purchase_id, date, screenshot FROM publications WHERE purchase_id = ?"), purchaseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get publication", err)
	}
	return &p, nil
}

func (ps *publicationStore) Delete(ctx context.Context, purchaseID string) error {
	_, err := ps.s.db.ExecContext(ctx,
		ps.s.rebind("DELETE FROM publications WHERE purchase_id = ?"), purchaseID)
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
	where, args, err := whereClause(q, store.PublicationFields, publicationColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Publication
	err = ps.s.db.SelectContext(ctx, &list, ps.s.rebind(
		"SELECT purchase_id, date, screenshot FROM publications"+where+" ORDER BY purchase_id"), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter publications", err)
	}
	return list, nil
}

func (ps *publicationStore) GetAll(ctx context.Context) ([]*model.Publication, error) {
	return ps.Filter(ctx, store.Query{})
}

type refundStore struct {
	s *DB
}

// Create inserts the refund row and flips the purchase's refunded flag in
// one transaction. The refund insert comes first, so a crash between the
// two statements can never leave a refunded purchase without its record.
func (rs *refundStore) Create(ctx context.Context, refund *model.Refund) error {
	tx, err := rs.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.GetContext(ctx, &count,
		tx.Rebind("SELECT COUNT(*) FROM purchases WHERE id = ?"), refund.PurchaseID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check purchase", err)
	}
	if count == 0 {
		return errors.ErrNotFound("purchase")
	}

	err = tx.GetContext(ctx, &count,
		tx.Rebind("SELECT COUNT(*) FROM refunds WHERE purchase_id = ?"), refund.PurchaseID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check refund", err)
	}
	if count > 0 {
		return errors.ErrConflict("purchase " + refund.PurchaseID + " already has a refund")
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO refunds (purchase_id, date, refund_date, amount, transaction_id)
		 VALUES (?, ?, ?, ?, ?)`),
		refund.PurchaseID, refund.Date, refund.RefundDate, refund.Amount, refund.TransactionID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert refund", err)
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("UPDATE purchases SET refunded = ? WHERE id = ?"), true, refund.PurchaseID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to mark purchase refunded", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to commit refund", err)
	}
	return nil
}

func (rs *refundStore) GetByPurchase(ctx context.Context, purchaseID string) (*model.Refund, error) {
	var r model.Refund
	err := rs.s.db.GetContext(ctx, &r, rs.s.rebind(
		"SELECT purchase_id, date, refund_date, amount, transaction_id FROM refunds WHERE purchase_id = ?"),
		purchaseID)
	if err == sql.ErrNoRows {
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
	where, args, err := whereClause(q, store.RefundFields, refundColumns)
	if err != nil {
		return nil, err
	}
	var list []*model.Refund
	err = rs.s.db.SelectContext(ctx, &list, rs.s.rebind(
		"SELECT purchase_id, date, refund_date, amount, transaction_id FROM refunds"+where+" ORDER BY purchase_id"), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter refunds", err)
	}
	return list, nil
}

func (rs *refundStore) GetAll(ctx context.Context) ([]*model.Refund, error) {
	return rs.Filter(ctx, store.Query{})
}
