package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

const purchaseCols = "id, tester_uuid, date, order_number, description, amount, screenshot, screenshot_summary, refunded"

type purchaseStore struct {
	s *DB
}

func (ps *purchaseStore) Put(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	p := purchase.Clone()
	if p.ID == "" {
		p.ID = idgen.NewUUID()
	}

	_, err := ps.s.db.ExecContext(ctx, ps.s.rebind(
		`INSERT INTO purchases (`+purchaseCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.TesterUUID, p.Date, p.Order, p.Description, p.Amount,
		p.Screenshot, p.ScreenshotSummary, p.Refunded)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert purchase", err)
	}
	return p, nil
}

func (ps *purchaseStore) Get(ctx context.Context, id string) (*model.Purchase, error) {
	var p model.Purchase
	err := ps.s.db.GetContext(ctx, &p,
		ps.s.rebind("SELECT "+purchaseCols+" FROM purchases WHERE id = ?"), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get purchase", err)
	}
	return &p, nil
}

func (ps *purchaseStore) Update(ctx context.Context, id string, update *model.PurchaseUpdate) (*model.Purchase, error) {
	// Build the SET list from the non-nil fields only.
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if update.Date != nil {
		add("date", *update.Date)
	}
	if update.Order != nil {
		add("order_number", *update.Order)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Amount != nil {
		add("amount", *update.Amount)
	}
	if update.Screenshot != nil {
		add("screenshot", *update.Screenshot)
	}
	if update.ScreenshotSummary != nil {
		add("screenshot_summary", *update.ScreenshotSummary)
	}
	if update.Refunded != nil {
		add("refunded", *update.Refunded)
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := ps.s.db.ExecContext(ctx, ps.s.rebind(
			"UPDATE purchases SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to update purchase", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to update purchase", err)
		}
		if affected == 0 {
			return nil, errors.ErrNotFound("purchase")
		}
	}

	p, err := ps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.ErrNotFound("purchase")
	}
	return p, nil
}

// Delete removes the purchase and its dependent records in one
// transaction, scoped to the owning tester.
func (ps *purchaseStore) Delete(ctx context.Context, id, testerUUID string) error {
	tx, err := ps.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.GetContext(ctx, &count,
		tx.Rebind("SELECT COUNT(*) FROM purchases WHERE id = ? AND tester_uuid = ?"), id, testerUUID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check purchase ownership", err)
	}
	if count == 0 {
		return errors.ErrNotFound("purchase")
	}

	for _, table := range []string{"short_links", "refunds", "publications", "feedbacks"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM "+table+" WHERE purchase_id = ?"), id); err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete dependent records", err)
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM purchases WHERE id = ?"), id); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete purchase", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to commit delete", err)
	}
	return nil
}

func (ps *purchaseStore) ForTester(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx,
		"SELECT "+purchaseCols+" FROM purchases WHERE tester_uuid = ? ORDER BY date DESC, id ASC",
		testerUUID)
}

func (ps *purchaseStore) Refunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx,
		"SELECT "+purchaseCols+" FROM purchases WHERE tester_uuid = ? AND refunded = ? ORDER BY date DESC, id ASC",
		testerUUID, true)
}

func (ps *purchaseStore) NotRefunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx,
		"SELECT "+purchaseCols+" FROM purchases WHERE tester_uuid = ? AND refunded = ? ORDER BY date DESC, id ASC",
		testerUUID, false)
}

func (ps *purchaseStore) selectList(ctx context.Context, query string, args ...any) ([]*model.Purchase, error) {
	var list []*model.Purchase
	if err := ps.s.db.SelectContext(ctx, &list, ps.s.rebind(query), args...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to select purchases", err)
	}
	return list, nil
}

// Statuses runs the status aggregation as one LEFT-JOIN query plus a
// COUNT over the same filter.
func (ps *purchaseStore) Statuses(ctx context.Context, testerUUID string, filter store.StatusFilter, page store.PageRequest) (*store.Page[model.PurchaseStatus], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	where := " WHERE p.tester_uuid = ?"
	args := []any{testerUUID}
	countWhere := " WHERE tester_uuid = ?"
	countArgs := []any{testerUUID}
	if filter.OnlyUnrefunded {
		where += " AND p.refunded = ?"
		args = append(args, false)
		countWhere += " AND refunded = ?"
		countArgs = append(countArgs, false)
	}

	var total int
	err := ps.s.db.GetContext(ctx, &total,
		ps.s.rebind("SELECT COUNT(*) FROM purchases"+countWhere), countArgs...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to count purchases", err)
	}

	query := `SELECT
			p.id AS purchase,
			p.tester_uuid AS tester_uuid,
			p.date AS date,
			p.order_number AS order_number,
			p.description AS description,
			p.amount AS amount,
			p.refunded AS refunded,
			(f.purchase_id IS NOT NULL) AS has_feedback,
			(pub.purchase_id IS NOT NULL) AS has_publication,
			(r.purchase_id IS NOT NULL) AS has_refund,
			p.screenshot AS purchase_screenshot,
			COALESCE(pub.screenshot, '') AS publication_screenshot,
			p.screenshot_summary AS screenshot_summary,
			COALESCE(r.transaction_id, '') AS transaction_id
		FROM purchases p
		LEFT JOIN feedbacks f ON f.purchase_id = p.id
		LEFT JOIN publications pub ON pub.purchase_id = p.id
		LEFT JOIN refunds r ON r.purchase_id = p.id` +
		where + orderBy(page, "p.", "p.id") + " LIMIT ? OFFSET ?"
	args = append(args, page.Limit, (page.Page-1)*page.Limit)

	rows := []model.PurchaseStatus{}
	if err := ps.s.db.SelectContext(ctx, &rows, ps.s.rebind(query), args...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query purchase statuses", err)
	}
	return store.NewPage(rows, total, page), nil
}

// ReadyForRefund selects unrefunded purchases whose feedback and
// publication both exist, with the two records inlined.
func (ps *purchaseStore) ReadyForRefund(ctx context.Context, testerUUID string, page store.PageRequest) (*store.Page[model.PurchaseWithFeedback], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	var total int
	err := ps.s.db.GetContext(ctx, &total, ps.s.rebind(
		`SELECT COUNT(*)
		 FROM purchases p
		 JOIN feedbacks f ON f.purchase_id = p.id
		 JOIN publications pub ON pub.purchase_id = p.id
		 WHERE p.tester_uuid = ? AND p.refunded = ?`),
		testerUUID, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to count refund-ready purchases", err)
	}

	query := `SELECT
			p.id AS id,
			p.tester_uuid AS tester_uuid,
			p.date AS date,
			p.order_number AS order_number,
			p.description AS description,
			p.amount AS amount,
			p.screenshot AS screenshot,
			p.screenshot_summary AS screenshot_summary,
			f.feedback AS feedback,
			f.date AS feedback_date,
			pub.screenshot AS publication_screenshot,
			pub.date AS publication_date
		FROM purchases p
		JOIN feedbacks f ON f.purchase_id = p.id
		JOIN publications pub ON pub.purchase_id = p.id
		WHERE p.tester_uuid = ? AND p.refunded = ?` +
		orderBy(page, "p.", "p.id") + " LIMIT ? OFFSET ?"

	rows := []model.PurchaseWithFeedback{}
	err = ps.s.db.SelectContext(ctx, &rows, ps.s.rebind(query),
		testerUUID, false, page.Limit, (page.Page-1)*page.Limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query refund-ready purchases", err)
	}
	return store.NewPage(rows, total, page), nil
}

func (ps *purchaseStore) RefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return ps.sumAmounts(ctx, testerUUID, true)
}

func (ps *purchaseStore) NotRefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return ps.sumAmounts(ctx, testerUUID, false)
}

func (ps *purchaseStore) sumAmounts(ctx context.Context, testerUUID string, refunded bool) (float64, error) {
	var sum float64
	err := ps.s.db.GetContext(ctx, &sum, ps.s.rebind(
		"SELECT COALESCE(SUM(amount), 0) FROM purchases WHERE tester_uuid = ? AND refunded = ?"),
		testerUUID, refunded)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to sum purchase amounts", err)
	}
	return sum, nil
}

func (ps *purchaseStore) Find(ctx context.Context, q store.Query) (*model.Purchase, error) {
	list, err := ps.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (ps *purchaseStore) Filter(ctx context.Context, q store.Query) ([]*model.Purchase, error) {
	where, args, err := whereClause(q, store.PurchaseFields, purchaseColumns)
	if err != nil {
		return nil, err
	}
	return ps.selectList(ctx,
		"SELECT "+purchaseCols+" FROM purchases"+where+" ORDER BY date DESC, id ASC", args...)
}

func (ps *purchaseStore) GetAll(ctx context.Context) ([]*model.Purchase, error) {
	return ps.Filter(ctx, store.Query{})
}
