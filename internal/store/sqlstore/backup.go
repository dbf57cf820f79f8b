package sqlstore

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// BackupJSON serializes every table into the flat backup document.
// Foreign keys travel as their natural ids, so the document restores onto
// any backend.
func (s *DB) BackupJSON(ctx context.Context) ([]byte, error) {
	backup := &model.Backup{
		Testers:      []model.Tester{},
		IDs:          []model.IDMapping{},
		Purchases:    []model.Purchase{},
		Feedbacks:    []model.Feedback{},
		Publications: []model.Publication{},
		Refunds:      []model.Refund{},
	}

	err := s.db.SelectContext(ctx, &backup.Testers,
		"SELECT uuid, name FROM testers ORDER BY uuid")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump testers", err)
	}
	err = s.db.SelectContext(ctx, &backup.IDs,
		"SELECT id, tester_uuid FROM id_mappings ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump id mappings", err)
	}
	err = s.db.SelectContext(ctx, &backup.Purchases,
		"SELECT "+purchaseCols+" FROM purchases ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump purchases", err)
	}
	err = s.db.SelectContext(ctx, &backup.Feedbacks,
		"SELECT purchase_id, date, feedback FROM feedbacks ORDER BY purchase_id")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump feedbacks", err)
	}
	err = s.db.SelectContext(ctx, &backup.Publications,
		"SELECT purchase_id, date, screenshot FROM publications ORDER BY purchase_id")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump publications", err)
	}
	err = s.db.SelectContext(ctx, &backup.Refunds,
		"SELECT purchase_id, date, refund_date, amount, transaction_id FROM refunds ORDER BY purchase_id")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to dump refunds", err)
	}

	// Attach the ids owned by each tester.
	byOwner := make(map[string][]string)
	for _, m := range backup.IDs {
		byOwner[m.TesterUUID] = append(byOwner[m.TesterUUID], m.ID)
	}
	for i := range backup.Testers {
		ids := byOwner[backup.Testers[i].UUID]
		if ids == nil {
			ids = []string{}
		}
		backup.Testers[i].IDs = ids
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, errors.ErrInternal("failed to serialize backup", err)
	}
	return data, nil
}

// RestoreJSON validates the document, then destructively replaces all
// data inside one transaction: everything is deleted and re-inserted in
// dependency order. A failed restore rolls back completely.
func (s *DB) RestoreJSON(ctx context.Context, data []byte) error {
	backup, err := model.ParseBackup(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeValidation, "invalid backup document", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBRestore, "failed to begin restore", err)
	}
	defer tx.Rollback()

	// Clear in reverse dependency order.
	for _, table := range []string{"short_links", "refunds", "publications", "feedbacks", "purchases", "id_mappings", "testers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to clear table "+table, err)
		}
	}

	for _, t := range backup.Testers {
		_, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO testers (uuid, name) VALUES (?, ?)"), t.UUID, t.Name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore tester "+t.UUID, err)
		}
	}
	for _, m := range backup.IDs {
		_, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO id_mappings (id, tester_uuid) VALUES (?, ?)"), m.ID, m.TesterUUID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore id mapping "+m.ID, err)
		}
	}
	for _, p := range backup.Purchases {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO purchases ("+purchaseCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
			p.ID, p.TesterUUID, p.Date, p.Order, p.Description, p.Amount,
			p.Screenshot, p.ScreenshotSummary, p.Refunded)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore purchase "+p.ID, err)
		}
	}
	for _, f := range backup.Feedbacks {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO feedbacks (purchase_id, date, feedback) VALUES (?, ?, ?)"),
			f.PurchaseID, f.Date, f.Feedback)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore feedback for "+f.PurchaseID, err)
		}
	}
	for _, p := range backup.Publications {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO publications (purchase_id, date, screenshot) VALUES (?, ?, ?)"),
			p.PurchaseID, p.Date, p.Screenshot)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore publication for "+p.PurchaseID, err)
		}
	}
	for _, r := range backup.Refunds {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO refunds (purchase_id, date, refund_date, amount, transaction_id) VALUES (?, ?, ?, ?, ?)"),
			r.PurchaseID, r.Date, r.RefundDate, r.Amount, r.TransactionID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBRestore, "failed to restore refund for "+r.PurchaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDBRestore, "failed to commit restore", err)
	}

	counts := backup.Counts()
	logger.Info("database restored",
		zap.String("backend", s.dialect.name()),
		zap.Int("testers", counts["testers"]),
		zap.Int("purchases", counts["purchases"]),
		zap.Int("refunds", counts["refunds"]))
	return nil
}
