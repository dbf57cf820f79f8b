package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type purchaseStore struct {
	db *gorm.DB
}

func (ps *purchaseStore) Put(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error) {
	p := purchase.Clone()
	if p.ID == "" {
		p.ID = idgen.NewUUID()
	}
	if err := ps.db.WithContext(ctx).Create(p.Clone()).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert purchase", err)
	}
	return p, nil
}

func (ps *purchaseStore) Get(ctx context.Context, id string) (*model.Purchase, error) {
	var p model.Purchase
	err := ps.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get purchase", err)
	}
	return &p, nil
}

func (ps *purchaseStore) Update(ctx context.Context, id string, update *model.PurchaseUpdate) (*model.Purchase, error) {
	// Column-level updates keep zero values like refunded=false intact.
	changes := map[string]any{}
	if update.Date != nil {
		changes["date"] = *update.Date
	}
	if update.Order != nil {
		changes["order_number"] = *update.Order
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.Amount != nil {
		changes["amount"] = *update.Amount
	}
	if update.Screenshot != nil {
		changes["screenshot"] = *update.Screenshot
	}
	if update.ScreenshotSummary != nil {
		changes["screenshot_summary"] = *update.ScreenshotSummary
	}
	if update.Refunded != nil {
		changes["refunded"] = *update.Refunded
	}

	if len(changes) > 0 {
		res := ps.db.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to update purchase", res.Error)
		}
		if res.RowsAffected == 0 {
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
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Purchase{}).
			Where("id = ? AND tester_uuid = ?", id, testerUUID).Count(&count).Error
		if err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to check purchase ownership", err)
		}
		if count == 0 {
			return errors.ErrNotFound("purchase")
		}

		for _, m := range []any{&model.ShortLink{}, &model.Refund{}, &model.Publication{}, &model.Feedback{}} {
			if err := tx.Where("purchase_id = ?", id).Delete(m).Error; err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete dependent records", err)
			}
		}
		if err := tx.Delete(&model.Purchase{}, "id = ?", id).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete purchase", err)
		}
		return nil
	})
}

func (ps *purchaseStore) ForTester(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx, ps.db.WithContext(ctx).Where("tester_uuid = ?", testerUUID))
}

func (ps *purchaseStore) Refunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx, ps.db.WithContext(ctx).
		Where("tester_uuid = ? AND refunded = ?", testerUUID, true))
}

func (ps *purchaseStore) NotRefunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error) {
	return ps.selectList(ctx, ps.db.WithContext(ctx).
		Where("tester_uuid = ? AND refunded = ?", testerUUID, false))
}

func (ps *purchaseStore) selectList(ctx context.Context, tx *gorm.DB) ([]*model.Purchase, error) {
	var list []*model.Purchase
	if err := tx.Order("date DESC, id ASC").Find(&list).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to select purchases", err)
	}
	return list, nil
}

// Statuses counts the filtered set, fetches the page slice and joins the
// related records with per-relation lookups on the slice.
func (ps *purchaseStore) Statuses(ctx context.Context, testerUUID string, filter store.StatusFilter, page store.PageRequest) (*store.Page[model.PurchaseStatus], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	base := ps.db.WithContext(ctx).Model(&model.Purchase{}).Where("tester_uuid = ?", testerUUID)
	if filter.OnlyUnrefunded {
		base = base.Where("refunded = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to count purchases", err)
	}

	var purchases []model.Purchase
	err := base.Session(&gorm.Session{}).
		Order(orderClause(page, "id")).
		Limit(page.Limit).
		Offset((page.Page - 1) * page.Limit).
		Find(&purchases).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query purchases", err)
	}

	related, err := ps.loadRelated(ctx, purchaseIDs(purchases))
	if err != nil {
		return nil, err
	}

	rows := make([]model.PurchaseStatus, len(purchases))
	for i, p := range purchases {
		rows[i] = related.statusOf(&p)
	}
	return store.NewPage(rows, int(total), page), nil
}

// ReadyForRefund materializes the tester's unrefunded purchases, keeps
// those with both precursors and paginates the result in memory.
func (ps *purchaseStore) ReadyForRefund(ctx context.Context, testerUUID string, page store.PageRequest) (*store.Page[model.PurchaseWithFeedback], error) {
	if testerUUID == "" {
		return nil, errors.ErrValidation("tester uuid is required")
	}
	page = page.Normalize()

	var purchases []model.Purchase
	err := ps.db.WithContext(ctx).
		Where("tester_uuid = ? AND refunded = ?", testerUUID, false).
		Order(orderClause(page, "id")).
		Find(&purchases).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query purchases", err)
	}

	related, err := ps.loadRelated(ctx, purchaseIDs(purchases))
	if err != nil {
		return nil, err
	}

	rows := []model.PurchaseWithFeedback{}
	for _, p := range purchases {
		feedback, hasFeedback := related.feedbacks[p.ID]
		publication, hasPublication := related.publications[p.ID]
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
	return store.SlicePage(rows, page), nil
}

func (ps *purchaseStore) RefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return ps.sumAmounts(ctx, testerUUID, true)
}

func (ps *purchaseStore) NotRefundedAmount(ctx context.Context, testerUUID string) (float64, error) {
	return ps.sumAmounts(ctx, testerUUID, false)
}

func (ps *purchaseStore) sumAmounts(ctx context.Context, testerUUID string, refunded bool) (float64, error) {
	var sum float64
	err := ps.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("tester_uuid = ? AND refunded = ?", testerUUID, refunded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
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
	tx, err := applyQuery(ps.db.WithContext(ctx), q, store.PurchaseFields, purchaseColumns)
	if err != nil {
		return nil, err
	}
	return ps.selectList(ctx, tx)
}

func (ps *purchaseStore) GetAll(ctx context.Context) ([]*model.Purchase, error) {
	return ps.Filter(ctx, store.Query{})
}

func purchaseIDs(list []model.Purchase) []string {
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

// relatedRecords indexes a purchase set's feedbacks, publications and
// refunds by purchase id.
type relatedRecords struct {
	feedbacks    map[string]model.Feedback
	publications map[string]model.Publication
	refunds      map[string]model.Refund
}

func (ps *purchaseStore) loadRelated(ctx context.Context, ids []string) (*relatedRecords, error) {
	r := &relatedRecords{
		feedbacks:    make(map[string]model.Feedback),
		publications: make(map[string]model.Publication),
		refunds:      make(map[string]model.Refund),
	}
	if len(ids) == 0 {
		return r, nil
	}

	var feedbacks []model.Feedback
	if err := ps.db.WithContext(ctx).Where("purchase_id IN ?", ids).Find(&feedbacks).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load feedbacks", err)
	}
	for _, f := range feedbacks {
		r.feedbacks[f.PurchaseID] = f
	}

	var publications []model.Publication
	if err := ps.db.WithContext(ctx).Where("purchase_id IN ?", ids).Find(&publications).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load publications", err)
	}
	for _, p := range publications {
		r.publications[p.PurchaseID] = p
	}

	var refunds []model.Refund
	if err := ps.db.WithContext(ctx).Where("purchase_id IN ?", ids).Find(&refunds).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load refunds", err)
	}
	for _, rf := range refunds {
		r.refunds[rf.PurchaseID] = rf
	}
	return r, nil
}

func (r *relatedRecords) statusOf(p *model.Purchase) model.PurchaseStatus {
	_, hasFeedback := r.feedbacks[p.ID]
	publication, hasPublication := r.publications[p.ID]
	refund, hasRefund := r.refunds[p.ID]

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
