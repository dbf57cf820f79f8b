package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/notify"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// RecordHandler handles the refund-precursor records (feedback,
// publication) and refund creation for a tester's purchases.
type RecordHandler struct {
	db       store.Database
	notifier notify.Notifier
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(db store.Database, notifier notify.Notifier) *RecordHandler {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &RecordHandler{db: db, notifier: notifier}
}

// purchases share the ownership resolution with PurchaseHandler
func (h *RecordHandler) ownedPurchase(c *gin.Context) (*model.Purchase, bool) {
	_, purchase, ok := (&PurchaseHandler{db: h.db}).ownedPurchase(c)
	return purchase, ok
}

// FeedbackRequest represents the feedback body
type FeedbackRequest struct {
	Date     string `json:"date" binding:"required"`
	Feedback string `json:"feedback" binding:"required"`
}

// PutFeedback handles POST /api/v1/me/purchases/:id/feedback.
// A second submission for the same purchase replaces the first.
func (h *RecordHandler) PutFeedback(c *gin.Context) {
	purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "date and feedback are required")
		return
	}
	date, okDate := parseRFC3339(req.Date)
	if !okDate {
		respondValidation(c, "date must be an RFC3339 timestamp")
		return
	}

	feedback := &model.Feedback{
		PurchaseID: purchase.ID,
		Date:       date,
		Feedback:   req.Feedback,
	}
	if err := h.db.Feedbacks().Put(c.Request.Context(), feedback); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// DeleteFeedback handles DELETE /api/v1/me/purchases/:id/feedback
func (h *RecordHandler) DeleteFeedback(c *gin.Context) {
	purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}
	if err := h.db.Feedbacks().Delete(c.Request.Context(), purchase.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublicationRequest represents the publication body
type PublicationRequest struct {
	Date       string `json:"date" binding:"required"`
	Screenshot string `json:"screenshot" binding:"required"`
}

// PutPublication handles POST /api/v1/me/purchases/:id/publication
func (h *RecordHandler) PutPublication(c *gin.Context) {
	purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}

	var req PublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "date and screenshot are required")
		return
	}
	date, okDate := parseRFC3339(req.Date)
	if !okDate {
		respondValidation(c, "date must be an RFC3339 timestamp")
		return
	}

	publication := &model.Publication{
		PurchaseID: purchase.ID,
		Date:       date,
		Screenshot: req.Screenshot,
	}
	if err := h.db.Publications().Put(c.Request.Context(), publication); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publication)
}

// DeletePublication handles DELETE /api/v1/me/purchases/:id/publication
func (h *RecordHandler) DeletePublication(c *gin.Context) {
	purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}
	if err := h.db.Publications().Delete(c.Request.Context(), purchase.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefundRequest represents the refund body
type RefundRequest struct {
	Date          string  `json:"date" binding:"required"`
	RefundDate    string  `json:"refundDate" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	TransactionID string  `json:"transactionId"`
}

// CreateRefund handles POST /api/v1/me/purchases/:id/refund.
// The refund row and the purchase's refunded flag change together.
func (h *RecordHandler) CreateRefund(c *gin.Context) {
	purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "date, refundDate and amount are required")
		return
	}
	date, okDate := parseRFC3339(req.Date)
	if !okDate {
		respondValidation(c, "date must be an RFC3339 timestamp")
		return
	}
	refundDate, okRefundDate := parseRFC3339(req.RefundDate)
	if !okRefundDate {
		respondValidation(c, "refundDate must be an RFC3339 timestamp")
		return
	}
	if req.Amount <= 0 {
		respondValidation(c, "amount must be positive")
		return
	}

	refund := &model.Refund{
		PurchaseID:    purchase.ID,
		Date:          date,
		RefundDate:    refundDate,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "refund.create",
		telemetry.WithPurchaseAttributes(purchase.ID, purchase.TesterUUID))
	defer span.End()
	telemetry.SetSpanAttributes(span, telemetry.AttrRefundAmount.Float64(refund.Amount))

	if err := h.db.Refunds().Create(ctx, refund); err != nil {
		telemetry.SetSpanError(span, err)
		respondError(c, err)
		return
	}
	telemetry.SetSpanOK(span)

	telemetry.GetMetrics().RecordRefund(ctx, h.db.Backend(), refund.Amount)
	logger.Info("Refund recorded",
		zap.String("purchase", purchase.ID),
		zap.Float64("amount", refund.Amount))

	h.notifier.Notify(ctx, &notify.Event{
		Event:      config.NotificationEventRefundRecorded,
		TesterUUID: purchase.TesterUUID,
		Purchase:   purchase.ID,
		Amount:     refund.Amount,
		OccurredAt: time.Now(),
	})

	c.JSON(http.StatusCreated, refund)
}
