package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// PurchaseHandler handles purchase lifecycle requests
type PurchaseHandler struct {
	db store.Database
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(db store.Database) *PurchaseHandler {
	return &PurchaseHandler{db: db}
}

// CreatePurchaseRequest represents the purchase creation body
type CreatePurchaseRequest struct {
	Date              string  `json:"date" binding:"required"`
	Order             string  `json:"order" binding:"required"`
	Description       string  `json:"description"`
	Amount            float64 `json:"amount" binding:"required"`
	Screenshot        string  `json:"screenshot"`
	ScreenshotSummary string  `json:"screenshotSummary"`
}

// List handles GET /api/v1/me/purchases.
// Returns a page of derived status rows; ?unrefunded=true restricts the
// page to outstanding purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		// Unregistered subjects see an empty page
		c.JSON(http.StatusOK, store.NewPage([]*model.PurchaseStatus{}, 0, parsePageRequest(c)))
		return
	}

	filter := store.StatusFilter{
		OnlyUnrefunded: c.Query("unrefunded") == "true",
	}

	page, err := h.db.Purchases().Statuses(c.Request.Context(), uuid, filter, parsePageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Ready handles GET /api/v1/me/purchases/ready.
// Returns unrefunded purchases with both precursors present, inlined.
func (h *PurchaseHandler) Ready(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		c.JSON(http.StatusOK, store.NewPage([]*model.PurchaseWithFeedback{}, 0, parsePageRequest(c)))
		return
	}

	page, err := h.db.Purchases().ReadyForRefund(c.Request.Context(), uuid, parsePageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create handles POST /api/v1/me/purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		respondNotFound(c, "tester")
		return
	}

	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "date, order and amount are required")
		return
	}

	date, ok := parseRFC3339(req.Date)
	if !ok {
		respondValidation(c, "date must be an RFC3339 timestamp")
		return
	}
	if req.Amount <= 0 {
		respondValidation(c, "amount must be positive")
		return
	}

	purchase, err := h.db.Purchases().Put(c.Request.Context(), &model.Purchase{
		TesterUUID:        uuid,
		Date:              date,
		Order:             req.Order,
		Description:       req.Description,
		Amount:            req.Amount,
		Screenshot:        req.Screenshot,
		ScreenshotSummary: req.ScreenshotSummary,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	telemetry.GetMetrics().RecordPurchaseCreated(c.Request.Context(), h.db.Backend())
	logger.Info("Purchase created",
		zap.String("purchase", purchase.ID),
		zap.String("tester", uuid))
	c.JSON(http.StatusCreated, purchase)
}

// Update handles PATCH /api/v1/me/purchases/:id
func (h *PurchaseHandler) Update(c *gin.Context) {
	uuid, purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}

	var update model.PurchaseUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondValidation(c, "invalid update body")
		return
	}
	if update.IsEmpty() {
		respondValidation(c, "update carries no changes")
		return
	}

	updated, err := h.db.Purchases().Update(c.Request.Context(), purchase.ID, &update)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Debug("Purchase updated",
		zap.String("purchase", purchase.ID),
		zap.String("tester", uuid))
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/me/purchases/:id.
// The delete cascades to the purchase's dependent records.
func (h *PurchaseHandler) Delete(c *gin.Context) {
	uuid, purchase, ok := h.ownedPurchase(c)
	if !ok {
		return
	}

	if err := h.db.Purchases().Delete(c.Request.Context(), purchase.ID, uuid); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Purchase deleted",
		zap.String("purchase", purchase.ID),
		zap.String("tester", uuid))
	c.Status(http.StatusNoContent)
}

// ownedPurchase resolves the :id path parameter to a purchase owned by the
// authenticated tester. Foreign and unknown purchases both read as 404.
func (h *PurchaseHandler) ownedPurchase(c *gin.Context) (string, *model.Purchase, bool) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return "", nil, false
	}
	if uuid == "" {
		respondNotFound(c, "tester")
		return "", nil, false
	}

	purchase, err := h.db.Purchases().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return "", nil, false
	}
	if purchase == nil || purchase.TesterUUID != uuid {
		respondNotFound(c, "purchase")
		return "", nil, false
	}
	return uuid, purchase, true
}

// statusRow loads a single purchase's derived status row
func statusRow(c *gin.Context, db store.Database, purchase *model.Purchase) (*model.PurchaseStatus, error) {
	ctx := c.Request.Context()

	feedback, err := db.Feedbacks().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	publication, err := db.Publications().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	refund, err := db.Refunds().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}

	row := &model.PurchaseStatus{
		Purchase:           purchase.ID,
		TesterUUID:         purchase.TesterUUID,
		Date:               purchase.Date,
		Order:              purchase.Order,
		Description:        purchase.Description,
		Amount:             purchase.Amount,
		Refunded:           purchase.Refunded,
		HasFeedback:        feedback != nil,
		HasPublication:     publication != nil,
		HasRefund:          refund != nil,
		PurchaseScreenshot: purchase.Screenshot,
		ScreenshotSummary:  purchase.ScreenshotSummary,
	}
	if publication != nil {
		row.PublicationScreenshot = publication.Screenshot
	}
	if refund != nil {
		row.TransactionID = refund.TransactionID
	}
	return row, nil
}
