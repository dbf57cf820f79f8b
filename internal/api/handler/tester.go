package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/api/middleware"
	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// TesterHandler handles tester profile requests
type TesterHandler struct {
	db store.Database
}

// NewTesterHandler creates a new tester handler
func NewTesterHandler(db store.Database) *TesterHandler {
	return &TesterHandler{db: db}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name string `json:"name" binding:"required"`
}

// Register handles POST /api/v1/me/register.
// It creates a tester owning the authenticated subject as external id.
func (h *TesterHandler) Register(c *gin.Context) {
	subject := middleware.Subject(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name is required")
		return
	}

	ctx := c.Request.Context()

	existing, err := h.db.IDMappings().GetTesterUUID(ctx, subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != "" {
		c.JSON(http.StatusConflict, gin.H{
			"code":    errors.ErrCodeConflict,
			"message": "already registered",
		})
		return
	}

	tester, err := h.db.Testers().Put(ctx, &model.Tester{
		Name: req.Name,
		IDs:  []string{subject},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Tester registered", zap.String("tester", tester.UUID))
	c.JSON(http.StatusCreated, tester)
}

// Me handles GET /api/v1/me
func (h *TesterHandler) Me(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		respondNotFound(c, "tester")
		return
	}

	tester, err := h.db.Testers().Get(c.Request.Context(), uuid)
	if err != nil {
		respondError(c, err)
		return
	}
	if tester == nil {
		respondNotFound(c, "tester")
		return
	}

	c.JSON(http.StatusOK, tester)
}

// Stats handles GET /api/v1/me/stats
func (h *TesterHandler) Stats(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		// Unregistered subjects see zeroed stats rather than an error
		c.JSON(http.StatusOK, model.TesterStats{})
		return
	}

	ctx := c.Request.Context()
	refunded, err := h.db.Purchases().RefundedAmount(ctx, uuid)
	if err != nil {
		respondError(c, err)
		return
	}
	outstanding, err := h.db.Purchases().NotRefundedAmount(ctx, uuid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TesterStats{
		RefundedAmount:    refunded,
		NotRefundedAmount: outstanding,
	})
}
