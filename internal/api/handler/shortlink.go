package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rebatetrack/rebatetrack/internal/shortlink"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// ShortLinkHandler mints short links for purchases and resolves the
// public dispute-summary codes.
type ShortLinkHandler struct {
	db      store.Database
	service *shortlink.Service
}

// NewShortLinkHandler creates a new short-link handler
func NewShortLinkHandler(db store.Database, service *shortlink.Service) *ShortLinkHandler {
	return &ShortLinkHandler{db: db, service: service}
}

// ShortLinkResponse represents a minted short link
type ShortLinkResponse struct {
	Code      string `json:"code"`
	Path      string `json:"path"`
	ExpiresAt string `json:"expiresAt"`
}

// Mint handles POST /api/v1/me/purchases/:id/shortlink
func (h *ShortLinkHandler) Mint(c *gin.Context) {
	uuid, err := resolveTesterUUID(c, h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	if uuid == "" {
		respondNotFound(c, "tester")
		return
	}

	link, err := h.service.CreateForPurchase(c.Request.Context(), c.Param("id"), uuid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ShortLinkResponse{
		Code:      link.Code,
		Path:      "/s/" + link.Code,
		ExpiresAt: link.ExpiresAt.Format(time.RFC3339),
	})
}

// Resolve handles GET /s/:code.
// Returns the linked purchase's dispute summary; expired and unknown
// codes are indistinguishable 404s.
func (h *ShortLinkHandler) Resolve(c *gin.Context) {
	ctx := c.Request.Context()

	purchaseID, err := h.service.Resolve(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if purchaseID == "" {
		telemetry.GetMetrics().RecordShortLinkResolve(ctx, false)
		respondNotFound(c, "link")
		return
	}

	purchase, err := h.db.Purchases().Get(ctx, purchaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	if purchase == nil {
		telemetry.GetMetrics().RecordShortLinkResolve(ctx, false)
		respondNotFound(c, "link")
		return
	}

	row, err := statusRow(c, h.db, purchase)
	if err != nil {
		respondError(c, err)
		return
	}

	telemetry.GetMetrics().RecordShortLinkResolve(ctx, true)
	c.JSON(http.StatusOK, row)
}
