package handler

import (
	"io"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// maxRestoreBytes bounds the accepted restore document size (64 MiB)
const maxRestoreBytes = 64 << 20

// AdminHandler handles operational admin endpoints. Backup, restore and
// schema endpoints are gated on the backend's optional capabilities.
type AdminHandler struct {
	db store.Database
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db store.Database) *AdminHandler {
	return &AdminHandler{db: db}
}

// Status handles GET /api/v1/admin/status
func (h *AdminHandler) Status(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"version":   consts.Version,
		"buildTime": consts.BuildTime,
		"gitCommit": consts.GitCommit,
		"goVersion": runtime.Version(),
		"uptime":    consts.GetUptime().String(),
		"backend":   h.db.Backend(),
		"memory": gin.H{
			"allocBytes":      mem.Alloc,
			"totalAllocBytes": mem.TotalAlloc,
			"sysBytes":        mem.Sys,
			"numGC":           mem.NumGC,
		},
	})
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	testers, err := h.db.Testers().GetAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	purchases, err := h.db.Purchases().GetAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	refunds, err := h.db.Refunds().GetAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	var refundedAmount, outstandingAmount float64
	for _, p := range purchases {
		if p.Refunded {
			refundedAmount += p.Amount
		} else {
			outstandingAmount += p.Amount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"testers":           len(testers),
		"purchases":         len(purchases),
		"refunds":           len(refunds),
		"refundedAmount":    refundedAmount,
		"notRefundedAmount": outstandingAmount,
	})
}

// Backup handles POST /api/v1/admin/backup
func (h *AdminHandler) Backup(c *gin.Context) {
	backuper, ok := h.db.(store.Backuper)
	if !ok {
		respondError(c, errors.ErrUnsupported("backup", h.db.Backend()))
		return
	}

	ctx := c.Request.Context()
	data, err := backuper.BackupJSON(ctx)
	if err != nil {
		telemetry.GetMetrics().RecordBackup(ctx, h.db.Backend(), false)
		respondError(c, err)
		return
	}

	telemetry.GetMetrics().RecordBackup(ctx, h.db.Backend(), true)
	logger.Info("Backup produced", zap.Int("bytes", len(data)))

	c.Header("Content-Disposition", `attachment; filename="rebatetrack-backup.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Restore handles POST /api/v1/admin/restore.
// The uploaded document replaces all data; validation failures leave the
// database untouched.
func (h *AdminHandler) Restore(c *gin.Context) {
	backuper, ok := h.db.(store.Backuper)
	if !ok {
		respondError(c, errors.ErrUnsupported("restore", h.db.Backend()))
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRestoreBytes))
	if err != nil {
		respondValidation(c, "failed to read request body")
		return
	}

	ctx := c.Request.Context()
	if err := backuper.RestoreJSON(ctx, data); err != nil {
		telemetry.GetMetrics().RecordRestore(ctx, h.db.Backend(), false)
		respondError(c, err)
		return
	}

	telemetry.GetMetrics().RecordRestore(ctx, h.db.Backend(), true)
	logger.Info("Database restored from backup", zap.Int("bytes", len(data)))

	c.JSON(http.StatusOK, gin.H{"message": "restore completed"})
}

// Reset handles POST /api/v1/admin/reset.
// Only the in-process backend supports it.
func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.db.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	logger.Warn("Database reset")
	c.JSON(http.StatusOK, gin.H{"message": "database reset"})
}

// SchemaTables handles GET /api/v1/admin/schema/tables
func (h *AdminHandler) SchemaTables(c *gin.Context) {
	introspector, ok := h.db.(store.SchemaIntrospector)
	if !ok {
		respondError(c, errors.ErrUnsupported("schema introspection", h.db.Backend()))
		return
	}

	tables, err := introspector.Tables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// SchemaVersion handles GET /api/v1/admin/schema/version
func (h *AdminHandler) SchemaVersion(c *gin.Context) {
	introspector, ok := h.db.(store.SchemaIntrospector)
	if !ok {
		respondError(c, errors.ErrUnsupported("schema introspection", h.db.Backend()))
		return
	}

	version, err := introspector.SchemaVersion(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

// SchemaMigrations handles GET /api/v1/admin/schema/migrations
func (h *AdminHandler) SchemaMigrations(c *gin.Context) {
	introspector, ok := h.db.(store.SchemaIntrospector)
	if !ok {
		respondError(c, errors.ErrUnsupported("schema introspection", h.db.Backend()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": introspector.MigrationReport()})
}
