// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rebatetrack/rebatetrack/internal/api/middleware"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// respondError writes the AppError mapping for err, falling back to a
// generic internal error for unknown error types.
func respondError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus(), gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    errors.ErrCodeInternal,
		"message": "Internal server error",
	})
}

// respondValidation writes a 400 with the given message
func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    errors.ErrCodeValidation,
		"message": message,
	})
}

// respondNotFound writes a 404 for the named resource
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    errors.ErrCodeNotFound,
		"message": resource + " not found",
	})
}

// resolveTesterUUID maps the authenticated subject to a tester uuid via the
// id-mapping collection. Returns "" when the subject is not registered.
func resolveTesterUUID(c *gin.Context, db store.Database) (string, error) {
	subject := middleware.Subject(c)
	if subject == "" {
		return "", errors.ErrUnauthorized("not authenticated")
	}
	return db.IDMappings().GetTesterUUID(c.Request.Context(), subject)
}

// parsePageRequest reads page, limit, sort and order query parameters.
// Invalid values fall back to defaults via Normalize.
func parsePageRequest(c *gin.Context) store.PageRequest {
	page := store.PageRequest{
		Sort:  store.SortKey(c.Query("sort")),
		Order: store.SortOrder(c.Query("order")),
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		page.Limit = v
	}
	return page.Normalize()
}

// parseRFC3339 parses a required RFC3339 timestamp field
func parseRFC3339(value string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
