package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/internal/store/storetest"
)

// adminTestRouter wires all admin routes without the auth layer
func adminTestRouter(db store.Database) *gin.Engine {
	handler := NewAdminHandler(db)
	router := SetupTestRouter()
	group := router.Group("/api/v1/admin")
	group.GET("/status", handler.Status)
	group.GET("/stats", handler.Stats)
	group.POST("/backup", handler.Backup)
	group.POST("/restore", handler.Restore)
	group.POST("/reset", handler.Reset)
	group.GET("/schema/tables", handler.SchemaTables)
	group.GET("/schema/version", handler.SchemaVersion)
	group.GET("/schema/migrations", handler.SchemaMigrations)
	return router
}

// TestAdminHandler_Status tests the status endpoint
func TestAdminHandler_Status(t *testing.T) {
	db := SetupTestDB(t)
	router := adminTestRouter(db)

	req := CreateTestRequest("GET", "/api/v1/admin/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}

	var status map[string]interface{}
	DecodeResponse(t, w, &status)
	if status["backend"] != "memory" {
		t.Errorf("backend = %v, want memory", status["backend"])
	}
	for _, key := range []string{"version", "goVersion", "uptime", "memory"} {
		if _, ok := status[key]; !ok {
			t.Errorf("Expected field %q in status response", key)
		}
	}
}

// TestAdminHandler_Stats tests instance-wide aggregate counts
func TestAdminHandler_Stats(t *testing.T) {
	db := SetupTestDB(t)
	alice := RegisterTestTester(t, db, "amazon:alice")
	bob := RegisterTestTester(t, db, "amazon:bob")

	refunded := storetest.CreateTestPurchase(t, db, alice.UUID, func(p *model.Purchase) {
		p.Amount = 20.00
	})
	storetest.CreateTestRefund(t, db, refunded.ID, 20.00)
	storetest.CreateTestPurchase(t, db, bob.UUID, func(p *model.Purchase) {
		p.Amount = 5.50
	})

	router := adminTestRouter(db)

	req := CreateTestRequest("GET", "/api/v1/admin/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	AssertJSONResponse(t, w, http.StatusOK, map[string]interface{}{
		"testers":           float64(2),
		"purchases":         float64(2),
		"refunds":           float64(1),
		"refundedAmount":    20.00,
		"notRefundedAmount": 5.50,
	})
}

// TestAdminHandler_BackupRestore tests a backup and restore round trip
func TestAdminHandler_BackupRestore(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)
	storetest.CreateTestFeedback(t, db, purchase.ID)

	router := adminTestRouter(db)

	req := CreateTestRequest("POST", "/api/v1/admin/backup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Backup status code = %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Disposition") == "" {
		t.Error("Expected a Content-Disposition header")
	}
	snapshot := w.Body.Bytes()

	// Wipe, then restore the snapshot
	if err := db.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	restoreReq := httptest.NewRequest("POST", "/api/v1/admin/restore", bytes.NewReader(snapshot))
	restoreReq.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, restoreReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Restore status code = %d: %s", w.Code, w.Body.String())
	}

	restored, err := db.Purchases().Get(context.Background(), purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if restored == nil {
		t.Fatal("Purchase should survive the round trip")
	}
	feedback, err := db.Feedbacks().GetByPurchase(context.Background(), purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase failed: %v", err)
	}
	if feedback == nil {
		t.Error("Feedback should survive the round trip")
	}
}

// TestAdminHandler_Restore_InvalidDocument tests that a bad document leaves
// the database untouched
func TestAdminHandler_Restore_InvalidDocument(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)

	router := adminTestRouter(db)

	req := httptest.NewRequest("POST", "/api/v1/admin/restore", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest)

	survivor, err := db.Purchases().Get(context.Background(), purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if survivor == nil {
		t.Error("Existing data should survive a failed restore")
	}
}

// TestAdminHandler_Reset tests the reset endpoint
func TestAdminHandler_Reset(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)

	router := adminTestRouter(db)

	req := CreateTestRequest("POST", "/api/v1/admin/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d: %s", w.Code, w.Body.String())
	}

	gone, err := db.Purchases().Get(context.Background(), purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gone != nil {
		t.Error("Purchase should be gone after reset")
	}
}

// TestAdminHandler_Schema_Unsupported tests that the memory backend reports
// schema introspection as unsupported
func TestAdminHandler_Schema_Unsupported(t *testing.T) {
	db := SetupTestDB(t)
	router := adminTestRouter(db)

	paths := []string{
		"/api/v1/admin/schema/tables",
		"/api/v1/admin/schema/version",
		"/api/v1/admin/schema/migrations",
	}
	for _, path := range paths {
		req := CreateTestRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s status code = %d, want %d", path, w.Code, http.StatusNotImplemented)
		}
	}
}
