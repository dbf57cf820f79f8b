package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/shortlink"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/internal/store/storetest"
)

// shortLinkTestRouter wires the mint and resolve routes
func shortLinkTestRouter(db store.Database, subject string, ttl time.Duration) *gin.Engine {
	service := shortlink.NewService(db, ttl, "")
	handler := NewShortLinkHandler(db, service)
	router := SetupTestRouter()
	router.POST("/api/v1/me/purchases/:id/shortlink", AsSubject(subject), handler.Mint)
	router.GET("/s/:code", handler.Resolve)
	return router
}

// TestShortLinkHandler_Mint tests minting a code for an owned purchase
func TestShortLinkHandler_Mint(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)

	router := shortLinkTestRouter(db, "amazon:tester-1", time.Hour)

	req := CreateTestRequest("POST", "/api/v1/me/purchases/"+purchase.ID+"/shortlink", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Status code = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp ShortLinkResponse
	DecodeResponse(t, w, &resp)
	if resp.Code == "" {
		t.Fatal("Expected a short code")
	}
	if resp.Path != "/s/"+resp.Code {
		t.Errorf("Path = %q, want %q", resp.Path, "/s/"+resp.Code)
	}
	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		t.Fatalf("ExpiresAt is not RFC3339: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt = %v, want a future time", expiresAt)
	}
}

// TestShortLinkHandler_Mint_ForeignPurchase tests that a code cannot be
// minted for another tester's purchase
func TestShortLinkHandler_Mint_ForeignPurchase(t *testing.T) {
	db := SetupTestDB(t)
	owner := RegisterTestTester(t, db, "amazon:owner")
	RegisterTestTester(t, db, "amazon:other")
	purchase := storetest.CreateTestPurchase(t, db, owner.UUID)

	router := shortLinkTestRouter(db, "amazon:other", time.Hour)

	req := CreateTestRequest("POST", "/api/v1/me/purchases/"+purchase.ID+"/shortlink", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound)
}

// TestShortLinkHandler_Resolve tests resolving a minted code to the
// purchase's dispute summary
func TestShortLinkHandler_Resolve(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)
	storetest.CreateTestFeedback(t, db, purchase.ID)

	router := shortLinkTestRouter(db, "amazon:tester-1", time.Hour)

	req := CreateTestRequest("POST", "/api/v1/me/purchases/"+purchase.ID+"/shortlink", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Mint status code = %d: %s", w.Code, w.Body.String())
	}
	var minted ShortLinkResponse
	DecodeResponse(t, w, &minted)

	req = CreateTestRequest("GET", "/s/"+minted.Code, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Resolve status code = %d: %s", w.Code, w.Body.String())
	}

	var row model.PurchaseStatus
	DecodeResponse(t, w, &row)
	if row.Purchase != purchase.ID {
		t.Errorf("Purchase = %q, want %q", row.Purchase, purchase.ID)
	}
	if !row.HasFeedback {
		t.Error("Expected hasFeedback true")
	}
	if row.HasRefund {
		t.Error("Expected hasRefund false")
	}
}

// TestShortLinkHandler_Resolve_Unknown tests unknown codes
func TestShortLinkHandler_Resolve_Unknown(t *testing.T) {
	db := SetupTestDB(t)
	router := shortLinkTestRouter(db, "amazon:tester-1", time.Hour)

	req := CreateTestRequest("GET", "/s/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound)
}

// TestShortLinkHandler_Resolve_Expired tests that expired codes read the
// same as unknown ones
func TestShortLinkHandler_Resolve_Expired(t *testing.T) {
	db := SetupTestDB(t)
	tester := RegisterTestTester(t, db, "amazon:tester-1")
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)

	router := shortLinkTestRouter(db, "amazon:tester-1", time.Nanosecond)

	req := CreateTestRequest("POST", "/api/v1/me/purchases/"+purchase.ID+"/shortlink", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Mint status code = %d: %s", w.Code, w.Body.String())
	}
	var minted ShortLinkResponse
	DecodeResponse(t, w, &minted)

	time.Sleep(5 * time.Millisecond)

	req = CreateTestRequest("GET", "/s/"+minted.Code, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound)
}
