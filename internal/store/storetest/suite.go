package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// Run executes the full conformance suite against the backend produced by
// open. Each subtest receives a fresh database.
func Run(t *testing.T, open OpenFunc) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Database)
	}{
		{"TesterPutAndGet", testTesterPutAndGet},
		{"TesterPutReconcilesIDs", testTesterPutReconcilesIDs},
		{"TesterPutConflictingID", testTesterPutConflictingID},
		{"TesterAddIDs", testTesterAddIDs},
		{"IDMappingDuplicate", testIDMappingDuplicate},
		{"IDMappingExistsMultiple", testIDMappingExistsMultiple},
		{"IDMappingDelete", testIDMappingDelete},
		{"PurchaseLifecycle", testPurchaseLifecycle},
		{"PurchaseDeleteOwnerScoped", testPurchaseDeleteOwnerScoped},
		{"PurchaseQueries", testPurchaseQueries},
		{"FeedbackLifecycle", testFeedbackLifecycle},
		{"PublicationLifecycle", testPublicationLifecycle},
		{"RefundFlipsPurchase", testRefundFlipsPurchase},
		{"RefundUnknownPurchase", testRefundUnknownPurchase},
		{"RefundDuplicate", testRefundDuplicate},
		{"ReadyForRefund", testReadyForRefund},
		{"Statuses", testStatuses},
		{"StatusesRequireTester", testStatusesRequireTester},
		{"PaginationInvariant", testPaginationInvariant},
		{"SortFallback", testSortFallback},
		{"SortByOrderNumber", testSortByOrderNumber},
		{"AmountScenario", testAmountScenario},
		{"ShortLinks", testShortLinks},
		{"FinderContract", testFinderContract},
		{"BackupRoundTrip", testBackupRoundTrip},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func testTesterPutAndGet(t *testing.T, db store.Database) {
	ctx := context.Background()

	created, err := db.Testers().Put(ctx, &model.Tester{
		Name: "John Doe",
		IDs:  []string{"auth0|123", "google|456"},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if created.UUID == "" {
		t.Fatal("Put should generate a uuid")
	}

	got, err := db.Testers().Get(ctx, created.UUID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for an existing tester")
	}
	if got.Name != "John Doe" {
		t.Errorf("Name = %q, want %q", got.Name, "John Doe")
	}
	if !equalStringSets(got.IDs, []string{"auth0|123", "google|456"}) {
		t.Errorf("IDs = %v, want the inserted set", got.IDs)
	}

	// Every id resolves back to the tester.
	for _, id := range []string{"auth0|123", "google|456"} {
		uuid, err := db.IDMappings().GetTesterUUID(ctx, id)
		if err != nil {
			t.Fatalf("GetTesterUUID(%q) failed: %v", id, err)
		}
		if uuid != created.UUID {
			t.Errorf("GetTesterUUID(%q) = %q, want %q", id, uuid, created.UUID)
		}
	}

	// Absent tester is nil, not an error.
	missing, err := db.Testers().Get(ctx, "no-such-uuid")
	if err != nil {
		t.Fatalf("Get for absent tester failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Get for absent tester = %+v, want nil", missing)
	}
}

func testTesterPutReconcilesIDs(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db, func(tr *model.Tester) {
		tr.IDs = []string{"auth0|a", "auth0|b"}
	})

	// Replace one id and rename.
	tester.Name = "Renamed"
	tester.IDs = []string{"auth0|b", "auth0|c"}
	updated, err := db.Testers().Put(ctx, tester)
	if err != nil {
		t.Fatalf("Put update failed: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Name = %q, want %q", updated.Name, "Renamed")
	}
	if !equalStringSets(updated.IDs, []string{"auth0|b", "auth0|c"}) {
		t.Errorf("IDs = %v, want [auth0|b auth0|c]", updated.IDs)
	}

	// The removed id no longer resolves, the added one does.
	uuid, err := db.IDMappings().GetTesterUUID(ctx, "auth0|a")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != "" {
		t.Errorf("removed id still resolves to %q", uuid)
	}
	uuid, err = db.IDMappings().GetTesterUUID(ctx, "auth0|c")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != tester.UUID {
		t.Errorf("added id resolves to %q, want %q", uuid, tester.UUID)
	}
}

func testTesterPutConflictingID(t *testing.T, db store.Database) {
	ctx := context.Background()

	first := CreateTestTester(t, db, func(tr *model.Tester) {
		tr.IDs = []string{"auth0|taken"}
	})

	// A second tester claiming the same external id is a conflict.
	_, err := db.Testers().Put(ctx, &model.Tester{
		Name: "Impostor",
		IDs:  []string{"auth0|taken"},
	})
	if err == nil {
		t.Fatal("claiming another tester's id should fail")
	}
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// The original mapping is untouched.
	uuid, err := db.IDMappings().GetTesterUUID(ctx, "auth0|taken")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != first.UUID {
		t.Errorf("mapping points at %q, want %q", uuid, first.UUID)
	}

	// Re-submitting one's own id is a no-op, not a conflict.
	if _, err := db.Testers().Put(ctx, first); err != nil {
		t.Errorf("re-submitting own ids failed: %v", err)
	}
}

func testTesterAddIDs(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db, func(tr *model.Tester) {
		tr.IDs = []string{"auth0|x"}
	})

	updated, err := db.Testers().AddIDs(ctx, tester.UUID, []string{"github|y"})
	if err != nil {
		t.Fatalf("AddIDs failed: %v", err)
	}
	if !equalStringSets(updated.IDs, []string{"auth0|x", "github|y"}) {
		t.Errorf("IDs = %v, want both ids", updated.IDs)
	}

	uuid, err := db.IDMappings().GetTesterUUID(ctx, "github|y")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != tester.UUID {
		t.Errorf("added id resolves to %q, want %q", uuid, tester.UUID)
	}
}

func testIDMappingDuplicate(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	other := CreateTestTester(t, db)

	if err := db.IDMappings().Put(ctx, &model.IDMapping{ID: "dup|1", TesterUUID: tester.UUID}); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}

	err := db.IDMappings().Put(ctx, &model.IDMapping{ID: "dup|1", TesterUUID: other.UUID})
	if err == nil {
		t.Fatal("duplicate id insertion should fail")
	}
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// First write wins.
	uuid, err := db.IDMappings().GetTesterUUID(ctx, "dup|1")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != tester.UUID {
		t.Errorf("mapping resolves to %q, want the first writer %q", uuid, tester.UUID)
	}
}

func testIDMappingExistsMultiple(t *testing.T, db store.Database) {
	ctx := context.Background()

	CreateTestTester(t, db, func(tr *model.Tester) {
		tr.IDs = []string{"exists|1", "exists|2"}
	})

	got, err := db.IDMappings().ExistsMultiple(ctx, []string{"exists|1", "missing|1", "exists|2"})
	if err != nil {
		t.Fatalf("ExistsMultiple failed: %v", err)
	}
	want := []bool{true, false, true}
	if len(got) != len(want) {
		t.Fatalf("ExistsMultiple returned %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExistsMultiple[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func testIDMappingDelete(t *testing.T, db store.Database) {
	ctx := context.Background()

	CreateTestTester(t, db, func(tr *model.Tester) {
		tr.IDs = []string{"del|1"}
	})

	if err := db.IDMappings().Delete(ctx, "del|1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	uuid, err := db.IDMappings().GetTesterUUID(ctx, "del|1")
	if err != nil {
		t.Fatalf("GetTesterUUID failed: %v", err)
	}
	if uuid != "" {
		t.Errorf("deleted id still resolves to %q", uuid)
	}

	// Deleting an absent id is a no-op.
	if err := db.IDMappings().Delete(ctx, "del|absent"); err != nil {
		t.Errorf("deleting an absent id should be a no-op, got %v", err)
	}
}

func testPurchaseLifecycle(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)
	if purchase.ID == "" {
		t.Fatal("Put should generate an id")
	}

	got, err := db.Purchases().Get(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Amount != 10.99 {
		t.Fatalf("Get = %+v, want the created purchase", got)
	}

	// Partial update leaves untouched fields alone.
	newAmount := 12.50
	summary := "receipt for blue widget"
	updated, err := db.Purchases().Update(ctx, purchase.ID, &model.PurchaseUpdate{
		Amount:            &newAmount,
		ScreenshotSummary: &summary,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Amount != 12.50 || updated.ScreenshotSummary != summary {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Order != purchase.Order || updated.Description != purchase.Description {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	// Updating an unknown purchase is a not-found error.
	if _, err := db.Purchases().Update(ctx, "no-such-id", &model.PurchaseUpdate{Amount: &newAmount}); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}

	if err := db.Purchases().Delete(ctx, purchase.ID, tester.UUID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = db.Purchases().Get(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("purchase still present after delete: %+v", got)
	}
}

func testPurchaseDeleteOwnerScoped(t *testing.T, db store.Database) {
	ctx := context.Background()

	owner := CreateTestTester(t, db)
	stranger := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, owner.UUID)

	err := db.Purchases().Delete(ctx, purchase.ID, stranger.UUID)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("delete by non-owner should be not-found, got %v", err)
	}

	got, err := db.Purchases().Get(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("purchase deleted by a non-owner")
	}
}

func testPurchaseQueries(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	other := CreateTestTester(t, db)

	p1 := CreateTestPurchase(t, db, tester.UUID)
	p2 := CreateTestPurchase(t, db, tester.UUID)
	CreateTestPurchase(t, db, other.UUID)

	CreateTestRefund(t, db, p1.ID, p1.Amount)

	mine, err := db.Purchases().ForTester(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("ForTester failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ForTester returned %d purchases, want 2", len(mine))
	}

	refunded, err := db.Purchases().Refunded(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("Refunded failed: %v", err)
	}
	if len(refunded) != 1 || refunded[0].ID != p1.ID {
		t.Errorf("Refunded = %v, want [%s]", purchaseIDs(refunded), p1.ID)
	}

	outstanding, err := db.Purchases().NotRefunded(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("NotRefunded failed: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].ID != p2.ID {
		t.Errorf("NotRefunded = %v, want [%s]", purchaseIDs(outstanding), p2.ID)
	}
}

func purchaseIDs(list []*model.Purchase) []string {
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

func testFeedbackLifecycle(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)

	CreateTestFeedback(t, db, purchase.ID)

	got, err := db.Feedbacks().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase failed: %v", err)
	}
	if got == nil || got.Feedback != "works as advertised" {
		t.Fatalf("GetByPurchase = %+v", got)
	}

	// Put is an upsert: a second write replaces the record.
	CreateTestFeedback(t, db, purchase.ID, func(f *model.Feedback) {
		f.Feedback = "revised opinion"
	})
	got, err = db.Feedbacks().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase failed: %v", err)
	}
	if got.Feedback != "revised opinion" {
		t.Errorf("Feedback = %q, want the replacement", got.Feedback)
	}

	if err := db.Feedbacks().Delete(ctx, purchase.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = db.Feedbacks().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("feedback still present after delete: %+v", got)
	}
}

func testPublicationLifecycle(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)

	CreateTestPublication(t, db, purchase.ID)

	got, err := db.Publications().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase failed: %v", err)
	}
	if got == nil || got.Screenshot != "publication-screenshot" {
		t.Fatalf("GetByPurchase = %+v", got)
	}

	if err := db.Publications().Delete(ctx, purchase.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = db.Publications().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("publication still present after delete: %+v", got)
	}
}

func testRefundFlipsPurchase(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)

	CreateTestRefund(t, db, purchase.ID, purchase.Amount, func(r *model.Refund) {
		r.TransactionID = "txn-42"
	})

	got, err := db.Purchases().Get(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Refunded {
		t.Error("recording a refund should flip the purchase's refunded flag")
	}

	refund, err := db.Refunds().GetByPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("GetByPurchase failed: %v", err)
	}
	if refund == nil || refund.TransactionID != "txn-42" {
		t.Errorf("GetByPurchase = %+v", refund)
	}
}

func testRefundUnknownPurchase(t *testing.T, db store.Database) {
	ctx := context.Background()

	err := db.Refunds().Create(ctx, &model.Refund{
		PurchaseID: "no-such-purchase",
		Date:       dayOffset(0),
		RefundDate: dayOffset(5),
		Amount:     1.00,
	})
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("refund for an unknown purchase should be not-found, got %v", err)
	}
}

func testRefundDuplicate(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)
	CreateTestRefund(t, db, purchase.ID, purchase.Amount)

	err := db.Refunds().Create(ctx, &model.Refund{
		PurchaseID: purchase.ID,
		Date:       dayOffset(0),
		RefundDate: dayOffset(5),
		Amount:     purchase.Amount,
	})
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("second refund for the same purchase should conflict, got %v", err)
	}
}

func testReadyForRefund(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)

	ready := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Date = dayOffset(0) })
	CreateTestFeedback(t, db, ready.ID)
	CreateTestPublication(t, db, ready.ID)

	noPublication := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Date = dayOffset(1) })
	CreateTestFeedback(t, db, noPublication.ID)

	refunded := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Date = dayOffset(2) })
	CreateTestFeedback(t, db, refunded.ID)
	CreateTestPublication(t, db, refunded.ID)
	CreateTestRefund(t, db, refunded.ID, refunded.Amount)

	page, err := db.Purchases().ReadyForRefund(ctx, tester.UUID, store.PageRequest{})
	if err != nil {
		t.Fatalf("ReadyForRefund failed: %v", err)
	}
	if len(page.Results) != 1 {
		t.Fatalf("ReadyForRefund returned %d rows, want 1", len(page.Results))
	}
	row := page.Results[0]
	if row.ID != ready.ID {
		t.Errorf("ready purchase = %s, want %s", row.ID, ready.ID)
	}
	if row.Feedback != "works as advertised" || row.PublicationScreenshot != "publication-screenshot" {
		t.Errorf("feedback/publication not inlined: %+v", row)
	}

	// Deleting a precursor removes the purchase from the next result.
	if err := db.Publications().Delete(ctx, ready.ID); err != nil {
		t.Fatalf("Delete publication failed: %v", err)
	}
	page, err = db.Purchases().ReadyForRefund(ctx, tester.UUID, store.PageRequest{})
	if err != nil {
		t.Fatalf("ReadyForRefund failed: %v", err)
	}
	if len(page.Results) != 0 {
		t.Errorf("ReadyForRefund returned %d rows after precursor delete, want 0", len(page.Results))
	}
}

func testStatuses(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)

	full := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
		p.Date = dayOffset(0)
		p.ScreenshotSummary = "blue widget receipt"
	})
	CreateTestFeedback(t, db, full.ID)
	CreateTestPublication(t, db, full.ID)
	CreateTestRefund(t, db, full.ID, full.Amount, func(r *model.Refund) {
		r.TransactionID = "txn-7"
	})

	bare := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Date = dayOffset(1) })

	page, err := db.Purchases().Statuses(ctx, tester.UUID, store.StatusFilter{}, store.PageRequest{Order: store.SortAsc})
	if err != nil {
		t.Fatalf("Statuses failed: %v", err)
	}
	if len(page.Results) != 2 {
		t.Fatalf("Statuses returned %d rows, want 2", len(page.Results))
	}

	first := page.Results[0]
	if first.Purchase != full.ID {
		t.Fatalf("ascending date order: first row = %s, want %s", first.Purchase, full.ID)
	}
	if !first.HasFeedback || !first.HasPublication || !first.HasRefund || !first.Refunded {
		t.Errorf("flags for the full purchase: %+v", first)
	}
	if first.TransactionID != "txn-7" {
		t.Errorf("TransactionID = %q, want txn-7", first.TransactionID)
	}
	if first.PublicationScreenshot != "publication-screenshot" {
		t.Errorf("PublicationScreenshot = %q", first.PublicationScreenshot)
	}
	if first.ScreenshotSummary != "blue widget receipt" {
		t.Errorf("ScreenshotSummary = %q", first.ScreenshotSummary)
	}

	second := page.Results[1]
	if second.Purchase != bare.ID {
		t.Fatalf("second row = %s, want %s", second.Purchase, bare.ID)
	}
	if second.HasFeedback || second.HasPublication || second.HasRefund || second.Refunded {
		t.Errorf("flags for the bare purchase: %+v", second)
	}

	// OnlyUnrefunded hides the refunded purchase.
	page, err = db.Purchases().Statuses(ctx, tester.UUID, store.StatusFilter{OnlyUnrefunded: true}, store.PageRequest{})
	if err != nil {
		t.Fatalf("Statuses with filter failed: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Purchase != bare.ID {
		t.Errorf("OnlyUnrefunded returned %d rows, want only %s", len(page.Results), bare.ID)
	}
	if page.PageInfo.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", page.PageInfo.TotalCount)
	}
}

func testStatusesRequireTester(t *testing.T, db store.Database) {
	_, err := db.Purchases().Statuses(context.Background(), "", store.StatusFilter{}, store.PageRequest{})
	if !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("empty tester uuid should be a validation error, got %v", err)
	}
}

func testPaginationInvariant(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	for i := 0; i < 12; i++ {
		CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
			p.Date = dayOffset(i)
		})
	}

	req := store.PageRequest{Page: 1, Limit: 5}
	seen := make(map[string]bool)
	var pages int
	for {
		page, err := db.Purchases().Statuses(ctx, tester.UUID, store.StatusFilter{}, req)
		if err != nil {
			t.Fatalf("Statuses page %d failed: %v", req.Page, err)
		}
		if page.PageInfo.TotalCount != 12 {
			t.Errorf("page %d TotalCount = %d, want 12", req.Page, page.PageInfo.TotalCount)
		}
		for _, row := range page.Results {
			if seen[row.Purchase] {
				t.Errorf("purchase %s appeared on more than one page", row.Purchase)
			}
			seen[row.Purchase] = true
		}
		pages++
		if !page.PageInfo.HasNextPage {
			break
		}
		req.Page = *page.PageInfo.NextPage
	}

	if len(seen) != 12 {
		t.Errorf("concatenated pages contain %d purchases, want 12", len(seen))
	}
	if pages != 3 {
		t.Errorf("walked %d pages, want 3", pages)
	}
}

func testSortFallback(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	oldest := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
		p.Date = dayOffset(0)
		p.Amount = 99.99
	})
	newest := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
		p.Date = dayOffset(5)
		p.Amount = 1.00
	})

	// "amount" is outside the sort allow-list and falls back to the
	// default date-descending order.
	page, err := db.Purchases().Statuses(ctx, tester.UUID, store.StatusFilter{}, store.PageRequest{Sort: "amount"})
	if err != nil {
		t.Fatalf("Statuses failed: %v", err)
	}
	if len(page.Results) != 2 {
		t.Fatalf("Statuses returned %d rows, want 2", len(page.Results))
	}
	if page.Results[0].Purchase != newest.ID || page.Results[1].Purchase != oldest.ID {
		t.Errorf("fallback sort order wrong: got [%s %s]", page.Results[0].Purchase, page.Results[1].Purchase)
	}
}

func testSortByOrderNumber(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	for i := 0; i < 3; i++ {
		CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
			p.Date = dayOffset(i)
			p.Order = orderNumber(2 - i)
		})
	}

	page, err := db.Purchases().Statuses(ctx, tester.UUID, store.StatusFilter{}, store.PageRequest{Sort: store.SortByOrder, Order: store.SortAsc})
	if err != nil {
		t.Fatalf("Statuses failed: %v", err)
	}
	for i, row := range page.Results {
		if row.Order != orderNumber(i) {
			t.Errorf("row %d order = %q, want %q", i, row.Order, orderNumber(i))
		}
	}
}

func testAmountScenario(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db, func(tr *model.Tester) {
		tr.Name = "John Doe"
		tr.IDs = []string{"auth0|123"}
	})
	purchase := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) {
		p.Amount = 10.99
	})

	notRefunded, err := db.Purchases().NotRefundedAmount(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("NotRefundedAmount failed: %v", err)
	}
	if notRefunded != 10.99 {
		t.Errorf("NotRefundedAmount = %v, want 10.99", notRefunded)
	}

	CreateTestRefund(t, db, purchase.ID, 10.99)

	refunded, err := db.Purchases().RefundedAmount(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("RefundedAmount failed: %v", err)
	}
	if refunded != 10.99 {
		t.Errorf("RefundedAmount = %v, want 10.99", refunded)
	}

	notRefunded, err = db.Purchases().NotRefundedAmount(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("NotRefundedAmount failed: %v", err)
	}
	if notRefunded != 0 {
		t.Errorf("NotRefundedAmount after refund = %v, want 0", notRefunded)
	}
}

func testShortLinks(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	purchase := CreateTestPurchase(t, db, tester.UUID)

	link, err := db.ShortLinks().Create(ctx, purchase.ID, time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if link.Code == "" || link.PurchaseID != purchase.ID {
		t.Fatalf("Create returned %+v", link)
	}
	if !link.ExpiresAt.After(link.CreatedAt) {
		t.Errorf("ExpiresAt %v should be after CreatedAt %v", link.ExpiresAt, link.CreatedAt)
	}

	resolved, err := db.ShortLinks().Resolve(ctx, link.Code)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved == nil || resolved.PurchaseID != purchase.ID {
		t.Fatalf("Resolve = %+v", resolved)
	}

	// Unknown codes resolve to nil.
	resolved, err = db.ShortLinks().Resolve(ctx, "nope1234")
	if err != nil {
		t.Fatalf("Resolve of unknown code failed: %v", err)
	}
	if resolved != nil {
		t.Errorf("unknown code resolved to %+v", resolved)
	}

	// Expired codes resolve to nil and are collected.
	expired, err := db.ShortLinks().Create(ctx, purchase.ID, -time.Minute)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	resolved, err = db.ShortLinks().Resolve(ctx, expired.Code)
	if err != nil {
		t.Fatalf("Resolve of expired code failed: %v", err)
	}
	if resolved != nil {
		t.Errorf("expired code resolved to %+v", resolved)
	}

	deleted, err := db.ShortLinks().DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteExpired = %d, want 1", deleted)
	}

	// The live link survives collection.
	resolved, err = db.ShortLinks().Resolve(ctx, link.Code)
	if err != nil {
		t.Fatalf("Resolve after collection failed: %v", err)
	}
	if resolved == nil {
		t.Error("live link was collected")
	}
}

func testFinderContract(t *testing.T, db store.Database) {
	ctx := context.Background()

	tester := CreateTestTester(t, db)
	CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Amount = 5.00 })
	pricey := CreateTestPurchase(t, db, tester.UUID, func(p *model.Purchase) { p.Amount = 50.00 })

	found, err := db.Purchases().Find(ctx, store.Where("id", store.OpEq, pricey.ID))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found == nil || found.ID != pricey.ID {
		t.Fatalf("Find = %+v, want %s", found, pricey.ID)
	}

	// No match is nil, not an error.
	found, err = db.Purchases().Find(ctx, store.Where("id", store.OpEq, "absent"))
	if err != nil {
		t.Fatalf("Find with no match failed: %v", err)
	}
	if found != nil {
		t.Errorf("Find with no match = %+v, want nil", found)
	}

	list, err := db.Purchases().Filter(ctx, store.Where("testerUuid", store.OpEq, tester.UUID).And("amount", store.OpGt, 10.0))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != pricey.ID {
		t.Errorf("Filter = %v, want [%s]", purchaseIDs(list), pricey.ID)
	}

	all, err := db.Purchases().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll returned %d purchases, want 2", len(all))
	}

	// Unknown fields are validation errors on every backend.
	if _, err := db.Purchases().Filter(ctx, store.Where("secret", store.OpEq, "x")); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("unknown field should be a validation error, got %v", err)
	}
}

func testBackupRoundTrip(t *testing.T, db store.Database) {
	backuper, ok := db.(store.Backuper)
	if !ok {
		t.Skip("backend has no backup capability")
	}
	ctx := context.Background()

	tester := CreateTestTester(t, db, func(tr *model.Tester) {
		tr.Name = "John Doe"
		tr.IDs = []string{"auth0|123"}
	})
	purchase := CreateTestPurchase(t, db, tester.UUID)
	CreateTestFeedback(t, db, purchase.ID)
	CreateTestPublication(t, db, purchase.ID)
	CreateTestRefund(t, db, purchase.ID, purchase.Amount)

	data, err := backuper.BackupJSON(ctx)
	if err != nil {
		t.Fatalf("BackupJSON failed: %v", err)
	}

	// The document carries all six collections.
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	for _, key := range []string{"testers", "ids", "purchases", "feedbacks", "publications", "refunds"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("backup missing collection %q", key)
		}
	}

	// A document missing a collection is rejected without mutating.
	if err := backuper.RestoreJSON(ctx, []byte(`{"testers": []}`)); err == nil {
		t.Fatal("restore of a truncated document should fail")
	}
	got, err := db.Testers().Get(ctx, tester.UUID)
	if err != nil || got == nil {
		t.Fatalf("failed restore mutated the database: %v, %v", got, err)
	}

	// Restoring the backup reproduces an equivalent graph.
	if err := backuper.RestoreJSON(ctx, data); err != nil {
		t.Fatalf("RestoreJSON failed: %v", err)
	}

	restored, err := db.Testers().Get(ctx, tester.UUID)
	if err != nil {
		t.Fatalf("Get after restore failed: %v", err)
	}
	if restored == nil || restored.Name != "John Doe" || !equalStringSets(restored.IDs, []string{"auth0|123"}) {
		t.Fatalf("restored tester = %+v", restored)
	}

	p, err := db.Purchases().Get(ctx, purchase.ID)
	if err != nil || p == nil {
		t.Fatalf("restored purchase missing: %v, %v", p, err)
	}
	if !p.Refunded {
		t.Error("restored purchase lost its refunded flag")
	}
	refund, err := db.Refunds().GetByPurchase(ctx, purchase.ID)
	if err != nil || refund == nil {
		t.Fatalf("restored refund missing: %v, %v", refund, err)
	}
}

func testPing(t *testing.T, db store.Database) {
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
