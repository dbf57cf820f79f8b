// Package storetest holds the backend conformance suite. Every storage
// backend runs the same black-box tests through Run, so the three
// implementations cannot drift apart on contract semantics.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

// OpenFunc returns a fresh, empty database for a single subtest.
// Implementations register their own cleanup via t.Cleanup.
type OpenFunc func(t *testing.T) store.Database

// CreateTestTester creates a tester with default values.
// Fields can be overridden by passing a function that modifies the tester.
func CreateTestTester(t *testing.T, db store.Database, overrides ...func(*model.Tester)) *model.Tester {
	t.Helper()

	tester := &model.Tester{
		Name: "Test Tester",
		IDs:  []string{"auth0|" + idgen.NewID()},
	}
	for _, override := range overrides {
		override(tester)
	}

	created, err := db.Testers().Put(context.Background(), tester)
	if err != nil {
		t.Fatalf("Failed to create test tester: %v", err)
	}
	return created
}

// CreateTestPurchase creates a purchase for the tester with default values.
func CreateTestPurchase(t *testing.T, db store.Database, testerUUID string, overrides ...func(*model.Purchase)) *model.Purchase {
	t.Helper()

	purchase := &model.Purchase{
		TesterUUID:  testerUUID,
		Date:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Order:       "111-" + idgen.NewID(),
		Description: "test purchase",
		Amount:      10.99,
		Screenshot:  "screenshot-data",
	}
	for _, override := range overrides {
		override(purchase)
	}

	created, err := db.Purchases().Put(context.Background(), purchase)
	if err != nil {
		t.Fatalf("Failed to create test purchase: %v", err)
	}
	return created
}

// CreateTestFeedback creates a feedback record for the purchase.
func CreateTestFeedback(t *testing.T, db store.Database, purchaseID string, overrides ...func(*model.Feedback)) *model.Feedback {
	t.Helper()

	feedback := &model.Feedback{
		PurchaseID: purchaseID,
		Date:       time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
		Feedback:   "works as advertised",
	}
	for _, override := range overrides {
		override(feedback)
	}

	if err := db.Feedbacks().Put(context.Background(), feedback); err != nil {
		t.Fatalf("Failed to create test feedback: %v", err)
	}
	return feedback
}

// CreateTestPublication creates a publication record for the purchase.
func CreateTestPublication(t *testing.T, db store.Database, purchaseID string, overrides ...func(*model.Publication)) *model.Publication {
	t.Helper()

	publication := &model.Publication{
		PurchaseID: purchaseID,
		Date:       time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
		Screenshot: "publication-screenshot",
	}
	for _, override := range overrides {
		override(publication)
	}

	if err := db.Publications().Put(context.Background(), publication); err != nil {
		t.Fatalf("Failed to create test publication: %v", err)
	}
	return publication
}

// CreateTestRefund records a refund for the purchase.
func CreateTestRefund(t *testing.T, db store.Database, purchaseID string, amount float64, overrides ...func(*model.Refund)) *model.Refund {
	t.Helper()

	refund := &model.Refund{
		PurchaseID: purchaseID,
		Date:       time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		RefundDate: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Amount:     amount,
	}
	for _, override := range overrides {
		override(refund)
	}

	if err := db.Refunds().Create(context.Background(), refund); err != nil {
		t.Fatalf("Failed to create test refund: %v", err)
	}
	return refund
}

// dayOffset builds deterministic distinct dates for sorting tests.
func dayOffset(days int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		set[s]--
		if set[s] < 0 {
			return false
		}
	}
	return true
}

func orderNumber(i int) string {
	return fmt.Sprintf("ORD-%03d", i)
}
