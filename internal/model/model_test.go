package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTesterClone(t *testing.T) {
	orig := &Tester{UUID: "u1", Name: "John Doe", IDs: []string{"auth0|123"}}
	clone := orig.Clone()

	clone.Name = "changed"
	clone.IDs[0] = "changed"

	if orig.Name != "John Doe" {
		t.Error("Clone should not share the name field")
	}
	if orig.IDs[0] != "auth0|123" {
		t.Error("Clone should not share the ids slice")
	}
}

func TestPurchaseUpdateApply(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &Purchase{
		ID:          "p1",
		Date:        date,
		Order:       "111-222",
		Description: "widget",
		Amount:      10.99,
	}

	newAmount := 12.50
	refunded := true
	update := &PurchaseUpdate{Amount: &newAmount, Refunded: &refunded}
	update.Apply(p)

	if p.Amount != 12.50 {
		t.Errorf("Amount = %v, want 12.50", p.Amount)
	}
	if !p.Refunded {
		t.Error("Refunded should be true after update")
	}
	if p.Order != "111-222" {
		t.Error("Order should be untouched by a nil field")
	}
	if !p.Date.Equal(date) {
		t.Error("Date should be untouched by a nil field")
	}
}

func TestPurchaseUpdateIsEmpty(t *testing.T) {
	if !(&PurchaseUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}
	desc := "x"
	if (&PurchaseUpdate{Description: &desc}).IsEmpty() {
		t.Error("update with description should not be empty")
	}
}

func TestShortLinkExpired(t *testing.T) {
	now := time.Now()
	link := &ShortLink{
		Code:      "abc12345",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	if link.Expired(now) {
		t.Error("link should not be expired before its deadline")
	}
	if !link.Expired(now.Add(2 * time.Hour)) {
		t.Error("link should be expired after its deadline")
	}
	if !link.Expired(link.ExpiresAt) {
		t.Error("link should be expired exactly at its deadline")
	}
}

func TestPurchaseStatusReadyForRefund(t *testing.T) {
	tests := []struct {
		name   string
		status PurchaseStatus
		want   bool
	}{
		{"both present, unrefunded", PurchaseStatus{HasFeedback: true, HasPublication: true}, true},
		{"already refunded", PurchaseStatus{Refunded: true, HasFeedback: true, HasPublication: true}, false},
		{"missing feedback", PurchaseStatus{HasPublication: true}, false},
		{"missing publication", PurchaseStatus{HasFeedback: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.ReadyForRefund(); got != tt.want {
				t.Errorf("ReadyForRefund() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPurchaseJSONShape(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Purchase{
		ID:         "p1",
		TesterUUID: "u1",
		Date:       date,
		Order:      "111-222",
		Amount:     10.99,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	for _, key := range []string{`"id"`, `"testerUuid"`, `"date"`, `"order"`, `"amount"`, `"refunded"`} {
		if !strings.Contains(s, key) {
			t.Errorf("JSON missing key %s: %s", key, s)
		}
	}
	if !strings.Contains(s, "2024-03-01T12:00:00Z") {
		t.Errorf("date should marshal as RFC 3339: %s", s)
	}
	if strings.Contains(s, "screenshotSummary") {
		t.Errorf("empty screenshotSummary should be omitted: %s", s)
	}
}

func TestParseBackup(t *testing.T) {
	doc := `{
		"testers": [{"uuid": "u1", "name": "John Doe", "ids": ["auth0|123"]}],
		"ids": [{"id": "auth0|123", "testerUuid": "u1"}],
		"purchases": [],
		"feedbacks": [],
		"publications": [],
		"refunds": []
	}`

	backup, err := ParseBackup([]byte(doc))
	if err != nil {
		t.Fatalf("ParseBackup failed: %v", err)
	}
	if len(backup.Testers) != 1 || backup.Testers[0].UUID != "u1" {
		t.Errorf("unexpected testers: %+v", backup.Testers)
	}
	if len(backup.IDs) != 1 || backup.IDs[0].TesterUUID != "u1" {
		t.Errorf("unexpected ids: %+v", backup.IDs)
	}
}

func TestParseBackupMissingCollection(t *testing.T) {
	doc := `{
		"testers": [],
		"ids": [],
		"purchases": [],
		"feedbacks": [],
		"publications": []
	}`

	_, err := ParseBackup([]byte(doc))
	if err == nil {
		t.Fatal("ParseBackup should fail when a collection is missing")
	}
	if !strings.Contains(err.Error(), "refunds") {
		t.Errorf("error should name the missing collection: %v", err)
	}
}

func TestParseBackupInvalidJSON(t *testing.T) {
	if _, err := ParseBackup([]byte("{not json")); err == nil {
		t.Fatal("ParseBackup should fail on invalid JSON")
	}
}

func TestBackupCounts(t *testing.T) {
	b := &Backup{
		Testers:   []Tester{{UUID: "u1"}},
		Purchases: []Purchase{{ID: "p1"}, {ID: "p2"}},
	}
	counts := b.Counts()
	if counts["testers"] != 1 || counts["purchases"] != 2 || counts["refunds"] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestAllModels(t *testing.T) {
	models := AllModels()
	if len(models) != 7 {
		t.Errorf("AllModels() returned %d models, want 7", len(models))
	}
}
