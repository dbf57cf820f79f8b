package store

import (
	"testing"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

func TestQueryValidate(t *testing.T) {
	q := Where("testerUuid", OpEq, "u1").And("amount", OpGte, 5.0)
	if err := q.Validate(PurchaseFields); err != nil {
		t.Fatalf("valid query rejected: %v", err)
	}

	q = Where("secret", OpEq, "x")
	err := q.Validate(PurchaseFields)
	if err == nil {
		t.Fatal("unknown field should be rejected")
	}
	if !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	q = Where("amount", Op("like"), 5.0)
	if err := q.Validate(PurchaseFields); err == nil {
		t.Fatal("unknown operator should be rejected")
	}
}

func TestQueryMatchString(t *testing.T) {
	p := &model.Purchase{ID: "p1", TesterUUID: "u1", Description: "blue widget"}

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"eq match", Where("testerUuid", OpEq, "u1"), true},
		{"eq miss", Where("testerUuid", OpEq, "u2"), false},
		{"ne", Where("testerUuid", OpNe, "u2"), true},
		{"contains match", Where("description", OpContains, "widget"), true},
		{"contains miss", Where("description", OpContains, "red"), false},
		{"conjunction", Where("testerUuid", OpEq, "u1").And("id", OpEq, "p1"), true},
		{"conjunction miss", Where("testerUuid", OpEq, "u1").And("id", OpEq, "p2"), false},
		{"empty matches all", Query{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.q.Match(p)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryMatchNumeric(t *testing.T) {
	p := &model.Purchase{ID: "p1", Amount: 10.99}

	for _, tt := range []struct {
		op   Op
		v    float64
		want bool
	}{
		{OpGt, 10.0, true},
		{OpGt, 10.99, false},
		{OpGte, 10.99, true},
		{OpLt, 11.0, true},
		{OpLte, 10.99, true},
		{OpEq, 10.99, true},
	} {
		got, err := Where("amount", tt.op, tt.v).Match(p)
		if err != nil {
			t.Fatalf("Match(%s %v) failed: %v", tt.op, tt.v, err)
		}
		if got != tt.want {
			t.Errorf("Match(amount %s %v) = %v, want %v", tt.op, tt.v, got, tt.want)
		}
	}
}

func TestQueryMatchBool(t *testing.T) {
	p := &model.Purchase{ID: "p1", Refunded: true}

	got, err := Where("refunded", OpEq, true).Match(p)
	if err != nil || !got {
		t.Errorf("Match(refunded eq true) = %v, %v", got, err)
	}

	if _, err := Where("refunded", OpGt, true).Match(p); err == nil {
		t.Error("ordered operator on a boolean field should fail")
	}
}

func TestQueryMatchTime(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Purchase{ID: "p1", Date: date}

	got, err := Where("date", OpGte, date.Add(-time.Hour)).Match(p)
	if err != nil || !got {
		t.Errorf("Match(date gte) = %v, %v", got, err)
	}

	// RFC 3339 strings are accepted as time values.
	got, err = Where("date", OpEq, "2024-03-01T00:00:00Z").Match(p)
	if err != nil || !got {
		t.Errorf("Match(date eq string) = %v, %v", got, err)
	}
}

func TestQueryMatchUnknownField(t *testing.T) {
	p := &model.Purchase{ID: "p1"}
	if _, err := Where("nope", OpEq, "x").Match(p); err == nil {
		t.Fatal("unknown field should fail the match")
	}
}
