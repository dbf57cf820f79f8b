// Package model defines the data models for the application.
// Entities carry json tags for the API/backup shapes, db tags for the
// relational backend (sqlx) and gorm tags for the document-style backend.
package model

import (
	"time"
)

// Tester is a participant who makes tracked purchases and submits feedback.
// IDs holds the external OAuth identifiers owned by this tester; it is
// derived from the id_mappings collection and never stored on the tester
// row itself. Order is preserved for API compatibility.
type Tester struct {
	UUID string   `json:"uuid" db:"uuid" gorm:"primaryKey;column:uuid"`
	Name string   `json:"name" db:"name" gorm:"column:name"`
	IDs  []string `json:"ids" db:"-" gorm:"-"`
}

// TableName overrides the GORM table name
func (Tester) TableName() string {
	return "testers"
}

// Clone returns a deep copy of the tester.
func (t *Tester) Clone() *Tester {
	c := *t
	c.IDs = append([]string(nil), t.IDs...)
	return &c
}

// IDMapping associates an external identity provider subject id with a
// tester's internal uuid. The id is globally unique across the database.
type IDMapping struct {
	ID         string `json:"id" db:"id" gorm:"primaryKey;column:id"`
	TesterUUID string `json:"testerUuid" db:"tester_uuid" gorm:"column:tester_uuid;index"`
}

// TableName overrides the GORM table name
func (IDMapping) TableName() string {
	return "id_mappings"
}

// Clone returns a copy of the mapping.
func (m *IDMapping) Clone() *IDMapping {
	c := *m
	return &c
}

// Purchase is a tracked transaction eligible for feedback, publication and
// eventual refund. Order is the merchant order number (column order_number,
// since "order" is reserved in SQL).
type Purchase struct {
	ID                string    `json:"id" db:"id" gorm:"primaryKey;column:id"`
	TesterUUID        string    `json:"testerUuid" db:"tester_uuid" gorm:"column:tester_uuid;index"`
	Date              time.Time `json:"date" db:"date" gorm:"column:date"`
	Order             string    `json:"order" db:"order_number" gorm:"column:order_number"`
	Description       string    `json:"description" db:"description" gorm:"column:description"`
	Amount            float64   `json:"amount" db:"amount" gorm:"column:amount"`
	Screenshot        string    `json:"screenshot" db:"screenshot" gorm:"column:screenshot"`
	ScreenshotSummary string    `json:"screenshotSummary,omitempty" db:"screenshot_summary" gorm:"column:screenshot_summary"`
	Refunded          bool      `json:"refunded" db:"refunded" gorm:"column:refunded"`
}

// TableName overrides the GORM table name
func (Purchase) TableName() string {
	return "purchases"
}

// Clone returns a copy of the purchase.
func (p *Purchase) Clone() *Purchase {
	c := *p
	return &c
}

// PurchaseUpdate carries a partial update for a purchase.
// Nil fields are left untouched.
type PurchaseUpdate struct {
	Date              *time.Time `json:"date,omitempty"`
	Order             *string    `json:"order,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Amount            *float64   `json:"amount,omitempty"`
	Screenshot        *string    `json:"screenshot,omitempty"`
	ScreenshotSummary *string    `json:"screenshotSummary,omitempty"`
	Refunded          *bool      `json:"refunded,omitempty"`
}

// IsEmpty reports whether the update carries no changes.
func (u *PurchaseUpdate) IsEmpty() bool {
	return u.Date == nil && u.Order == nil && u.Description == nil &&
		u.Amount == nil && u.Screenshot == nil && u.ScreenshotSummary == nil &&
		u.Refunded == nil
}

// Apply copies the non-nil fields onto the purchase.
func (u *PurchaseUpdate) Apply(p *Purchase) {
	if u.Date != nil {
		p.Date = *u.Date
	}
	if u.Order != nil {
		p.Order = *u.Order
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.Screenshot != nil {
		p.Screenshot = *u.Screenshot
	}
	if u.ScreenshotSummary != nil {
		p.ScreenshotSummary = *u.ScreenshotSummary
	}
	if u.Refunded != nil {
		p.Refunded = *u.Refunded
	}
}

// Feedback is the tester's written feedback for a purchase.
// Keyed by the purchase id; one feedback per purchase.
type Feedback struct {
	PurchaseID string    `json:"purchase" db:"purchase_id" gorm:"primaryKey;column:purchase_id"`
	Date       time.Time `json:"date" db:"date" gorm:"column:date"`
	Feedback   string    `json:"feedback" db:"feedback" gorm:"column:feedback"`
}

// TableName overrides the GORM table name
func (Feedback) TableName() string {
	return "feedbacks"
}

// Clone returns a copy of the feedback.
func (f *Feedback) Clone() *Feedback {
	c := *f
	return &c
}

// Publication records that the tester published their feedback, with a
// screenshot as evidence. Keyed by the purchase id; one per purchase.
type Publication struct {
	PurchaseID string    `json:"purchase" db:"purchase_id" gorm:"primaryKey;column:purchase_id"`
	Date       time.Time `json:"date" db:"date" gorm:"column:date"`
	Screenshot string    `json:"screenshot" db:"screenshot" gorm:"column:screenshot"`
}

// TableName overrides the GORM table name
func (Publication) TableName() string {
	return "publications"
}

// Clone returns a copy of the publication.
func (p *Publication) Clone() *Publication {
	c := *p
	return &c
}

// Refund records the merchant refund for a purchase. Recording a refund
// also flips the purchase's refunded flag; the two writes are atomic
// where the backend supports transactions.
type Refund struct {
	PurchaseID    string    `json:"purchase" db:"purchase_id" gorm:"primaryKey;column:purchase_id"`
	Date          time.Time `json:"date" db:"date" gorm:"column:date"`
	RefundDate    time.Time `json:"refundDate" db:"refund_date" gorm:"column:refund_date"`
	Amount        float64   `json:"amount" db:"amount" gorm:"column:amount"`
	TransactionID string    `json:"transactionId,omitempty" db:"transaction_id" gorm:"column:transaction_id"`
}

// TableName overrides the GORM table name
func (Refund) TableName() string {
	return "refunds"
}

// Clone returns a copy of the refund.
func (r *Refund) Clone() *Refund {
	c := *r
	return &c
}

// ShortLink maps a random public code to a purchase with a TTL.
// Expired codes must not resolve and are eligible for garbage collection.
type ShortLink struct {
	Code       string    `json:"code" db:"code" gorm:"primaryKey;column:code"`
	PurchaseID string    `json:"purchase" db:"purchase_id" gorm:"column:purchase_id;index"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at" gorm:"column:created_at"`
	ExpiresAt  time.Time `json:"expiresAt" db:"expires_at" gorm:"column:expires_at"`
}

// TableName overrides the GORM table name
func (ShortLink) TableName() string {
	return "short_links"
}

// Expired reports whether the link is expired at the given instant.
func (s *ShortLink) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a copy of the short link.
func (s *ShortLink) Clone() *ShortLink {
	c := *s
	return &c
}

// AllModels returns all models for GORM auto-migration.
func AllModels() []any {
	return []any{
		&Tester{},
		&IDMapping{},
		&Purchase{},
		&Feedback{},
		&Publication{},
		&Refund{},
		&ShortLink{},
	}
}
