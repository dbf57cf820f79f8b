package model

import "time"

// PurchaseStatus is the derived per-purchase projection joining a purchase
// with existence flags for its feedback, publication and refund records.
// It is computed on demand and never stored.
type PurchaseStatus struct {
	Purchase              string    `json:"purchase" db:"purchase"`
	TesterUUID            string    `json:"testerUuid" db:"tester_uuid"`
	Date                  time.Time `json:"date" db:"date"`
	Order                 string    `json:"order" db:"order_number"`
	Description           string    `json:"description" db:"description"`
	Amount                float64   `json:"amount" db:"amount"`
	Refunded              bool      `json:"refunded" db:"refunded"`
	HasFeedback           bool      `json:"hasFeedback" db:"has_feedback"`
	HasPublication        bool      `json:"hasPublication" db:"has_publication"`
	HasRefund             bool      `json:"hasRefund" db:"has_refund"`
	PurchaseScreenshot    string    `json:"purchaseScreenshot" db:"purchase_screenshot"`
	PublicationScreenshot string    `json:"publicationScreenshot" db:"publication_screenshot"`
	ScreenshotSummary     string    `json:"screenshotSummary,omitempty" db:"screenshot_summary"`
	TransactionID         string    `json:"transactionId,omitempty" db:"transaction_id"`
}

// ReadyForRefund reports whether the row satisfies the derived predicate:
// unrefunded with both feedback and publication present.
func (s *PurchaseStatus) ReadyForRefund() bool {
	return !s.Refunded && s.HasFeedback && s.HasPublication
}

// PurchaseWithFeedback is a purchase enriched with its feedback text/date
// and publication screenshot/date inlined. Returned by the ready-for-refund
// query, where both records are guaranteed to exist.
type PurchaseWithFeedback struct {
	ID                    string    `json:"id" db:"id"`
	TesterUUID            string    `json:"testerUuid" db:"tester_uuid"`
	Date                  time.Time `json:"date" db:"date"`
	Order                 string    `json:"order" db:"order_number"`
	Description           string    `json:"description" db:"description"`
	Amount                float64   `json:"amount" db:"amount"`
	Screenshot            string    `json:"screenshot" db:"screenshot"`
	ScreenshotSummary     string    `json:"screenshotSummary,omitempty" db:"screenshot_summary"`
	Feedback              string    `json:"feedback" db:"feedback"`
	FeedbackDate          time.Time `json:"feedbackDate" db:"feedback_date"`
	PublicationScreenshot string    `json:"publicationScreenshot" db:"publication_screenshot"`
	PublicationDate       time.Time `json:"publicationDate" db:"publication_date"`
}

// TesterStats aggregates refunded and outstanding purchase amounts for a
// single tester.
type TesterStats struct {
	RefundedAmount    float64 `json:"refundedAmount"`
	NotRefundedAmount float64 `json:"notRefundedAmount"`
}
