// Package store defines the data access contract for the application.
// It abstracts persistence behind one interface per entity family so the
// business logic stays decoupled from the storage backend in use. Three
// implementations exist: memstore (in-process object graph), sqlstore
// (sqlx over SQLite/PostgreSQL) and gormstore (GORM document-style store).
package store

import (
	"context"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
)

// Database aggregates all entity stores.
// It provides a single point of access for all persistence operations.
// Lookups that find nothing return (nil, nil); errors are reserved for
// storage failures and contract violations.
type Database interface {
	Testers() TesterStore
	IDMappings() IDMappingStore
	Purchases() PurchaseStore
	Feedbacks() FeedbackStore
	Publications() PublicationStore
	Refunds() RefundStore
	ShortLinks() ShortLinkStore

	// Reset wipes all data. Only the in-process backend supports it;
	// the others return a typed unsupported-operation error.
	Reset(ctx context.Context) error

	// RawData dumps the full object graph. In-process backend only.
	RawData(ctx context.Context) (*model.Backup, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error

	// Backend returns the backend name the instance was opened with.
	Backend() string
}

// Finder is the query surface shared by every entity store.
type Finder[T any] interface {
	// Find returns the first entity matching the query, or nil.
	Find(ctx context.Context, q Query) (*T, error)

	// Filter returns all entities matching the query.
	Filter(ctx context.Context, q Query) ([]*T, error)

	// GetAll returns every entity in the collection.
	GetAll(ctx context.Context) ([]*T, error)
}

// StatusFilter restricts the purchase-status aggregation.
type StatusFilter struct {
	// OnlyUnrefunded limits the result to purchases not yet refunded.
	OnlyUnrefunded bool
}

// TesterStore manages testers and keeps their external ids in lock-step
// with the id-mapping collection.
type TesterStore interface {
	Finder[model.Tester]

	// Put creates the tester (generating a uuid if absent) or updates its
	// name, reconciling the id-mapping collection against the incoming ids:
	// added mappings are inserted first, removed ones deleted after, so a
	// crash mid-operation never loses a mapping. An incoming id already
	// mapped to a different tester is a conflict error.
	Put(ctx context.Context, tester *model.Tester) (*model.Tester, error)

	// Get returns the tester with its ids populated, or nil.
	Get(ctx context.Context, uuid string) (*model.Tester, error)

	// AddIDs attaches additional external ids to an existing tester.
	AddIDs(ctx context.Context, uuid string, ids []string) (*model.Tester, error)
}

// IDMappingStore manages external identity id → tester uuid associations.
type IDMappingStore interface {
	Finder[model.IDMapping]

	// Put inserts a mapping. A duplicate id is a conflict error,
	// never a silent overwrite.
	Put(ctx context.Context, mapping *model.IDMapping) error

	// GetTesterUUID resolves an external id to a tester uuid, "" when absent.
	GetTesterUUID(ctx context.Context, id string) (string, error)

	// Delete removes a mapping. Removing an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// ExistsMultiple reports per-id existence, positionally.
	ExistsMultiple(ctx context.Context, ids []string) ([]bool, error)
}

// PurchaseStore manages purchases and the derived status aggregation.
type PurchaseStore interface {
	Finder[model.Purchase]

	// Put creates the purchase, generating an id if absent.
	Put(ctx context.Context, purchase *model.Purchase) (*model.Purchase, error)

	// Get returns the purchase, or nil.
	Get(ctx context.Context, id string) (*model.Purchase, error)

	// Update applies a partial update; nil fields are left untouched.
	Update(ctx context.Context, id string, update *model.PurchaseUpdate) (*model.Purchase, error)

	// Delete removes a purchase, scoped to its owning tester.
	Delete(ctx context.Context, id, testerUUID string) error

	// ForTester returns all purchases owned by the tester.
	ForTester(ctx context.Context, testerUUID string) ([]*model.Purchase, error)

	// Refunded returns the tester's refunded purchases.
	Refunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error)

	// NotRefunded returns the tester's outstanding purchases.
	NotRefunded(ctx context.Context, testerUUID string) ([]*model.Purchase, error)

	// Statuses returns a page of derived status rows for the tester's
	// purchases. testerUUID must not be empty.
	Statuses(ctx context.Context, testerUUID string, filter StatusFilter, page PageRequest) (*Page[model.PurchaseStatus], error)

	// ReadyForRefund returns a page of unrefunded purchases that have both
	// a feedback and a publication, with both records inlined.
	ReadyForRefund(ctx context.Context, testerUUID string, page PageRequest) (*Page[model.PurchaseWithFeedback], error)

	// RefundedAmount sums the amounts of the tester's refunded purchases.
	RefundedAmount(ctx context.Context, testerUUID string) (float64, error)

	// NotRefundedAmount sums the amounts of the tester's outstanding purchases.
	NotRefundedAmount(ctx context.Context, testerUUID string) (float64, error)
}

// FeedbackStore manages per-purchase feedback records.
type FeedbackStore interface {
	Finder[model.Feedback]

	Put(ctx context.Context, feedback *model.Feedback) error
	GetByPurchase(ctx context.Context, purchaseID string) (*model.Feedback, error)
	Delete(ctx context.Context, purchaseID string) error
}

// PublicationStore manages per-purchase publication records.
type PublicationStore interface {
	Finder[model.Publication]

	Put(ctx context.Context, publication *model.Publication) error
	GetByPurchase(ctx context.Context, purchaseID string) (*model.Publication, error)
	Delete(ctx context.Context, purchaseID string) error
}

// RefundStore manages refund records.
type RefundStore interface {
	Finder[model.Refund]

	// Create inserts the refund and flips the purchase's refunded flag.
	// The refund row is written before the flip, and backends with
	// transactions make the pair atomic. An unknown purchase is a
	// not-found error.
	Create(ctx context.Context, refund *model.Refund) error

	// GetByPurchase returns the refund for a purchase, or nil.
	GetByPurchase(ctx context.Context, purchaseID string) (*model.Refund, error)
}

// ShortLinkStore manages time-limited public codes for purchases.
type ShortLinkStore interface {
	// Create mints a new random code for the purchase with the given TTL.
	Create(ctx context.Context, purchaseID string, ttl time.Duration) (*model.ShortLink, error)

	// Resolve returns the link for an unexpired code; nil for unknown
	// or expired codes.
	Resolve(ctx context.Context, code string) (*model.ShortLink, error)

	// DeleteExpired removes expired codes and returns how many.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Backuper is the optional backup capability. Callers discover it by
// interface satisfaction, never by concrete type.
type Backuper interface {
	// BackupJSON serializes the full database into one JSON document.
	BackupJSON(ctx context.Context) ([]byte, error)

	// RestoreJSON validates the document and destructively replaces all
	// data with its contents. Validation failures mutate nothing.
	RestoreJSON(ctx context.Context, data []byte) error
}

// SchemaIntrospector is the optional schema debug capability of the
// relational backend.
type SchemaIntrospector interface {
	// Tables lists the table names present in the database.
	Tables(ctx context.Context) ([]string, error)

	// SchemaVersion returns the current schema version record.
	SchemaVersion(ctx context.Context) (*model.SchemaVersion, error)

	// MigrationReport returns the human-readable report of the
	// migration run performed at open time.
	MigrationReport() []string
}
