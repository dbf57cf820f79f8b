package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/internal/store/storetest"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// openTestDB opens a fresh SQLite-backed store on a temp file.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(consts.BackendSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Database {
		return openTestDB(t)
	})
}

func TestUnsupportedOperations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Reset(ctx)
	if !errors.HasCode(err, errors.ErrCodeUnsupported) {
		t.Errorf("Reset should be unsupported, got %v", err)
	}

	_, err = db.RawData(ctx)
	if !errors.HasCode(err, errors.ErrCodeUnsupported) {
		t.Errorf("RawData should be unsupported, got %v", err)
	}
}

func TestMigrationsFreshDatabase(t *testing.T) {
	db := openTestDB(t)

	report := db.MigrationReport()
	require.Len(t, report, len(migrations)+1)
	assert.Equal(t, "migrated to version 1: initial schema", report[0])
	assert.Equal(t, "migrated to version 2: add screenshot_summary to purchases", report[1])
	assert.Equal(t, "migrated to version 3: add transaction_id to refunds", report[2])
	assert.Equal(t, "migrated to version 4: add short_links", report[3])
	assert.Equal(t, "schema up to date at version 4", report[4])

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, latestVersion, version.Version)
	assert.Equal(t, "add short_links", version.Description)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(consts.BackendSQLite, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an up-to-date database applies nothing.
	db, err = Open(consts.BackendSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	report := db.MigrationReport()
	require.Len(t, report, 1)
	assert.Equal(t, "schema up to date at version 4", report[0])
}

func TestTables(t *testing.T) {
	db := openTestDB(t)

	tables, err := db.Tables(context.Background())
	require.NoError(t, err)

	for _, want := range []string{
		"testers", "id_mappings", "purchases", "feedbacks",
		"publications", "refunds", "short_links", "schema_version",
	} {
		assert.Contains(t, tables, want)
	}
}

func TestSchemaIntrospectorCapability(t *testing.T) {
	db := openTestDB(t)

	// The capability is discovered by interface satisfaction.
	var iface store.Database = db
	_, ok := iface.(store.SchemaIntrospector)
	assert.True(t, ok, "relational backend should expose schema introspection")
	_, ok = iface.(store.Backuper)
	assert.True(t, ok, "relational backend should expose backup")
}

func TestUnknownBackend(t *testing.T) {
	_, err := Open("document", "ignored")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestShortLinkCreateReturnsStoredRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tester := storetest.CreateTestTester(t, db)
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)

	link, err := db.ShortLinks().Create(ctx, purchase.ID, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, link)

	// The returned link must agree with the row Resolve honors; on a code
	// collision the stored timestamps win over freshly computed ones.
	resolved, err := db.ShortLinks().Resolve(ctx, link.Code)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, link.PurchaseID, resolved.PurchaseID)
	assert.True(t, link.ExpiresAt.Equal(resolved.ExpiresAt),
		"Create returned expiry %v but the stored row has %v", link.ExpiresAt, resolved.ExpiresAt)

	// A surviving row keeps its original expiry even when a later insert
	// for the same code is attempted.
	later := time.Now().Add(48 * time.Hour)
	_, err = db.db.ExecContext(ctx, db.rebind(
		`INSERT INTO short_links (code, purchase_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT (code) DO NOTHING`),
		link.Code, purchase.ID, time.Now(), later)
	require.NoError(t, err)

	resolved, err = db.ShortLinks().Resolve(ctx, link.Code)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.True(t, resolved.ExpiresAt.Equal(link.ExpiresAt),
		"conflicting insert must not move the stored expiry")
}

func TestBackupFileRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tester := storetest.CreateTestTester(t, db)
	purchase := storetest.CreateTestPurchase(t, db, tester.UUID)
	storetest.CreateTestFeedback(t, db, purchase.ID)

	data, err := db.BackupJSON(ctx)
	require.NoError(t, err)

	// Restore into a brand-new database file.
	otherPath := filepath.Join(t.TempDir(), "other.db")
	other, err := Open(consts.BackendSQLite, otherPath)
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, other.RestoreJSON(ctx, data))

	restored, err := other.Testers().Get(ctx, tester.UUID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, tester.Name, restored.Name)

	p, err := other.Purchases().Get(ctx, purchase.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, purchase.Amount, p.Amount)

	f, err := other.Feedbacks().GetByPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	require.NotNil(t, f)
}
