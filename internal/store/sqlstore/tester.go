package sqlstore

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type testerStore struct {
	s *DB
}

// Put upserts the tester and reconciles the id_mappings table against the
// incoming id list inside one transaction. Added mappings are inserted
// before removed ones are deleted.
func (ts *testerStore) Put(ctx context.Context, tester *model.Tester) (*model.Tester, error) {
	t := tester.Clone()
	if t.UUID == "" {
		t.UUID = idgen.NewUUID()
	}

	tx, err := ts.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := checkIDOwnership(ctx, tx, t.UUID, t.IDs); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO testers (uuid, name) VALUES (?, ?)
		 ON CONFLICT (uuid) DO UPDATE SET name = excluded.name`),
		t.UUID, t.Name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert tester", err)
	}

	var existing []string
	err = tx.SelectContext(ctx, &existing,
		tx.Rebind("SELECT id FROM id_mappings WHERE tester_uuid = ?"), t.UUID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load id mappings", err)
	}

	incoming := make(map[string]bool, len(t.IDs))
	for _, id := range t.IDs {
		incoming[id] = true
	}
	current := make(map[string]bool, len(existing))
	for _, id := range existing {
		current[id] = true
	}

	// Insert added mappings first, then drop removed ones.
	for id := range incoming {
		if current[id] {
			continue
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO id_mappings (id, tester_uuid) VALUES (?, ?)"), id, t.UUID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
		}
	}
	for _, id := range existing {
		if incoming[id] {
			continue
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM id_mappings WHERE id = ?"), id)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to delete id mapping", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to commit tester", err)
	}

	sort.Strings(t.IDs)
	return t, nil
}

// checkIDOwnership rejects ids already mapped to a different tester.
func checkIDOwnership(ctx context.Context, tx *sqlx.Tx, uuid string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("SELECT id, tester_uuid FROM id_mappings WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to build ownership query", err)
	}
	var owned []model.IDMapping
	if err := tx.SelectContext(ctx, &owned, tx.Rebind(query), args...); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check id ownership", err)
	}
	for _, m := range owned {
		if m.TesterUUID != uuid {
			return errors.ErrConflict("external id " + m.ID + " belongs to another tester")
		}
	}
	return nil
}

func (ts *testerStore) Get(ctx context.Context, uuid string) (*model.Tester, error) {
	var t model.Tester
	err := ts.s.db.GetContext(ctx, &t,
		ts.s.rebind("SELECT uuid, name FROM testers WHERE uuid = ?"), uuid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to get tester", err)
	}
	if err := ts.loadIDs(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (ts *testerStore) AddIDs(ctx context.Context, uuid string, ids []string) (*model.Tester, error) {
	tx, err := ts.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count,
		tx.Rebind("SELECT COUNT(*) FROM testers WHERE uuid = ?"), uuid); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to check tester", err)
	}
	if count == 0 {
		return nil, errors.ErrNotFound("tester")
	}

	if err := checkIDOwnership(ctx, tx, uuid, ids); err != nil {
		return nil, err
	}

	for _, id := range ids {
		// Re-adding one's own id is a no-op.
		_, err = tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO id_mappings (id, tester_uuid) VALUES (?, ?) ON CONFLICT (id) DO NOTHING"),
			id, uuid)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to commit id mappings", err)
	}
	return ts.Get(ctx, uuid)
}

func (ts *testerStore) loadIDs(ctx context.Context, t *model.Tester) error {
	t.IDs = []string{}
	err := ts.s.db.SelectContext(ctx, &t.IDs,
		ts.s.rebind("SELECT id FROM id_mappings WHERE tester_uuid = ? ORDER BY id"), t.UUID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to load tester ids", err)
	}
	return nil
}

func (ts *testerStore) Find(ctx context.Context, q store.Query) (*model.Tester, error) {
	list, err := ts.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (ts *testerStore) Filter(ctx context.Context, q store.Query) ([]*model.Tester, error) {
	where, args, err := whereClause(q, store.TesterFields, testerColumns)
	if err != nil {
		return nil, err
	}

	var list []*model.Tester
	err = ts.s.db.SelectContext(ctx, &list,
		ts.s.rebind("SELECT uuid, name FROM testers"+where+" ORDER BY uuid"), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter testers", err)
	}
	for _, t := range list {
		if err := ts.loadIDs(ctx, t); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (ts *testerStore) GetAll(ctx context.Context) ([]*model.Tester, error) {
	return ts.Filter(ctx, store.Query{})
}

type idMappingStore struct {
	s *DB
}

func (ms *idMappingStore) Put(ctx context.Context, mapping *model.IDMapping) error {
	var owner string
	err := ms.s.db.GetContext(ctx, &owner,
		ms.s.rebind("SELECT tester_uuid FROM id_mappings WHERE id = ?"), mapping.ID)
	if err == nil {
		return errors.ErrConflict("external id " + mapping.ID + " already exists")
	}
	if err != sql.ErrNoRows {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check id mapping", err)
	}

	_, err = ms.s.db.ExecContext(ctx,
		ms.s.rebind("INSERT INTO id_mappings (id, tester_uuid) VALUES (?, ?)"),
		mapping.ID, mapping.TesterUUID)
	if err != nil {
		// The primary key backs the check above against races.
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
	}
	return nil
}

func (ms *idMappingStore) GetTesterUUID(ctx context.Context, id string) (string, error) {
	var uuid string
	err := ms.s.db.GetContext(ctx, &uuid,
		ms.s.rebind("SELECT tester_uuid FROM id_mappings WHERE id = ?"), id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDBQuery, "failed to resolve external id", err)
	}
	return uuid, nil
}

func (ms *idMappingStore) Delete(ctx context.Context, id string) error {
	_, err := ms.s.db.ExecContext(ctx,
		ms.s.rebind("DELETE FROM id_mappings WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete id mapping", err)
	}
	return nil
}

func (ms *idMappingStore) ExistsMultiple(ctx context.Context, ids []string) ([]bool, error) {
	result := make([]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT id FROM id_mappings WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to build existence query", err)
	}
	var present []string
	if err := ms.s.db.SelectContext(ctx, &present, ms.s.rebind(query), args...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to check id existence", err)
	}

	set := make(map[string]bool, len(present))
	for _, id := range present {
		set[id] = true
	}
	for i, id := range ids {
		result[i] = set[id]
	}
	return result, nil
}

func (ms *idMappingStore) Find(ctx context.Context, q store.Query) (*model.IDMapping, error) {
	list, err := ms.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (ms *idMappingStore) Filter(ctx context.Context, q store.Query) ([]*model.IDMapping, error) {
	where, args, err := whereClause(q, store.IDMappingFields, idMappingColumns)
	if err != nil {
		return nil, err
	}

	var list []*model.IDMapping
	err = ms.s.db.SelectContext(ctx, &list,
		ms.s.rebind("SELECT id, tester_uuid FROM id_mappings"+where+" ORDER BY id"), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter id mappings", err)
	}
	return list, nil
}

func (ms *idMappingStore) GetAll(ctx context.Context) ([]*model.IDMapping, error) {
	return ms.Filter(ctx, store.Query{})
}
