package gormstore

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type testerStore struct {
	db *gorm.DB
}

// Put upserts the tester and reconciles the id mappings inside one
// transaction, inserting added mappings before deleting removed ones.
func (ts *testerStore) Put(ctx context.Context, tester *model.Tester) (*model.Tester, error) {
	t := tester.Clone()
	if t.UUID == "" {
		t.UUID = idgen.NewUUID()
	}

	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(t.IDs) > 0 {
			var owned []model.IDMapping
			if err := tx.Where("id IN ?", t.IDs).Find(&owned).Error; err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to check id ownership", err)
			}
			for _, m := range owned {
				if m.TesterUUID != t.UUID {
					return errors.ErrConflict("external id " + m.ID + " belongs to another tester")
				}
			}
		}

		if err := tx.Save(&model.Tester{UUID: t.UUID, Name: t.Name}).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to upsert tester", err)
		}

		var existing []model.IDMapping
		if err := tx.Where("tester_uuid = ?", t.UUID).Find(&existing).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to load id mappings", err)
		}

		incoming := make(map[string]bool, len(t.IDs))
		for _, id := range t.IDs {
			incoming[id] = true
		}
		current := make(map[string]bool, len(existing))
		for _, m := range existing {
			current[m.ID] = true
		}

		for id := range incoming {
			if current[id] {
				continue
			}
			if err := tx.Create(&model.IDMapping{ID: id, TesterUUID: t.UUID}).Error; err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
			}
		}
		for _, m := range existing {
			if incoming[m.ID] {
				continue
			}
			if err := tx.Delete(&model.IDMapping{}, "id = ?", m.ID).Error; err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete id mapping", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(t.IDs)
	return t, nil
}

func (ts *testerStore) Get(ctx context.Context, uuid string) (*model.Tester, error) {
	var t model.Tester
	err := ts.db.WithContext(ctx).First(&t, "uuid = ?", uuid).Error
	if err == gorm.ErrRecordNotFound {
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
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Tester{}).Where("uuid = ?", uuid).Count(&count).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to check tester", err)
		}
		if count == 0 {
			return errors.ErrNotFound("tester")
		}

		for _, id := range ids {
			var existing model.IDMapping
			err := tx.First(&existing, "id = ?", id).Error
			if err == nil {
				if existing.TesterUUID != uuid {
					return errors.ErrConflict("external id " + id + " belongs to another tester")
				}
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to check id mapping", err)
			}
			if err := tx.Create(&model.IDMapping{ID: id, TesterUUID: uuid}).Error; err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ts.Get(ctx, uuid)
}

func (ts *testerStore) loadIDs(ctx context.Context, t *model.Tester) error {
	var mappings []model.IDMapping
	err := ts.db.WithContext(ctx).
		Where("tester_uuid = ?", t.UUID).Order("id").Find(&mappings).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to load tester ids", err)
	}
	t.IDs = make([]string, len(mappings))
	for i, m := range mappings {
		t.IDs[i] = m.ID
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
	tx, err := applyQuery(ts.db.WithContext(ctx), q, store.TesterFields, testerColumns)
	if err != nil {
		return nil, err
	}

	var list []*model.Tester
	if err := tx.Order("uuid").Find(&list).Error; err != nil {
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
	db *gorm.DB
}

func (ms *idMappingStore) Put(ctx context.Context, mapping *model.IDMapping) error {
	var existing model.IDMapping
	err := ms.db.WithContext(ctx).First(&existing, "id = ?", mapping.ID).Error
	if err == nil {
		return errors.ErrConflict("external id " + mapping.ID + " already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to check id mapping", err)
	}

	if err := ms.db.WithContext(ctx).Create(mapping.Clone()).Error; err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to insert id mapping", err)
	}
	return nil
}

func (ms *idMappingStore) GetTesterUUID(ctx context.Context, id string) (string, error) {
	var mapping model.IDMapping
	err := ms.db.WithContext(ctx).First(&mapping, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDBQuery, "failed to resolve external id", err)
	}
	return mapping.TesterUUID, nil
}

func (ms *idMappingStore) Delete(ctx context.Context, id string) error {
	err := ms.db.WithContext(ctx).Delete(&model.IDMapping{}, "id = ?", id).Error
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

	var present []model.IDMapping
	err := ms.db.WithContext(ctx).Where("id IN ?", ids).Find(&present).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to check id existence", err)
	}

	set := make(map[string]bool, len(present))
	for _, m := range present {
		set[m.ID] = true
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
	tx, err := applyQuery(ms.db.WithContext(ctx), q, store.IDMappingFields, idMappingColumns)
	if err != nil {
		return nil, err
	}

	var list []*model.IDMapping
	if err := tx.Order("id").Find(&list).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to filter id mappings", err)
	}
	return list, nil
}

func (ms *idMappingStore) GetAll(ctx context.Context) ([]*model.IDMapping, error) {
	return ms.Filter(ctx, store.Query{})
}
