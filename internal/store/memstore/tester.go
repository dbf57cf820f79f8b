package memstore

import (
	"context"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type testerStore struct {
	db *DB
}

func (s *testerStore) Put(ctx context.Context, tester *model.Tester) (*model.Tester, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := tester.Clone()
	if t.UUID == "" {
		t.UUID = idgen.NewUUID()
	}

	// Reject foreign claims before mutating anything.
	for _, id := range t.IDs {
		if owner, exists := s.db.data.mappings[id]; exists && owner != t.UUID {
			return nil, errors.ErrConflict("external id " + id + " belongs to another tester")
		}
	}

	incoming := make(map[string]bool, len(t.IDs))
	for _, id := range t.IDs {
		incoming[id] = true
	}

	// Insert added mappings first, then drop removed ones.
	for id := range incoming {
		s.db.data.mappings[id] = t.UUID
	}
	for _, id := range s.db.data.idsOf(t.UUID) {
		if !incoming[id] {
			delete(s.db.data.mappings, id)
		}
	}

	stored := t.Clone()
	stored.IDs = nil
	s.db.data.testers[t.UUID] = stored

	t.IDs = s.db.data.idsOf(t.UUID)
	return t, nil
}

func (s *testerStore) Get(ctx context.Context, uuid string) (*model.Tester, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.data.testerByUUID(uuid), nil
}

func (s *testerStore) AddIDs(ctx context.Context, uuid string, ids []string) (*model.Tester, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.data.testers[uuid]; !exists {
		return nil, errors.ErrNotFound("tester")
	}
	for _, id := range ids {
		if owner, exists := s.db.data.mappings[id]; exists && owner != uuid {
			return nil, errors.ErrConflict("external id " + id + " belongs to another tester")
		}
	}
	for _, id := range ids {
		s.db.data.mappings[id] = uuid
	}
	return s.db.data.testerByUUID(uuid), nil
}

func (s *testerStore) Find(ctx context.Context, q store.Query) (*model.Tester, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *testerStore) Filter(ctx context.Context, q store.Query) ([]*model.Tester, error) {
	if err := q.Validate(store.TesterFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.Tester
	for uuid := range s.db.data.testers {
		t := s.db.data.testerByUUID(uuid)
		match, err := q.Match(t)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, t)
		}
	}
	sortTesters(result)
	return result, nil
}

func (s *testerStore) GetAll(ctx context.Context) ([]*model.Tester, error) {
	return s.Filter(ctx, store.Query{})
}

// testerByUUID returns a copy with the ids populated, or nil.
// Caller holds the lock.
func (g *graph) testerByUUID(uuid string) *model.Tester {
	t, exists := g.testers[uuid]
	if !exists {
		return nil
	}
	c := t.Clone()
	c.IDs = g.idsOf(uuid)
	return c
}

type idMappingStore struct {
	db *DB
}

func (s *idMappingStore) Put(ctx context.Context, mapping *model.IDMapping) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.data.mappings[mapping.ID]; exists {
		return errors.ErrConflict("external id " + mapping.ID + " already exists")
	}
	s.db.data.mappings[mapping.ID] = mapping.TesterUUID
	return nil
}

func (s *idMappingStore) GetTesterUUID(ctx context.Context, id string) (string, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.data.mappings[id], nil
}

func (s *idMappingStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.data.mappings, id)
	return nil
}

func (s *idMappingStore) ExistsMultiple(ctx context.Context, ids []string) ([]bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	result := make([]bool, len(ids))
	for i, id := range ids {
		_, result[i] = s.db.data.mappings[id]
	}
	return result, nil
}

func (s *idMappingStore) Find(ctx context.Context, q store.Query) (*model.IDMapping, error) {
	list, err := s.Filter(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *idMappingStore) Filter(ctx context.Context, q store.Query) ([]*model.IDMapping, error) {
	if err := q.Validate(store.IDMappingFields); err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*model.IDMapping
	for id, uuid := range s.db.data.mappings {
		m := &model.IDMapping{ID: id, TesterUUID: uuid}
		match, err := q.Match(m)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, m)
		}
	}
	sortMappings(result)
	return result, nil
}

func (s *idMappingStore) GetAll(ctx context.Context) ([]*model.IDMapping, error) {
	return s.Filter(ctx, store.Query{})
}
