// Package memstore implements the store contract with an in-process
// object graph. The graph is guarded by a single RWMutex and every value
// crossing the API boundary is a copy, never a live reference. Intended
// for tests and small single-node deployments; data does not survive a
// restart.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// graph is the complete data set. Restore builds a fresh graph off to the
// side and swaps it in under the write lock, so a failed restore never
// leaves partial state behind.
type graph struct {
	testers      map[string]*model.Tester      // uuid → tester (ids live in mappings)
	mappings     map[string]string             // external id → tester uuid
	purchases    map[string]*model.Purchase    // id → purchase
	feedbacks    map[string]*model.Feedback    // purchase id → feedback
	publications map[string]*model.Publication // purchase id → publication
	refunds      map[string]*model.Refund      // purchase id → refund
	shortLinks   map[string]*model.ShortLink   // code → link
}

func newGraph() *graph {
	return &graph{
		testers:      make(map[string]*model.Tester),
		mappings:     make(map[string]string),
		purchases:    make(map[string]*model.Purchase),
		feedbacks:    make(map[string]*model.Feedback),
		publications: make(map[string]*model.Publication),
		refunds:      make(map[string]*model.Refund),
		shortLinks:   make(map[string]*model.ShortLink),
	}
}

// DB is the in-process database.
type DB struct {
	mu   sync.RWMutex
	data *graph
}

// Open creates an empty in-process database.
func Open() *DB {
	return &DB{data: newGraph()}
}

func (d *DB) Testers() store.TesterStore           { return &testerStore{d} }
func (d *DB) IDMappings() store.IDMappingStore     { return &idMappingStore{d} }
func (d *DB) Purchases() store.PurchaseStore       { return &purchaseStore{d} }
func (d *DB) Feedbacks() store.FeedbackStore       { return &feedbackStore{d} }
func (d *DB) Publications() store.PublicationStore { return &publicationStore{d} }
func (d *DB) Refunds() store.RefundStore           { return &refundStore{d} }
func (d *DB) ShortLinks() store.ShortLinkStore     { return &shortLinkStore{d} }

// Backend returns the backend name.
func (d *DB) Backend() string {
	return consts.BackendMemory
}

// Reset wipes all data.
func (d *DB) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = newGraph()
	return nil
}

// RawData dumps the full object graph as a backup document.
func (d *DB) RawData(ctx context.Context) (*model.Backup, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot(), nil
}

// Ping always succeeds; the graph is in-process.
func (d *DB) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (d *DB) Close() error {
	return nil
}

// BackupJSON serializes the graph into the backup document format.
func (d *DB) BackupJSON(ctx context.Context) ([]byte, error) {
	d.mu.RLock()
	backup := d.snapshot()
	d.mu.RUnlock()

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, errors.ErrInternal("failed to serialize backup", err)
	}
	return data, nil
}

// RestoreJSON validates the document, stages a fresh graph and swaps it in.
// Nothing is mutated unless the whole document parses.
func (d *DB) RestoreJSON(ctx context.Context, data []byte) error {
	backup, err := model.ParseBackup(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeValidation, "invalid backup document", err)
	}

	staged := newGraph()
	for i := range backup.Testers {
		t := backup.Testers[i]
		t.IDs = nil
		staged.testers[t.UUID] = &t
	}
	for _, m := range backup.IDs {
		if _, exists := staged.mappings[m.ID]; exists {
			return errors.ErrConflict("backup contains duplicate external id " + m.ID)
		}
		staged.mappings[m.ID] = m.TesterUUID
	}
	for i := range backup.Purchases {
		p := backup.Purchases[i]
		staged.purchases[p.ID] = &p
	}
	for i := range backup.Feedbacks {
		f := backup.Feedbacks[i]
		staged.feedbacks[f.PurchaseID] = &f
	}
	for i := range backup.Publications {
		p := backup.Publications[i]
		staged.publications[p.PurchaseID] = &p
	}
	for i := range backup.Refunds {
		r := backup.Refunds[i]
		staged.refunds[r.PurchaseID] = &r
	}

	d.mu.Lock()
	d.data = staged
	d.mu.Unlock()
	return nil
}

// snapshot builds a backup document from the graph. Caller holds the lock.
func (d *DB) snapshot() *model.Backup {
	backup := &model.Backup{
		Testers:      []model.Tester{},
		IDs:          []model.IDMapping{},
		Purchases:    []model.Purchase{},
		Feedbacks:    []model.Feedback{},
		Publications: []model.Publication{},
		Refunds:      []model.Refund{},
	}
	for _, t := range d.data.testers {
		c := t.Clone()
		c.IDs = d.data.idsOf(t.UUID)
		backup.Testers = append(backup.Testers, *c)
	}
	sort.Slice(backup.Testers, func(i, j int) bool {
		return backup.Testers[i].UUID < backup.Testers[j].UUID
	})
	for id, uuid := range d.data.mappings {
		backup.IDs = append(backup.IDs, model.IDMapping{ID: id, TesterUUID: uuid})
	}
	sort.Slice(backup.IDs, func(i, j int) bool {
		return backup.IDs[i].ID < backup.IDs[j].ID
	})
	for _, p := range d.data.purchases {
		backup.Purchases = append(backup.Purchases, *p.Clone())
	}
	sort.Slice(backup.Purchases, func(i, j int) bool {
		return backup.Purchases[i].ID < backup.Purchases[j].ID
	})
	for _, f := range d.data.feedbacks {
		backup.Feedbacks = append(backup.Feedbacks, *f.Clone())
	}
	sort.Slice(backup.Feedbacks, func(i, j int) bool {
		return backup.Feedbacks[i].PurchaseID < backup.Feedbacks[j].PurchaseID
	})
	for _, p := range d.data.publications {
		backup.Publications = append(backup.Publications, *p.Clone())
	}
	sort.Slice(backup.Publications, func(i, j int) bool {
		return backup.Publications[i].PurchaseID < backup.Publications[j].PurchaseID
	})
	for _, r := range d.data.refunds {
		backup.Refunds = append(backup.Refunds, *r.Clone())
	}
	sort.Slice(backup.Refunds, func(i, j int) bool {
		return backup.Refunds[i].PurchaseID < backup.Refunds[j].PurchaseID
	})
	return backup
}

// idsOf returns the sorted external ids mapped to a tester.
func (g *graph) idsOf(uuid string) []string {
	ids := []string{}
	for id, owner := range g.mappings {
		if owner == uuid {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
