package memstore

import (
	"context"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type shortLinkStore struct {
	db *DB
}

func (s *shortLinkStore) Create(ctx context.Context, purchaseID string, ttl time.Duration) (*model.ShortLink, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	code := idgen.NewShortCode(idgen.DefaultShortCodeLength)
	for {
		if _, taken := s.db.data.shortLinks[code]; !taken {
			break
		}
		code = idgen.NewShortCode(idgen.DefaultShortCodeLength)
	}

	now := time.Now()
	link := &model.ShortLink{
		Code:       code,
		PurchaseID: purchaseID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	s.db.data.shortLinks[code] = link.Clone()
	return link, nil
}

func (s *shortLinkStore) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	link, exists := s.db.data.shortLinks[code]
	if !exists || link.Expired(time.Now()) {
		return nil, nil
	}
	return link.Clone(), nil
}

func (s *shortLinkStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now()
	var deleted int64
	for code, link := range s.db.data.shortLinks {
		if link.Expired(now) {
			delete(s.db.data.shortLinks, code)
			deleted++
		}
	}
	return deleted, nil
}
