package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type shortLinkStore struct {
	s *DB
}

func (ls *shortLinkStore) Create(ctx context.Context, purchaseID string, ttl time.Duration) (*model.ShortLink, error) {
	now := time.Now()
	link := &model.ShortLink{
		PurchaseID: purchaseID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	// Random codes collide rarely; retry on the unique constraint a few
	// times rather than locking.
	for attempt := 0; attempt < 5; attempt++ {
		link.Code = idgen.NewShortCode(idgen.DefaultShortCodeLength)
		_, err := ls.s.db.ExecContext(ctx, ls.s.rebind(
			`INSERT INTO short_links (code, purchase_id, created_at, expires_at)
			 VALUES (?, ?, ?, ?) ON CONFLICT (code) DO NOTHING`),
			link.Code, link.PurchaseID, link.CreatedAt, link.ExpiresAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert short link", err)
		}

		// Re-read the surviving row: on a collision the insert was a no-op
		// and the stored timestamps, not the freshly computed ones, are
		// what Resolve will honor.
		var stored model.ShortLink
		err = ls.s.db.GetContext(ctx, &stored, ls.s.rebind(
			"SELECT code, purchase_id, created_at, expires_at FROM short_links WHERE code = ?"), link.Code)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to verify short link", err)
		}
		if stored.PurchaseID == purchaseID {
			return &stored, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInternal, "failed to mint a unique short-link code")
}

func (ls *shortLinkStore) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := ls.s.db.GetContext(ctx, &link, ls.s.rebind(
		"SELECT code, purchase_id, created_at, expires_at FROM short_links WHERE code = ?"), code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to resolve short link", err)
	}
	if link.Expired(time.Now()) {
		return nil, nil
	}
	return &link, nil
}

func (ls *shortLinkStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := ls.s.db.ExecContext(ctx,
		ls.s.rebind("DELETE FROM short_links WHERE expires_at <= ?"), time.Now())
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to delete expired short links", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to count deleted short links", err)
	}
	return deleted, nil
}
