package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
)

type shortLinkStore struct {
	db *gorm.DB
}

func (ls *shortLinkStore) Create(ctx context.Context, purchaseID string, ttl time.Duration) (*model.ShortLink, error) {
	now := time.Now()
	link := &model.ShortLink{
		PurchaseID: purchaseID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	for attempt := 0; attempt < 5; attempt++ {
		link.Code = idgen.NewShortCode(idgen.DefaultShortCodeLength)
		var count int64
		err := ls.db.WithContext(ctx).Model(&model.ShortLink{}).
			Where("code = ?", link.Code).Count(&count).Error
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to check short-link code", err)
		}
		if count > 0 {
			continue
		}
		if err := ls.db.WithContext(ctx).Create(link.Clone()).Error; err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to insert short link", err)
		}
		return link, nil
	}
	return nil, errors.New(errors.ErrCodeInternal, "failed to mint a unique short-link code")
}

func (ls *shortLinkStore) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := ls.db.WithContext(ctx).First(&link, "code = ?", code).Error
	if err == gorm.ErrRecordNotFound {
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
	res := ls.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).Delete(&model.ShortLink{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to delete expired short links", res.Error)
	}
	return res.RowsAffected, nil
}
