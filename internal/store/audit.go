package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/wipeguard/wipeguard/internal/store/model"
)

// Audit persists audit entries. Entries are write-once: there is no update
// or delete method on purpose.
type Audit interface {
	Create(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error)
	List(ctx context.Context, filter *AuditQueryFilter, opts *AuditQueryOptions) (model.AuditEntryList, error)
	Count(ctx context.Context, filter *AuditQueryFilter) (int64, error)
}

type AuditStore struct {
	db *gorm.DB
}

// Make sure we conform to Audit interface
var _ Audit = (*AuditStore)(nil)

func NewAuditStore(db *gorm.DB) Audit {
	return &AuditStore{db: db}
}

func (s *AuditStore) Create(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	if result := s.getDB(ctx).Create(&entry); result.Error != nil {
		return nil, errors.Wrap(result.Error, "persisting audit entry")
	}
	return &entry, nil
}

func (s *AuditStore) List(ctx context.Context, filter *AuditQueryFilter, opts *AuditQueryOptions) (model.AuditEntryList, error) {
	tx := s.getDB(ctx).Model(&model.AuditEntry{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	var entries model.AuditEntryList
	if err := tx.Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	return entries, nil
}

func (s *AuditStore) Count(ctx context.Context, filter *AuditQueryFilter) (int64, error) {
	tx := s.getDB(ctx).Model(&model.AuditEntry{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "counting audit entries")
	}
	return count, nil
}

func (s *AuditStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
