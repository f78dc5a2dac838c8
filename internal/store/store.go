package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/wipeguard/wipeguard/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Audit() Audit
	InitialMigration() error
	Close() error
}

type DataStore struct {
	audit Audit
	db    *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		audit: NewAuditStore(db),
		db:    db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Audit() Audit {
	return s.audit
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.AuditEntry{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
