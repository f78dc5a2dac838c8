package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type AuditQueryFilter BaseQuerier

func NewAuditQueryFilter() *AuditQueryFilter {
	return &AuditQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *AuditQueryFilter) ByCategory(category string) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("category = ?", category)
	})
	return qf
}

func (qf *AuditQueryFilter) ByAction(action string) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("action = ?", action)
	})
	return qf
}

func (qf *AuditQueryFilter) BySeverity(severity string) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("severity = ?", severity)
	})
	return qf
}

func (qf *AuditQueryFilter) ByCustomer(customer string) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("customer = ?", customer)
	})
	return qf
}

func (qf *AuditQueryFilter) ByJobID(jobID uuid.UUID) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("job_id = ?", jobID)
	})
	return qf
}

func (qf *AuditQueryFilter) CreatedAfter(t time.Time) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at >= ?", t)
	})
	return qf
}

func (qf *AuditQueryFilter) CreatedBefore(t time.Time) *AuditQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at <= ?", t)
	})
	return qf
}

type AuditQueryOptions BaseQuerier

func NewAuditQueryOptions() *AuditQueryOptions {
	return &AuditQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// WithNewestFirst is the default order for audit queries.
func (o *AuditQueryOptions) WithNewestFirst() *AuditQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at DESC")
	})
	return o
}

func (o *AuditQueryOptions) WithOldestFirst() *AuditQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	})
	return o
}

func (o *AuditQueryOptions) WithPagination(page, pageSize int) *AuditQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return tx.Offset((page - 1) * pageSize).Limit(pageSize)
	})
	return o
}
