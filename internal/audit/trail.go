package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wipeguard/wipeguard/internal/store"
	"github.com/wipeguard/wipeguard/internal/store/model"
	"github.com/wipeguard/wipeguard/pkg/metrics"
)

const verifyBatchSize = 500

// Entry is what callers hand to the trail. The trail assigns the id, the
// timestamp and the checksum.
type Entry struct {
	Action   string
	Category string
	Severity string
	JobID    *uuid.UUID
	Customer string
	Target   string
	Details  map[string]any
}

// Filter narrows queries and exports.
type Filter struct {
	Category string
	Action   string
	Severity string
	Customer string
	JobID    *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Mismatch struct {
	ID       uuid.UUID `json:"id"`
	Expected string    `json:"expected"`
	Actual   string    `json:"actual"`
}

type IntegrityReport struct {
	CheckedEntries int        `json:"checkedEntries"`
	Mismatches     []Mismatch `json:"mismatches"`
	VerifiedAt     time.Time  `json:"verifiedAt"`
}

// NotRecordedError marks the critical case where a safety decision or job
// transition could not be durably written. Callers must treat the action as
// not provably recorded, never as an ordinary failure.
type NotRecordedError struct {
	error
}

func NewNotRecordedError(err error) *NotRecordedError {
	return &NotRecordedError{fmt.Errorf("audit entry not durably recorded: %w", err)}
}

// Trail is the tamper-evident audit log. Appends are serialized by a single
// writer mutex so no two entries interleave.
type Trail struct {
	store store.Store

	writeMu sync.Mutex
}

func NewTrail(s store.Store) *Trail {
	return &Trail{store: s}
}

// Append checksums the entry and persists it inside a committed transaction
// before returning. On any persistence failure the caller gets a
// NotRecordedError; the append is never silently dropped.
func (t *Trail) Append(ctx context.Context, e Entry) (uuid.UUID, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	entry := model.AuditEntry{
		ID: uuid.New(),
		// microsecond precision survives both sqlite and postgres round-trips
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Action:    e.Action,
		Category:  e.Category,
		Severity:  e.Severity,
		JobID:     e.JobID,
		Customer:  e.Customer,
		Target:    e.Target,
	}
	if e.Details != nil {
		entry.Details = model.MakeJSONField(e.Details)
	}
	entry.Checksum = Checksum(entry)

	txCtx, err := t.store.NewTransactionContext(ctx)
	if err != nil {
		metrics.IncreaseAuditAppendsTotalMetric("error")
		return uuid.Nil, NewNotRecordedError(err)
	}
	if _, err := t.store.Audit().Create(txCtx, entry); err != nil {
		_, _ = store.Rollback(txCtx)
		metrics.IncreaseAuditAppendsTotalMetric("error")
		return uuid.Nil, NewNotRecordedError(err)
	}
	if _, err := store.Commit(txCtx); err != nil {
		metrics.IncreaseAuditAppendsTotalMetric("error")
		return uuid.Nil, NewNotRecordedError(err)
	}

	metrics.IncreaseAuditAppendsTotalMetric("ok")
	return entry.ID, nil
}

// Query returns matching entries newest-first, plus pagination metadata.
func (t *Trail) Query(ctx context.Context, filter Filter, page, pageSize int) (model.AuditEntryList, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	qf := filterToQuery(filter)
	total, err := t.store.Audit().Count(ctx, qf)
	if err != nil {
		return nil, Pagination{}, err
	}

	opts := store.NewAuditQueryOptions().WithNewestFirst().WithPagination(page, pageSize)
	entries, err := t.store.Audit().List(ctx, filterToQuery(filter), opts)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return entries, Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}, nil
}

// VerifyIntegrity recomputes the checksum of every entry and reports the
// full list of mismatches. It never stops at the first one.
func (t *Trail) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	report := IntegrityReport{
		Mismatches: []Mismatch{},
		VerifiedAt: time.Now().UTC(),
	}

	for page := 1; ; page++ {
		opts := store.NewAuditQueryOptions().WithOldestFirst().WithPagination(page, verifyBatchSize)
		entries, err := t.store.Audit().List(ctx, nil, opts)
		if err != nil {
			return report, err
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			actual := Checksum(entry)
			if actual != entry.Checksum {
				zap.S().Named("audit").Warnw("audit entry checksum mismatch", "entry_id", entry.ID)
				report.Mismatches = append(report.Mismatches, Mismatch{
					ID:       entry.ID,
					Expected: entry.Checksum,
					Actual:   actual,
				})
			}
		}
		report.CheckedEntries += len(entries)

		if len(entries) < verifyBatchSize {
			break
		}
	}

	return report, nil
}

func filterToQuery(f Filter) *store.AuditQueryFilter {
	qf := store.NewAuditQueryFilter()
	if f.Category != "" {
		qf = qf.ByCategory(f.Category)
	}
	if f.Action != "" {
		qf = qf.ByAction(f.Action)
	}
	if f.Severity != "" {
		qf = qf.BySeverity(f.Severity)
	}
	if f.Customer != "" {
		qf = qf.ByCustomer(f.Customer)
	}
	if f.JobID != nil {
		qf = qf.ByJobID(*f.JobID)
	}
	if f.From != nil {
		qf = qf.CreatedAfter(*f.From)
	}
	if f.To != nil {
		qf = qf.CreatedBefore(*f.To)
	}
	return qf
}
