package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	"github.com/rcavanagh/orderdesk-backend/pkg/pagination"
)

// ListFilters narrows the cross-order reporting query.
type ListFilters struct {
	Status          *enums.EntryStatus
	TransactionType *enums.TransactionType
	From            *time.Time
	To              *time.Time
	Search          string
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID, includeVoided bool) ([]models.LedgerEntry, error)
	CountByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error)
	FindByProcessorTransactionID(ctx context.Context, processorTxID string) (*models.LedgerEntry, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.EntryStatus, updates map[string]any) (int64, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error)
	DistinctOrderIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID, includeVoided bool) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if !includeVoided {
		query = query.Where("status <> ?", enums.EntryStatusVoided)
	}

	var entries []models.LedgerEntry
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindByProcessorTransactionID(ctx context.Context, processorTxID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("processor_transaction_id = ?", processorTxID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Transition applies updates to the entry only while its status still
// matches from. Callers inspect the returned row count: zero rows with an
// existing entry means another writer won the race.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.EntryStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) DistinctOrderIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Distinct("order_id").
		Pluck("order_id", &ids).Error
	return ids, err
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error) {
	page = pagination.Normalize(page)

	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TransactionType != nil {
		query = query.Where("transaction_type = ?", *filters.TransactionType)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", *filters.To)
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where(
			"(LOWER(payment_number) LIKE ? OR LOWER(order_number) LIKE ? OR LOWER(processor_transaction_id) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
