package billing

import (
	"context"
	"fmt"

	"github.com/router-for-me/HireLedger/internal/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Ledger reads the append-only credit log and subscription history.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger backed by GORM.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Balance returns the sum of every ledger entry for the company.
func (l *Ledger) Balance(ctx context.Context, companyID uint64) (int64, error) {
	// row holds the aggregate result.
	var row struct {
		Total int64
	}
	if errSum := l.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("company_id = ?", companyID).
		Scan(&row).Error; errSum != nil {
		return 0, fmt.Errorf("billing: ledger balance: %w", errSum)
	}
	return row.Total, nil
}

// Transactions lists ledger entries newest first.
func (l *Ledger) Transactions(ctx context.Context, companyID uint64, limit, offset int) ([]models.CreditTransaction, int64, error) {
	limit, offset = normalizePage(limit, offset)
	base := func() *gorm.DB {
		return l.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("company_id = ?", companyID)
	}

	var total int64
	if errCount := base().Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("billing: count transactions: %w", errCount)
	}
	var rows []models.CreditTransaction
	if errFind := base().Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("billing: list transactions: %w", errFind)
	}
	return rows, total, nil
}

// History lists archived subscriptions newest first.
func (l *Ledger) History(ctx context.Context, companyID uint64) ([]models.SubscriptionHistory, error) {
	var rows []models.SubscriptionHistory
	if errFind := l.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("billing: list history: %w", errFind)
	}
	return rows, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
