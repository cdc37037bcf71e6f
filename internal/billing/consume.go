package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/HireLedger/internal/models"

	"gorm.io/gorm"
)

// Guard deducts job and credit balances from active subscriptions.
type Guard struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGuard constructs a Guard backed by GORM.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db, now: time.Now}
}

func (g *Guard) clock() time.Time {
	if g == nil || g.now == nil {
		return time.Now().UTC()
	}
	return g.now().UTC()
}

// ConsumeJob deducts one job posting and returns the remaining job balance.
func (g *Guard) ConsumeJob(ctx context.Context, companyID uint64) (int64, error) {
	if g == nil || g.db == nil {
		return 0, fmt.Errorf("billing: consume job: nil db")
	}
	var remaining int64
	errTx := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		left, errConsume := g.ConsumeJobTx(ctx, tx, companyID)
		if errConsume != nil {
			return errConsume
		}
		remaining = left
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}
	return remaining, nil
}

// ConsumeJobTx deducts one job posting inside tx.
func (g *Guard) ConsumeJobTx(ctx context.Context, tx *gorm.DB, companyID uint64) (int64, error) {
	tx = tx.WithContext(ctx)
	now := g.clock()
	if _, errUsable := usableSubscription(tx, companyID, now); errUsable != nil {
		return 0, errUsable
	}

	// Single conditional statement: concurrent callers cannot both take the last slot.
	res := tx.Model(&models.Subscription{}).
		Where("company_id = ? AND jobs_left > 0", companyID).
		Updates(map[string]any{
			"jobs_left":  gorm.Expr("jobs_left - ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("billing: consume job: deduct: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, Forbidden("job posting quota exhausted")
	}

	// row holds the post-deduction balance.
	var row struct {
		JobsLeft int64
	}
	if errFind := tx.Model(&models.Subscription{}).
		Select("jobs_left").
		Where("company_id = ?", companyID).
		Take(&row).Error; errFind != nil {
		return 0, fmt.Errorf("billing: consume job: reload: %w", errFind)
	}
	return row.JobsLeft, nil
}

// ConsumeCredit spends amount credits and appends a boost ledger entry.
func (g *Guard) ConsumeCredit(ctx context.Context, companyID uint64, amount int64, jobID *uint64) error {
	if g == nil || g.db == nil {
		return fmt.Errorf("billing: consume credit: nil db")
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return g.ConsumeCreditTx(ctx, tx, companyID, amount, jobID)
	})
}

// ConsumeCreditTx spends amount credits inside tx.
func (g *Guard) ConsumeCreditTx(ctx context.Context, tx *gorm.DB, companyID uint64, amount int64, jobID *uint64) error {
	if amount <= 0 {
		return Forbidden("credit amount must be positive")
	}
	tx = tx.WithContext(ctx)
	now := g.clock()
	current, errUsable := usableSubscription(tx, companyID, now)
	if errUsable != nil {
		return errUsable
	}

	res := tx.Model(&models.Subscription{}).
		Where("company_id = ? AND credits_left >= ?", companyID, amount).
		Updates(map[string]any{
			"credits_left": gorm.Expr("credits_left - ?", amount),
			"updated_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("billing: consume credit: deduct: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return Forbidden("insufficient credits")
	}

	planID := current.PlanID
	spend := models.CreditTransaction{
		CompanyID: companyID,
		Amount:    -amount,
		Type:      models.CreditTransactionBoost,
		JobID:     jobID,
		PlanID:    &planID,
		CreatedAt: now,
	}
	if errCreate := tx.Create(&spend).Error; errCreate != nil {
		return fmt.Errorf("billing: consume credit: append spend: %w", errCreate)
	}
	return nil
}

// usableSubscription loads the subscription and rejects missing or lapsed plans.
func usableSubscription(tx *gorm.DB, companyID uint64, now time.Time) (*models.Subscription, error) {
	current, errLoad := loadSubscription(tx, companyID)
	if errLoad != nil {
		return nil, errLoad
	}
	if !current.IsActiveAt(now) {
		return nil, Forbidden("no usable plan")
	}
	return current, nil
}
