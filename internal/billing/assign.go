package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionUpsertColumns are replaced when a company already has a subscription row.
var subscriptionUpsertColumns = []string{
	"plan_id",
	"start_date",
	"end_date",
	"purchased_price",
	"job_limit_snapshot",
	"jobs_left",
	"credit_amount_snapshot",
	"credits_left",
	"status",
	"order_id",
	"updated_at",
}

// Engine activates purchased plans for companies.
type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEngine constructs an Engine backed by GORM.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now().UTC()
	}
	return e.now().UTC()
}

// Activate runs ActivateTx in its own transaction.
func (e *Engine) Activate(ctx context.Context, companyID, planID uint64, orderID *uint64) (*models.Subscription, error) {
	if e == nil || e.db == nil {
		return nil, fmt.Errorf("billing: activate: nil db")
	}
	var out *models.Subscription
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, errActivate := e.ActivateTx(ctx, tx, companyID, planID, orderID)
		if errActivate != nil {
			return errActivate
		}
		out = sub
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// ActivateTx assigns planID to companyID inside tx.
// An active subscription is archived as completed and its balances roll over;
// an expired one is archived as expired without rollover.
func (e *Engine) ActivateTx(ctx context.Context, tx *gorm.DB, companyID, planID uint64, orderID *uint64) (*models.Subscription, error) {
	if tx == nil {
		return nil, fmt.Errorf("billing: activate: nil tx")
	}
	tx = tx.WithContext(ctx)
	now := e.clock()

	if orderID != nil {
		used, errUsed := orderAlreadyActivated(tx, *orderID)
		if errUsed != nil {
			return nil, errUsed
		}
		if used {
			return nil, Conflict("order %d has already been activated", *orderID)
		}
	}

	if errCompany := ensureCompany(tx, companyID); errCompany != nil {
		return nil, errCompany
	}

	var plan models.Plan
	if errFind := tx.Where("id = ?", planID).Take(&plan).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, NotFound("plan %d not found", planID)
		}
		return nil, fmt.Errorf("billing: activate: load plan: %w", errFind)
	}

	current, errCurrent := loadSubscription(db.LockForUpdate(tx), companyID)
	if errCurrent != nil {
		return nil, errCurrent
	}

	var rolloverJobs, rolloverCredits int64
	if current != nil {
		historyEnd := current.EndDate
		historyStatus := models.HistoryStatusExpired
		if current.IsActiveAt(now) {
			if plan.Price <= current.PurchasedPrice {
				return nil, Forbidden("plan %q is not an upgrade over the active plan", plan.Name)
			}
			rolloverJobs = current.JobsLeft
			rolloverCredits = current.CreditsLeft
			historyEnd = now
			historyStatus = models.HistoryStatusCompleted
		}

		history := models.SubscriptionHistory{
			CompanyID:            current.CompanyID,
			PlanID:               current.PlanID,
			PurchasedPrice:       current.PurchasedPrice,
			JobLimitSnapshot:     current.JobLimitSnapshot,
			CreditAmountSnapshot: current.CreditAmountSnapshot,
			StartDate:            current.StartDate,
			EndDate:              historyEnd,
			JobsUsed:             current.JobLimitSnapshot - current.JobsLeft,
			CreditsUsed:          current.CreditAmountSnapshot - current.CreditsLeft,
			Status:               historyStatus,
			OrderID:              current.OrderID,
			CreatedAt:            now,
		}
		if errCreate := tx.Create(&history).Error; errCreate != nil {
			return nil, fmt.Errorf("billing: activate: archive subscription: %w", errCreate)
		}
	}

	finalJobs := plan.JobLimit + rolloverJobs
	finalCredits := plan.CreditAmount + rolloverCredits

	next := models.Subscription{
		CompanyID:            companyID,
		PlanID:               plan.ID,
		StartDate:            now,
		EndDate:              now.AddDate(0, 0, plan.DurationDays),
		PurchasedPrice:       plan.Price,
		JobLimitSnapshot:     finalJobs,
		JobsLeft:             finalJobs,
		CreditAmountSnapshot: finalCredits,
		CreditsLeft:          finalCredits,
		Status:               models.SubscriptionStatusActive,
		OrderID:              orderID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if errUpsert := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns(subscriptionUpsertColumns),
	}).Create(&next).Error; errUpsert != nil {
		return nil, fmt.Errorf("billing: activate: upsert subscription: %w", errUpsert)
	}

	planRef := plan.ID
	grant := models.CreditTransaction{
		CompanyID: companyID,
		Amount:    plan.CreditAmount,
		Type:      models.CreditTransactionGrant,
		OrderID:   orderID,
		PlanID:    &planRef,
		CreatedAt: now,
	}
	if errCreate := tx.Create(&grant).Error; errCreate != nil {
		return nil, fmt.Errorf("billing: activate: append grant: %w", errCreate)
	}

	stored, errReload := loadSubscription(tx, companyID)
	if errReload != nil {
		return nil, errReload
	}
	if stored == nil {
		return nil, fmt.Errorf("billing: activate: subscription missing after upsert")
	}

	log.WithFields(log.Fields{
		"company_id":       companyID,
		"plan_id":          plan.ID,
		"rollover_jobs":    rolloverJobs,
		"rollover_credits": rolloverCredits,
	}).Info("billing: plan activated")
	return stored, nil
}

// orderAlreadyActivated reports whether any live or archived subscription references orderID.
func orderAlreadyActivated(tx *gorm.DB, orderID uint64) (bool, error) {
	var live int64
	if errCount := tx.Model(&models.Subscription{}).Where("order_id = ?", orderID).Count(&live).Error; errCount != nil {
		return false, fmt.Errorf("billing: activate: check subscription order: %w", errCount)
	}
	if live > 0 {
		return true, nil
	}
	var archived int64
	if errCount := tx.Model(&models.SubscriptionHistory{}).Where("order_id = ?", orderID).Count(&archived).Error; errCount != nil {
		return false, fmt.Errorf("billing: activate: check history order: %w", errCount)
	}
	return archived > 0, nil
}

func ensureCompany(tx *gorm.DB, companyID uint64) error {
	var count int64
	if errCount := tx.Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error; errCount != nil {
		return fmt.Errorf("billing: load company: %w", errCount)
	}
	if count == 0 {
		return NotFound("company %d not found", companyID)
	}
	return nil
}

// loadSubscription returns the company's subscription row, or nil when none exists.
func loadSubscription(tx *gorm.DB, companyID uint64) (*models.Subscription, error) {
	var sub models.Subscription
	res := tx.Where("company_id = ?", companyID).Limit(1).Find(&sub)
	if res.Error != nil {
		return nil, fmt.Errorf("billing: load subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &sub, nil
}
