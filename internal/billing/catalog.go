package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/HireLedger/internal/models"

	"gorm.io/gorm"
)

// Upgrade option reasons.
const (
	ReasonNewPurchase      = "new_purchase"
	ReasonUpgrade          = "upgrade"
	ReasonDowngradeBlocked = "downgrade_blocked"
)

// Catalog answers plan and subscription read queries.
type Catalog struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCatalog constructs a Catalog backed by GORM.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db, now: time.Now}
}

func (c *Catalog) clock() time.Time {
	if c == nil || c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

// CurrentPlan describes the plan behind a company's subscription.
type CurrentPlan struct {
	PlanID         uint64    `json:"plan_id"`
	Name           string    `json:"name"`
	PurchasedPrice int64     `json:"purchased_price"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Status         string    `json:"status"`
	IsActive       bool      `json:"is_active"`
	OrderID        *uint64   `json:"order_id,omitempty"`
}

// JobQuota summarizes job posting balances.
type JobQuota struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// CreditQuota summarizes credit balances.
type CreditQuota struct {
	Total     int64 `json:"total"`
	Remaining int64 `json:"remaining"`
}

// Quota groups job and credit balances.
type Quota struct {
	Jobs    JobQuota    `json:"jobs"`
	Credits CreditQuota `json:"credits"`
}

// PlanSummary is the company-facing view of the current subscription.
type PlanSummary struct {
	CurrentPlan CurrentPlan `json:"current_plan"`
	Quota       Quota       `json:"quota"`
}

// UpgradeOption is a catalog plan annotated with purchase eligibility.
type UpgradeOption struct {
	models.Plan
	CanBuy bool   `json:"can_buy"`
	Reason string `json:"reason"`
}

// VisiblePlans lists purchasable plans in display order.
func (c *Catalog) VisiblePlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if errFind := c.db.WithContext(ctx).
		Where("is_hidden = ?", false).
		Order("sort_order ASC, price ASC, id ASC").
		Find(&plans).Error; errFind != nil {
		return nil, fmt.Errorf("billing: list plans: %w", errFind)
	}
	return plans, nil
}

// CurrentPlanSummary returns nil when the company has never held a subscription.
func (c *Catalog) CurrentPlanSummary(ctx context.Context, companyID uint64) (*PlanSummary, error) {
	conn := c.db.WithContext(ctx)
	sub, errLoad := loadSubscription(conn, companyID)
	if errLoad != nil {
		return nil, errLoad
	}
	if sub == nil {
		return nil, nil
	}

	var plan models.Plan
	if errFind := conn.Select("id", "name").Where("id = ?", sub.PlanID).Take(&plan).Error; errFind != nil {
		return nil, fmt.Errorf("billing: summary: load plan: %w", errFind)
	}

	return &PlanSummary{
		CurrentPlan: CurrentPlan{
			PlanID:         sub.PlanID,
			Name:           plan.Name,
			PurchasedPrice: sub.PurchasedPrice,
			StartDate:      sub.StartDate,
			EndDate:        sub.EndDate,
			Status:         string(sub.Status),
			IsActive:       sub.IsActiveAt(c.clock()),
			OrderID:        sub.OrderID,
		},
		Quota: Quota{
			Jobs: JobQuota{
				Total:     sub.JobLimitSnapshot,
				Used:      sub.JobLimitSnapshot - sub.JobsLeft,
				Remaining: sub.JobsLeft,
			},
			Credits: CreditQuota{
				Total:     sub.CreditAmountSnapshot,
				Remaining: sub.CreditsLeft,
			},
		},
	}, nil
}

// UpgradeOptions annotates every visible plan with whether the company may buy it now.
func (c *Catalog) UpgradeOptions(ctx context.Context, companyID uint64) ([]UpgradeOption, error) {
	plans, errPlans := c.VisiblePlans(ctx)
	if errPlans != nil {
		return nil, errPlans
	}
	sub, errLoad := loadSubscription(c.db.WithContext(ctx), companyID)
	if errLoad != nil {
		return nil, errLoad
	}
	now := c.clock()

	out := make([]UpgradeOption, 0, len(plans))
	for _, plan := range plans {
		canBuy, reason := purchaseEligibility(sub, plan, now)
		out = append(out, UpgradeOption{Plan: plan, CanBuy: canBuy, Reason: reason})
	}
	return out, nil
}

// CheckPurchasable mirrors the activation downgrade rule ahead of payment.
func (c *Catalog) CheckPurchasable(ctx context.Context, tx *gorm.DB, companyID uint64, plan models.Plan) error {
	if tx == nil {
		tx = c.db
	}
	sub, errLoad := loadSubscription(tx.WithContext(ctx), companyID)
	if errLoad != nil {
		return errLoad
	}
	if canBuy, _ := purchaseEligibility(sub, plan, c.clock()); !canBuy {
		return Forbidden("plan %q is not an upgrade over the active plan", plan.Name)
	}
	return nil
}

func purchaseEligibility(sub *models.Subscription, plan models.Plan, now time.Time) (bool, string) {
	if !sub.IsActiveAt(now) {
		return true, ReasonNewPurchase
	}
	if plan.Price > sub.PurchasedPrice {
		return true, ReasonUpgrade
	}
	return false, ReasonDowngradeBlocked
}
