package models

import "time"

// SubscriptionStatus represents the state of the live subscription row.
type SubscriptionStatus string

// SubscriptionStatus constants.
const (
	// SubscriptionStatusActive marks the company's current plan.
	SubscriptionStatusActive SubscriptionStatus = "active"
)

// HistoryStatus describes how an archived subscription ended.
type HistoryStatus string

// HistoryStatus constants.
const (
	// HistoryStatusCompleted marks a plan superseded while still active.
	HistoryStatusCompleted HistoryStatus = "completed"
	// HistoryStatusExpired marks a plan that ran its full term.
	HistoryStatusExpired HistoryStatus = "expired"
)

// Subscription is the single live plan instance of a company.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CompanyID uint64 `gorm:"not null;uniqueIndex"` // Owning company, one row per company.
	PlanID    uint64 `gorm:"not null;index"`       // Purchased plan.

	StartDate time.Time `gorm:"not null"`       // Activation time.
	EndDate   time.Time `gorm:"not null;index"` // Expiry time.

	PurchasedPrice int64 `gorm:"not null;default:0"` // Plan price snapshot at purchase.

	JobLimitSnapshot     int64 `gorm:"not null;default:0"` // Job quota granted including rollover.
	JobsLeft             int64 `gorm:"not null;default:0"` // Remaining job postings.
	CreditAmountSnapshot int64 `gorm:"not null;default:0"` // Credits granted including rollover.
	CreditsLeft          int64 `gorm:"not null;default:0"` // Remaining credits.

	Status  SubscriptionStatus `gorm:"type:varchar(16);not null;default:'active'"` // Subscription state.
	OrderID *uint64            `gorm:"uniqueIndex"`                                // Originating payment order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsActiveAt reports whether the subscription is usable at the given instant.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionStatusActive && s.EndDate.After(now)
}

// SubscriptionHistory is a frozen snapshot of a superseded or expired subscription.
type SubscriptionHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CompanyID uint64 `gorm:"not null;index"` // Owning company.
	PlanID    uint64 `gorm:"not null;index"` // Archived plan.

	PurchasedPrice       int64 `gorm:"not null;default:0"` // Price paid for the archived plan.
	JobLimitSnapshot     int64 `gorm:"not null;default:0"` // Job quota at archive time.
	CreditAmountSnapshot int64 `gorm:"not null;default:0"` // Credit quota at archive time.

	StartDate time.Time `gorm:"not null"` // Original activation time.
	EndDate   time.Time `gorm:"not null"` // Effective end time.

	JobsUsed    int64 `gorm:"not null;default:0"` // Job postings consumed.
	CreditsUsed int64 `gorm:"not null;default:0"` // Credits consumed.

	Status  HistoryStatus `gorm:"type:varchar(16);not null"` // How the plan ended.
	OrderID *uint64       `gorm:"uniqueIndex"`               // Originating payment order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Archive timestamp.
}
