package models

import "time"

// CreditTransactionType classifies a ledger entry.
type CreditTransactionType string

// CreditTransactionType constants.
const (
	// CreditTransactionGrant records credits granted by a plan activation.
	CreditTransactionGrant CreditTransactionType = "grant"
	// CreditTransactionBoost records credits spent on a listing boost.
	CreditTransactionBoost CreditTransactionType = "boost"
)

// CreditTransaction is an append-only ledger entry for company credits.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CompanyID uint64                `gorm:"not null;index:idx_credit_tx_company_created,priority:1"` // Owning company.
	Amount    int64                 `gorm:"not null"`                                                // Signed amount, positive grants.
	Type      CreditTransactionType `gorm:"type:varchar(16);not null"`                               // Entry type.

	JobID   *uint64 `gorm:"index"` // Related job for spends.
	OrderID *uint64 `gorm:"index"` // Related order for grants.
	PlanID  *uint64 `gorm:"index"` // Related plan.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_credit_tx_company_created,priority:2"` // Entry timestamp.
}
