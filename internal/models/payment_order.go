package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentOrderStatus represents the lifecycle state of a payment order.
type PaymentOrderStatus string

// PaymentOrderStatus constants. Every status except pending is terminal.
const (
	// PaymentOrderStatusPending marks an order awaiting a gateway callback.
	PaymentOrderStatusPending PaymentOrderStatus = "pending"
	// PaymentOrderStatusPaid marks a confirmed payment.
	PaymentOrderStatusPaid PaymentOrderStatus = "paid"
	// PaymentOrderStatusFailed marks a rejected or tampered payment.
	PaymentOrderStatusFailed PaymentOrderStatus = "failed"
	// PaymentOrderStatusExpired marks an order that timed out.
	PaymentOrderStatusExpired PaymentOrderStatus = "expired"
)

// IsTerminal reports whether no further transitions are allowed.
func (s PaymentOrderStatus) IsTerminal() bool {
	return s != PaymentOrderStatusPending
}

// PaymentOrder records one purchase attempt through the payment gateway.
type PaymentOrder struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CompanyID uint64 `gorm:"not null;index"` // Purchasing company.
	PlanID    uint64 `gorm:"not null;index"` // Plan being purchased.
	Amount    int64  `gorm:"not null"`       // Expected amount in ledger units.

	Status PaymentOrderStatus `gorm:"type:varchar(16);not null;default:'pending';index"` // Order state.

	GatewayTxnRef        *string        `gorm:"type:varchar(64);uniqueIndex"` // Reference sent to the gateway.
	GatewayResponseCode  string         `gorm:"type:varchar(16)"`             // Last gateway response code.
	GatewayTransactionNo string         `gorm:"type:varchar(64)"`             // Gateway-side transaction number.
	GatewayPayload       datatypes.JSON `gorm:"type:jsonb"`                   // Verified callback parameters.

	ActivationError string `gorm:"type:varchar(255)"` // Why a paid order granted no plan.

	BankCode string `gorm:"type:varchar(32)"` // Requested bank code.
	ClientIP string `gorm:"type:varchar(64)"` // Purchaser IP address.

	ExpiredAt time.Time  `gorm:"not null;index"` // Soft payment deadline.
	PaidAt    *time.Time // Payment confirmation time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
