package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan represents a purchasable subscription plan in the catalog.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name         string `gorm:"type:varchar(255);not null"` // Plan name.
	Description  string `gorm:"type:text"`                  // Plan description.
	Price        int64  `gorm:"not null;default:0"`         // Price in ledger units (VND).
	DurationDays int    `gorm:"not null;default:30"`        // Validity period in days.

	JobLimit     int64 `gorm:"not null;default:0"` // Job postings granted per purchase.
	CreditAmount int64 `gorm:"not null;default:0"` // Credits granted per purchase.

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Marketing feature list.

	SortOrder int  `gorm:"not null;default:0"`     // Display ordering weight.
	IsHidden  bool `gorm:"not null;default:false"` // Hidden plans cannot be purchased.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
