package models

import "time"

// Company represents a recruiting tenant that owns a subscription.
type Company struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:varchar(255);not null"` // Display name.
	IsActive bool   `gorm:"not null;default:true"`      // Whether the company may purchase plans.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
