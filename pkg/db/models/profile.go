package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds account details keyed by the authenticated user id.
type Profile struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        *string   `gorm:"column:email"`
	FullName     *string   `gorm:"column:full_name"`
	Phone        *string   `gorm:"column:phone"`
	AddressLine1 *string   `gorm:"column:address_line1"`
	AddressLine2 *string   `gorm:"column:address_line2"`
	City         *string   `gorm:"column:city"`
	State        *string   `gorm:"column:state"`
	PostalCode   *string   `gorm:"column:postal_code"`
	Country      *string   `gorm:"column:country"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
