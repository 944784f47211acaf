package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ShippingAddress is copied onto the order verbatim at checkout.
type ShippingAddress struct {
	FullName     string  `gorm:"column:full_name;not null"`
	AddressLine1 string  `gorm:"column:address_line1;not null"`
	AddressLine2 *string `gorm:"column:address_line2"`
	City         string  `gorm:"column:city;not null"`
	State        string  `gorm:"column:state;not null"`
	PostalCode   string  `gorm:"column:postal_code;not null"`
	Country      string  `gorm:"column:country;not null"`
}

// Order is the immutable record of a checkout; only Status changes afterwards.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Shipping        ShippingAddress   `gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentIntentID *string           `gorm:"column:payment_intent_id"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}
