package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is an order with its snapshot lines.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          enums.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	ShippingAddress AddressDTO        `json:"shipping_address"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	Items           []OrderItemDTO    `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AddressDTO is the shipping address copied onto an order.
type AddressDTO struct {
	FullName     string  `json:"full_name"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toOrderDTO(o models.Order, items []models.OrderItem) OrderDTO {
	dto := OrderDTO{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		ShippingAddress: AddressDTO{
			FullName:     o.Shipping.FullName,
			AddressLine1: o.Shipping.AddressLine1,
			AddressLine2: o.Shipping.AddressLine2,
			City:         o.Shipping.City,
			State:        o.Shipping.State,
			PostalCode:   o.Shipping.PostalCode,
			Country:      o.Shipping.Country,
		},
		PaymentIntentID: o.PaymentIntentID,
		Items:           make([]OrderItemDTO, 0, len(items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal(),
		})
	}
	return dto
}
