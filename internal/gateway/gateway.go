// Package gateway is the remote store the cart, checkout and reporting flows talk to.
// Every cart and order mutation is scoped to the owning user; a row owned by someone
// else behaves exactly like a missing row.
package gateway

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("gateway: row not found")

// Gateway groups the repositories backed by one connection.
type Gateway struct {
	CartItems *CartItemRepository
	Orders    *OrderRepository
	Products  *ProductRepository
	Profiles  *ProfileRepository
}

// New binds every repository to db.
func New(db *gorm.DB) *Gateway {
	return &Gateway{
		CartItems: NewCartItemRepository(db),
		Orders:    NewOrderRepository(db),
		Products:  NewProductRepository(db),
		Profiles:  NewProfileRepository(db),
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
