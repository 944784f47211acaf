// Package gatewaytest opens throwaway SQLite databases carrying the storefront schema.
package gatewaytest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns an isolated in-memory database migrated with every storefront model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Profile{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// SeedProduct inserts an active product priced at price with the given stock.
func SeedProduct(t testing.TB, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:          name,
		Slug:          fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedOrder inserts an order with the given status, total and creation time.
func SeedOrder(t testing.TB, db *gorm.DB, userID uuid.UUID, status, total string, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		UserID:      userID,
		Status:      enums.OrderStatus(status),
		TotalAmount: decimal.RequireFromString(total),
		Shipping: models.ShippingAddress{
			FullName: "Test Shopper", AddressLine1: "1 Main St", City: "Austin",
			State: "TX", PostalCode: "78701", Country: "US",
		},
		CreatedAt: createdAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}
