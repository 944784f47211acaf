package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderInsert is the payload for a new order header. Status is always pending.
type OrderInsert struct {
	UserID      uuid.UUID
	TotalAmount decimal.Decimal
	Shipping    models.ShippingAddress
}

// OrderItemInsert is one snapshot line of an order.
type OrderItemInsert struct {
	OrderID      uuid.UUID
	ProductID    *uuid.UUID
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
}

// DateRange bounds created_at. A nil From or To leaves that side open; both ends are inclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// OrderFilter narrows ListOrders. The zero value lists every order, newest first.
type OrderFilter struct {
	UserID *uuid.UUID
	Range  *DateRange
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

// OrderRepository persists orders and their snapshot lines.
type OrderRepository struct {
	repo.Base
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{Base: repo.NewBase(db)}
}

func (r *OrderRepository) InsertOrder(ctx context.Context, in OrderInsert) (uuid.UUID, error) {
	row := models.Order{
		UserID:      in.UserID,
		Status:      enums.OrderStatusPending,
		TotalAmount: in.TotalAmount,
		Shipping:    in.Shipping,
	}
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("insert order: %w", err)
	}
	return row.ID, nil
}

// InsertOrderItems writes all lines in one statement.
func (r *OrderRepository) InsertOrderItems(ctx context.Context, items []OrderItemInsert) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.OrderItem, 0, len(items))
	for _, in := range items {
		rows = append(rows, models.OrderItem{
			OrderID:      in.OrderID,
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			ProductPrice: in.ProductPrice,
			Quantity:     in.Quantity,
		})
	}
	if err := r.DB(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// ListOrders returns orders newest first. Limit 0 means no limit.
func (r *OrderRepository) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := r.DB(ctx).Model(&models.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Range != nil {
		if f.Range.From != nil {
			q = q.Where("created_at >= ?", *f.Range.From)
		}
		if f.Range.To != nil {
			q = q.Where("created_at <= ?", *f.Range.To)
		}
	}
	if f.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", f.Cursor.CreatedAt, f.Cursor.CreatedAt, f.Cursor.ID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListOrderItems returns the lines of one order, or of every order when orderID is nil.
func (r *OrderRepository) ListOrderItems(ctx context.Context, orderID *uuid.UUID) ([]models.OrderItem, error) {
	q := r.DB(ctx).Model(&models.OrderItem{})
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}
	var items []models.OrderItem
	if err := q.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}

// ListOrderItemsFor returns the lines of the given orders keyed by order id.
func (r *OrderRepository) ListOrderItemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderItem, error) {
	out := make(map[uuid.UUID][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var items []models.OrderItem
	err := r.DB(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, nil
}

func (r *OrderRepository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order from one status to another. It returns ErrNotFound when
// the order is missing or no longer in the from status.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
