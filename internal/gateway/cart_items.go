package gateway

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItemInsert is the payload for a new cart row.
type CartItemInsert struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

// CartItemRepository persists cart rows.
type CartItemRepository struct {
	repo.Base
}

func NewCartItemRepository(db *gorm.DB) *CartItemRepository {
	return &CartItemRepository{Base: repo.NewBase(db)}
}

// ListCartItems returns the user's cart rows joined with their product, oldest first.
// A row whose product no longer exists comes back with a nil Product.
func (r *CartItemRepository) ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return items, nil
}

func (r *CartItemRepository) InsertCartItem(ctx context.Context, in CartItemInsert) (uuid.UUID, error) {
	if in.Quantity < 1 {
		return uuid.Nil, fmt.Errorf("insert cart item: quantity must be at least 1, got %d", in.Quantity)
	}
	row := models.CartItem{
		UserID:    in.UserID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
	}
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("insert cart item: %w", err)
	}
	return row.ID, nil
}

func (r *CartItemRepository) UpdateCartItem(ctx context.Context, id, userID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("update cart item: quantity must be at least 1, got %d", quantity)
	}
	res := r.DB(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CartItemRepository) DeleteCartItem(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCartItems empties the user's cart. Clearing an empty cart is not an error.
func (r *CartItemRepository) DeleteCartItems(ctx context.Context, userID uuid.UUID) error {
	if err := r.DB(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}
