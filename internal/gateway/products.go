package gateway

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows ListProducts. The zero value lists every product, newest first.
type ProductFilter struct {
	ActiveOnly   bool
	FeaturedOnly bool
	CategorySlug string
	Sort         enums.ProductSort
	Limit        int
}

// ProductRepository persists the catalog.
type ProductRepository struct {
	repo.Base
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{Base: repo.NewBase(db)}
}

// WithTx scopes the repository to tx.
func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{Base: r.Base.WithTx(tx)}
}

func (r *ProductRepository) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := r.DB(ctx).Model(&models.Product{}).Preload("Category")
	if f.ActiveOnly {
		q = q.Where("products.is_active = ?", true)
	}
	if f.FeaturedOnly {
		q = q.Where("products.is_featured = ?", true)
	}
	if f.CategorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", f.CategorySlug)
	}
	switch f.Sort {
	case enums.ProductSortPriceAsc:
		q = q.Order("products.price ASC")
	case enums.ProductSortPriceDesc:
		q = q.Order("products.price DESC")
	case enums.ProductSortName:
		q = q.Order("products.name ASC")
	default:
		q = q.Order("products.created_at DESC")
	}
	q = q.Order("products.id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Preload("Category").Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *ProductRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Preload("Category").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// SlugTaken reports whether slug belongs to a product other than exceptID.
func (r *ProductRepository) SlugTaken(ctx context.Context, slug string, exceptID *uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if exceptID != nil {
		q = q.Where("id <> ?", *exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return count > 0, nil
}

// CreateProduct inserts every column, so false flags are not replaced by column defaults.
func (r *ProductRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := r.DB(ctx).Select("*").Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// SaveProduct writes every column of an existing product.
func (r *ProductRepository) SaveProduct(ctx context.Context, product *models.Product) error {
	res := r.DB(ctx).Model(product).Select("*").Omit("id", "created_at", clause.Associations).Updates(product)
	if res.Error != nil {
		return fmt.Errorf("save product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.DB(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *ProductRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}
