package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultFeaturedLimit is the size of the storefront's featured strip.
const DefaultFeaturedLimit = 4

type repository interface {
	ListProducts(ctx context.Context, f gateway.ProductFilter) ([]models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SlugTaken(ctx context.Context, slug string, exceptID *uuid.UUID) (bool, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Service exposes catalog browsing and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) ([]ProductDTO, error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	Categories(ctx context.Context) ([]CategoryDTO, error)

	AdminList(ctx context.Context) ([]ProductDTO, error)
	Create(ctx context.Context, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListInput filters the public catalog.
type ListInput struct {
	CategorySlug string
	Sort         enums.ProductSort
	Limit        int
}

// ProductInput is the full editable state of a product. A blank slug is
// generated from the name.
type ProductInput struct {
	Name           string
	Slug           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	CategoryID     *uuid.UUID
	StockQuantity  int
	Images         []string
	IsFeatured     bool
	IsActive       bool
}

type service struct {
	repo repository
}

// NewService constructs the catalog service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]ProductDTO, error) {
	sort := input.Sort
	if sort == "" {
		sort = enums.ProductSortNewest
	}
	if !sort.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sort %q", sort)
	}
	rows, err := s.repo.ListProducts(ctx, gateway.ProductFilter{
		ActiveOnly:   true,
		CategorySlug: strings.TrimSpace(input.CategorySlug),
		Sort:         sort,
		Limit:        input.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load products")
	}
	return toProductDTOs(rows), nil
}

func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	rows, err := s.repo.ListProducts(ctx, gateway.ProductFilter{
		ActiveOnly:   true,
		FeaturedOnly: true,
		Limit:        limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load products")
	}
	return toProductDTOs(rows), nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	row, err := s.repo.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load product")
	}
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := toProductDTO(*row)
	return &dto, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategoryDTO(row))
	}
	return out, nil
}

func (s *service) AdminList(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx, gateway.ProductFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load products")
	}
	return toProductDTOs(rows), nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	product := &models.Product{}
	if err := s.apply(ctx, product, input, nil); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, saveError(err)
	}
	return s.reload(ctx, product.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load product")
	}
	if input.Slug == "" {
		input.Slug = product.Slug
	}
	if err := s.apply(ctx, product, input, &id); err != nil {
		return nil, err
	}
	product.Category = nil
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, saveError(err)
	}
	return s.reload(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to delete product")
	}
	return nil
}

// apply validates input and copies it onto product.
func (s *service) apply(ctx context.Context, product *models.Product, input ProductInput, exceptID *uuid.UUID) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be at least 0")
	}
	if input.CompareAtPrice != nil && input.CompareAtPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare at price must be at least 0")
	}
	if input.StockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be at least 0")
	}

	taken, err := s.repo.SlugTaken(ctx, slug, exceptID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to save product")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use").WithDetails(map[string]any{"slug": slug})
	}

	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown category")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to save product")
		}
	}

	product.Name = name
	product.Slug = slug
	product.Description = nil
	if desc := strings.TrimSpace(input.Description); desc != "" {
		product.Description = &desc
	}
	product.Price = input.Price.Round(2)
	product.CompareAtPrice = decimal.NullDecimal{}
	if input.CompareAtPrice != nil {
		product.CompareAtPrice = decimal.NewNullDecimal(input.CompareAtPrice.Round(2))
	}
	product.CategoryID = input.CategoryID
	product.StockQuantity = input.StockQuantity
	product.Images = cleanImages(input.Images)
	product.IsFeatured = input.IsFeatured
	product.IsActive = input.IsActive
	return nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load product")
	}
	dto := toProductDTO(*row)
	return &dto, nil
}

func cleanImages(in []string) dbtypes.StringArray {
	out := dbtypes.StringArray{}
	for _, url := range in {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func saveError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to save product")
}
