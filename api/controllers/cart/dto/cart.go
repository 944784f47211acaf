package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Cart is the client-facing cart with derived totals.
type Cart struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Loading    bool            `json:"loading"`
}

// CartItem is one line of the cart. Product is null when the product no longer exists.
type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Product   *CartProduct    `json:"product"`
}

// CartProduct is the catalog data joined onto a line.
type CartProduct struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	StockQuantity  int              `json:"stock_quantity"`
	Images         []string         `json:"images"`
	IsActive       bool             `json:"is_active"`
}

// Notice is the toast shown after a mutation.
type Notice struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     enums.NoticeVariant `json:"variant"`
}

// CartResponse pairs the refreshed cart with an optional notice.
type CartResponse struct {
	Cart   Cart    `json:"cart"`
	Notice *Notice `json:"notice,omitempty"`
}

// NewCart maps a store view.
func NewCart(view cartsvc.View) Cart {
	items := make([]CartItem, 0, len(view.Items))
	for _, item := range view.Items {
		line := CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
		if p := item.Product; p != nil {
			images := p.Images
			if images == nil {
				images = []string{}
			}
			line.Product = &CartProduct{
				ID:             p.ID,
				Name:           p.Name,
				Slug:           p.Slug,
				Price:          p.Price,
				CompareAtPrice: p.CompareAtPrice,
				StockQuantity:  p.StockQuantity,
				Images:         images,
				IsActive:       p.IsActive,
			}
		}
		items = append(items, line)
	}
	return Cart{
		Items:      items,
		TotalItems: view.TotalItems,
		TotalPrice: view.TotalPrice,
		Loading:    view.Loading,
	}
}

// NewNotice maps a store notice; nil stays nil.
func NewNotice(n *cartsvc.Notice) *Notice {
	if n == nil {
		return nil
	}
	return &Notice{Title: n.Title, Description: n.Description, Variant: n.Variant}
}

// NewCartResponse builds the mutation response body.
func NewCartResponse(view cartsvc.View, notice *cartsvc.Notice) CartResponse {
	return CartResponse{Cart: NewCart(view), Notice: NewNotice(notice)}
}
