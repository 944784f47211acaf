package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog data joined onto a cart line.
type Product struct {
	ID             uuid.UUID
	Name           string
	Slug           string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	StockQuantity  int
	Images         []string
	IsActive       bool
}

// Item is one cart line. Product is nil when the referenced product no longer exists.
type Item struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Product   *Product
}

// LineTotal is price times quantity, or zero for an unjoined product.
func (i Item) LineTotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// View is a point-in-time copy of a cart with its derived totals.
type View struct {
	Items      []Item
	TotalItems int
	TotalPrice decimal.Decimal
	Loading    bool
}

// IsEmpty reports whether the cart has no lines.
func (v View) IsEmpty() bool {
	return len(v.Items) == 0
}

// Notice is a user-facing confirmation produced by a successful mutation.
type Notice struct {
	Title       string
	Description string
	Variant     enums.NoticeVariant
}

var (
	noticeAdded   = Notice{Title: "Added to cart", Description: "Item has been added to your cart", Variant: enums.NoticeVariantDefault}
	noticeRemoved = Notice{Title: "Removed", Description: "Item removed from cart", Variant: enums.NoticeVariantDefault}
)

func newView(items []Item, loading bool) View {
	out := View{
		Items:      make([]Item, len(items)),
		TotalPrice: decimal.Zero,
		Loading:    loading,
	}
	copy(out.Items, items)
	for _, item := range items {
		out.TotalItems += item.Quantity
		out.TotalPrice = out.TotalPrice.Add(item.LineTotal())
	}
	return out
}

func itemsFromRows(rows []models.CartItem) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item := Item{
			ID:        row.ID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
		}
		if row.Product != nil {
			item.Product = productFromRow(row.Product)
		}
		items = append(items, item)
	}
	return items
}

func productFromRow(p *models.Product) *Product {
	out := &Product{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Images:        append([]string(nil), p.Images...),
		IsActive:      p.IsActive,
	}
	if p.CompareAtPrice.Valid {
		v := p.CompareAtPrice.Decimal
		out.CompareAtPrice = &v
	}
	return out
}
