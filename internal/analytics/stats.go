package analytics

import (
	"sort"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stats are the headline dashboard figures.
type Stats struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	TotalProducts     int             `json:"total_products"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RevenueChange     decimal.Decimal `json:"revenue_change"`
	OrdersToday       int             `json:"orders_today"`
	PendingOrders     int             `json:"pending_orders"`
	LowStockProducts  int             `json:"low_stock_products"`
}

// TopSeller aggregates every order line sharing a product name.
type TopSeller struct {
	Name    string          `json:"name"`
	Sold    int             `json:"sold"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RecentOrder is a dashboard row for one of the newest orders.
type RecentOrder struct {
	ID          uuid.UUID         `json:"id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ItemsCount  int               `json:"items_count"`
}

// ComputeStats folds the full order and product history into Stats. Revenue
// excludes cancelled orders; ordersToday counts every status.
func ComputeStats(orders []models.Order, products []models.Product, now time.Time, loc *time.Location, lowStockThreshold int) Stats {
	if loc == nil {
		loc = time.Local
	}
	dayStart, dayEnd := dayBounds(now, loc)
	last7From := now.AddDate(0, 0, -7)
	prev7From := now.AddDate(0, 0, -14)

	stats := Stats{
		TotalRevenue:      decimal.Zero,
		TotalOrders:       len(orders),
		TotalProducts:     len(products),
		AverageOrderValue: decimal.Zero,
	}
	last7, prev7 := decimal.Zero, decimal.Zero
	qualifying := 0

	for _, o := range orders {
		created := o.CreatedAt
		if !created.Before(dayStart) && !created.After(dayEnd) {
			stats.OrdersToday++
		}
		if o.Status == enums.OrderStatusPending {
			stats.PendingOrders++
		}
		if !o.Status.CountsAsRevenue() {
			continue
		}
		qualifying++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		switch {
		case !created.Before(last7From):
			last7 = last7.Add(o.TotalAmount)
		case !created.Before(prev7From):
			prev7 = prev7.Add(o.TotalAmount)
		}
	}

	for _, p := range products {
		if p.StockQuantity < lowStockThreshold {
			stats.LowStockProducts++
		}
	}

	if qualifying > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(qualifying)))
	}
	stats.RevenueChange = RevenueChange(last7, prev7)
	return stats
}

// RevenueChange is the percent change from prev7 to last7. The quotient is left
// unrounded; formatting is the client's concern.
// A zero baseline yields 100 when there is new revenue and 0 otherwise.
func RevenueChange(last7, prev7 decimal.Decimal) decimal.Decimal {
	if prev7.IsPositive() {
		return last7.Sub(prev7).Mul(hundred).Div(prev7)
	}
	if last7.IsPositive() {
		return hundred
	}
	return decimal.Zero
}

// TopSellers groups lines by product name and returns the highest earners.
// Equal revenue keeps first-seen order.
func TopSellers(items []models.OrderItem, limit int) []TopSeller {
	index := map[string]int{}
	sellers := []TopSeller{}
	for _, item := range items {
		i, ok := index[item.ProductName]
		if !ok {
			i = len(sellers)
			index[item.ProductName] = i
			sellers = append(sellers, TopSeller{Name: item.ProductName, Revenue: decimal.Zero})
		}
		sellers[i].Sold += item.Quantity
		sellers[i].Revenue = sellers[i].Revenue.Add(item.LineTotal())
	}

	sort.SliceStable(sellers, func(a, b int) bool {
		return sellers[a].Revenue.GreaterThan(sellers[b].Revenue)
	})
	if limit >= 0 && len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers
}

// RecentOrders takes the first limit orders, which must already be newest first.
func RecentOrders(orders []models.Order, itemCounts map[uuid.UUID]int, limit int) []RecentOrder {
	if limit >= 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	out := make([]RecentOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, RecentOrder{
			ID:          o.ID,
			TotalAmount: o.TotalAmount,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
			ItemsCount:  itemCounts[o.ID],
		})
	}
	return out
}

// CountItems returns the number of lines per order.
func CountItems(items []models.OrderItem) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		counts[item.OrderID]++
	}
	return counts
}

// dayBounds returns the first and last instant of now's calendar day in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
