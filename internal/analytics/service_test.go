package analytics

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/internal/gateway/gatewaytest"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		Timezone:          "UTC",
		LowStockThreshold: 10,
		TopSellersLimit:   5,
		RecentOrdersLimit: 10,
		CacheTTL:          time.Minute,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestDashboardAggregatesGatewayData(t *testing.T) {
	db := gatewaytest.Open(t)
	gw := gateway.New(db)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	gatewaytest.SeedProduct(t, db, "Tote", "50.00", 3)
	gatewaytest.SeedProduct(t, db, "Clutch", "30.00", 25)
	recent := gatewaytest.SeedOrder(t, db, userID, "pending", "150.00", now.Add(-time.Minute))
	old := gatewaytest.SeedOrder(t, db, userID, "delivered", "150.00", now.AddDate(0, 0, -9))
	gatewaytest.SeedOrder(t, db, userID, "cancelled", "80.00", now.AddDate(0, 0, -1))

	require.NoError(t, gw.Orders.InsertOrderItems(ctx, []gateway.OrderItemInsert{
		{OrderID: old.ID, ProductName: "Tote", ProductPrice: dec("50"), Quantity: 2},
		{OrderID: old.ID, ProductName: "Tote", ProductPrice: dec("50"), Quantity: 1},
		{OrderID: recent.ID, ProductName: "Clutch", ProductPrice: dec("30"), Quantity: 4},
	}))

	svc, err := NewService(gw.Orders, gw.Products, nil, testLogger(), testConfig())
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	stats := dashboard.Stats
	assert.True(t, stats.TotalRevenue.Equal(dec("300")), "revenue %s", stats.TotalRevenue)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.LowStockProducts)
	assert.True(t, stats.RevenueChange.IsZero(), "change %s", stats.RevenueChange)
	assert.True(t, stats.AverageOrderValue.Equal(dec("150")))

	require.Len(t, dashboard.TopSellers, 2)
	assert.Equal(t, "Tote", dashboard.TopSellers[0].Name)
	assert.Equal(t, 3, dashboard.TopSellers[0].Sold)

	require.Len(t, dashboard.RecentOrders, 3)
	assert.Equal(t, recent.ID, dashboard.RecentOrders[0].ID)
	assert.Equal(t, 1, dashboard.RecentOrders[0].ItemsCount)
}

func TestDashboardServesFromCache(t *testing.T) {
	orders := &stubOrders{}
	c := newMemoryCache()
	svc, err := NewService(orders, &stubProducts{}, c, testLogger(), testConfig())
	require.NoError(t, err)

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	second, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, orders.listCalls)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
	_, ok := c.values["sf:cache:admin:dashboard"]
	assert.True(t, ok)
}

func TestInvalidateDropsCachedDashboard(t *testing.T) {
	orders := &stubOrders{}
	c := newMemoryCache()
	svc, err := NewService(orders, &stubProducts{}, c, testLogger(), testConfig())
	require.NoError(t, err)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	svc.Invalidate(context.Background())
	assert.Empty(t, c.values)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, orders.listCalls)
}

func TestInvalidateWithoutCacheIsNoop(t *testing.T) {
	svc, err := NewService(&stubOrders{}, &stubProducts{}, nil, testLogger(), testConfig())
	require.NoError(t, err)
	svc.Invalidate(context.Background())
}

func TestDashboardSurfacesFetchErrors(t *testing.T) {
	svc, err := NewService(&stubOrders{err: errors.New("boom")}, &stubProducts{}, nil, testLogger(), testConfig())
	require.NoError(t, err)

	_, err = svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRejectsUnknownZone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err := NewService(&stubOrders{}, &stubProducts{}, nil, testLogger(), cfg)
	require.Error(t, err)
}

type stubOrders struct {
	mu        sync.Mutex
	listCalls int
	err       error
}

func (s *stubOrders) ListOrders(ctx context.Context, f gateway.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return nil, s.err
}

func (s *stubOrders) ListOrderItems(ctx context.Context, orderID *uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

type stubProducts struct{}

func (stubProducts) ListProducts(ctx context.Context, f gateway.ProductFilter) ([]models.Product, error) {
	return nil, nil
}

type memoryCache struct {
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryCache) CacheKey(parts ...string) string {
	key := "sf:cache"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
