package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type orderSource interface {
	ListOrders(ctx context.Context, f gateway.OrderFilter) ([]models.Order, error)
	ListOrderItems(ctx context.Context, orderID *uuid.UUID) ([]models.OrderItem, error)
}

type productSource interface {
	ListProducts(ctx context.Context, f gateway.ProductFilter) ([]models.Product, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// Dashboard is the admin overview.
type Dashboard struct {
	Stats        Stats         `json:"stats"`
	TopSellers   []TopSeller   `json:"top_sellers"`
	RecentOrders []RecentOrder `json:"recent_orders"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// Service provides read-only admin reports.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	// Invalidate drops the cached dashboard after a write that changes it.
	Invalidate(ctx context.Context)
}

type service struct {
	orders   orderSource
	products productSource
	cache    cache
	logg     *logger.Logger
	cfg      config.AnalyticsConfig
	loc      *time.Location
	now      func() time.Time
}

// NewService builds the dashboard service. cache may be nil.
func NewService(orders orderSource, products productSource, c cache, logg *logger.Logger, cfg config.AnalyticsConfig) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if products == nil {
		return nil, fmt.Errorf("product source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &service{
		orders:   orders,
		products: products,
		cache:    c,
		logg:     logg,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}

	var (
		orders   []models.Order
		products []models.Product
		items    []models.OrderItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orders.ListOrders(gctx, gateway.OrderFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.products.ListProducts(gctx, gateway.ProductFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.orders.ListOrderItems(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logg.Error(ctx, "dashboard fetch failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load dashboard")
	}

	now := s.now()
	dashboard := &Dashboard{
		Stats:        ComputeStats(orders, products, now, s.loc, s.cfg.LowStockThreshold),
		TopSellers:   TopSellers(items, s.cfg.TopSellersLimit),
		RecentOrders: RecentOrders(orders, CountItems(items), s.cfg.RecentOrdersLimit),
		GeneratedAt:  now.UTC(),
	}
	s.store(ctx, dashboard)
	return dashboard, nil
}

func (s *service) cached(ctx context.Context) (*Dashboard, bool) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		if !redis.IsMiss(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache read failed")
		}
		return nil, false
	}
	var dashboard Dashboard
	if err := json.Unmarshal([]byte(raw), &dashboard); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache entry unreadable")
		return nil, false
	}
	return &dashboard, true
}

func (s *service) store(ctx context.Context, dashboard *Dashboard) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(dashboard)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard encode failed")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(), string(payload), s.cfg.CacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache write failed")
	}
}

func (s *service) Invalidate(ctx context.Context) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache invalidation failed")
	}
}

func (s *service) cacheKey() string {
	return s.cache.CacheKey("admin", "dashboard")
}
