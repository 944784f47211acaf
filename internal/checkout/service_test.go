package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/internal/gateway/gatewaytest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func validAddress() *Address {
	return &Address{
		FullName:     "Ada Lovelace",
		AddressLine1: "12 Analytical Way",
		City:         "London",
		State:        "LDN",
		PostalCode:   "N1 9GU",
		Country:      "UK",
	}
}

type fixture struct {
	db      *gorm.DB
	gw      *gateway.Gateway
	userID  uuid.UUID
	store   *cart.Store
	a, b    models.Product
	reg     *prometheus.Registry
	metrics *metrics.CheckoutMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := gatewaytest.Open(t)
	gw := gateway.New(db)
	userID := uuid.New()
	reg := prometheus.NewRegistry()

	f := &fixture{
		db:      db,
		gw:      gw,
		userID:  userID,
		store:   cart.NewStore(gw.CartItems, userID, nil, nil),
		a:       gatewaytest.SeedProduct(t, db, "Product A", "20.00", 10),
		b:       gatewaytest.SeedProduct(t, db, "Product B", "35.00", 10),
		reg:     reg,
		metrics: metrics.NewCheckoutMetrics(reg),
	}
	ctx := context.Background()
	_, err := f.store.Add(ctx, f.a.ID, 2)
	require.NoError(t, err)
	_, err = f.store.Add(ctx, f.b.ID, 1)
	require.NoError(t, err)
	return f
}

func (f *fixture) service(t *testing.T, orders orderWriter) Service {
	t.Helper()
	if orders == nil {
		orders = f.gw.Orders
	}
	svc, err := NewService(orders, f.gw.Profiles, testLogger(), f.metrics)
	require.NoError(t, err)
	return svc
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestSubmitMaterializesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view := f.store.View()
	require.Equal(t, 3, view.TotalItems)
	require.True(t, view.TotalPrice.Equal(decimal.RequireFromString("75.00")))

	receipt, err := f.service(t, nil).Submit(ctx, f.userID, f.store, validAddress())
	require.NoError(t, err)
	assert.Equal(t, "Order Placed Successfully", receipt.Notice.Title)
	assert.True(t, receipt.TotalAmount.Equal(decimal.RequireFromString("75.00")))
	assert.Equal(t, 3, receipt.ItemCount)

	order, err := f.gw.Orders.FindOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("75.00")))
	assert.Equal(t, "Ada Lovelace", order.Shipping.FullName)
	assert.Nil(t, order.Shipping.AddressLine2)
	require.Len(t, order.Items, 2)

	byName := map[string]models.OrderItem{}
	for _, item := range order.Items {
		byName[item.ProductName] = item
	}
	assert.True(t, byName["Product A"].ProductPrice.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 2, byName["Product A"].Quantity)
	assert.True(t, byName["Product B"].ProductPrice.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, 1, byName["Product B"].Quantity)

	assert.True(t, f.store.View().IsEmpty())
	rows, err := f.gw.CartItems.ListCartItems(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmitRejectsEmptyCartBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Clear(ctx))

	_, err := f.service(t, nil).Submit(ctx, f.userID, f.store, validAddress())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "cart is empty", pkgerrors.As(err).Message())
	assert.Zero(t, f.countOrders(t))
}

func TestSubmitRejectsMissingUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.service(t, nil).Submit(context.Background(), uuid.Nil, f.store, validAddress())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.service(t, nil).Submit(context.Background(), uuid.New(), f.store, validAddress())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, f.countOrders(t))
}

func TestSubmitValidatesAddress(t *testing.T) {
	f := newFixture(t)
	addr := validAddress()
	addr.City = "   "

	_, err := f.service(t, nil).Submit(context.Background(), f.userID, f.store, addr)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["city"])
	assert.Zero(t, f.countOrders(t))
	assert.Len(t, f.store.View().Items, 2)
}

func TestSubmitFallsBackToProfileAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, line1, city, state, postal, country := "Grace Hopper", "1 Navy Yard", "Arlington", "VA", "22202", "US"
	require.NoError(t, f.gw.Profiles.UpsertProfile(ctx, &models.Profile{
		ID: f.userID, FullName: &name, AddressLine1: &line1, City: &city,
		State: &state, PostalCode: &postal, Country: &country,
	}))

	receipt, err := f.service(t, nil).Submit(ctx, f.userID, f.store, nil)
	require.NoError(t, err)
	order, err := f.gw.Orders.FindOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", order.Shipping.FullName)
	assert.Equal(t, "Arlington", order.Shipping.City)
}

func TestSubmitWithoutAddressOrProfileIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.service(t, nil).Submit(context.Background(), f.userID, f.store, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.countOrders(t))
}

func TestSubmitOrderInsertFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	writer := &failingWriter{next: f.gw.Orders, orderErr: errors.New("connection refused")}

	_, err := f.service(t, writer).Submit(context.Background(), f.userID, f.store, validAddress())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, placeOrderFailed, pkgerrors.As(err).Message())
	assert.Zero(t, f.countOrders(t))
	assert.Len(t, f.store.View().Items, 2)
}

func TestSubmitItemsFailureIsPartialAndKeepsCart(t *testing.T) {
	f := newFixture(t)
	writer := &failingWriter{next: f.gw.Orders, itemsErr: errors.New("permission denied")}

	_, err := f.service(t, writer).Submit(context.Background(), f.userID, f.store, validAddress())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePartialFailure, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, StepInsertOrderItems, details["step"])

	orderID, err := uuid.Parse(details["order_id"].(string))
	require.NoError(t, err)
	order, err := f.gw.Orders.FindOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Empty(t, order.Items, "orphaned order is left as-is")

	assert.Len(t, f.store.View().Items, 2)
	rows, err := f.gw.CartItems.ListCartItems(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(mfs, "checkout_partial_failures_total", "step", StepInsertOrderItems))
	assert.Equal(t, 1.0, counterValue(mfs, "checkout_outcomes_total", "result", metrics.CheckoutResultPartial))
}

func TestSubmitClearFailureIsPartialAndKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := cart.NewStore(clearFailingCart{
		CartItemRepository: f.gw.CartItems,
		err:                errors.New("statement timeout"),
	}, f.userID, nil, nil)
	require.NoError(t, store.Load(ctx))
	before := store.View()

	_, err := f.service(t, nil).Submit(ctx, f.userID, store, validAddress())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePartialFailure, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, StepClearCart, details["step"])

	orderID, err := uuid.Parse(details["order_id"].(string))
	require.NoError(t, err)
	order, err := f.gw.Orders.FindOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("75.00")))

	after := store.View()
	assert.Equal(t, before.TotalItems, after.TotalItems)
	assert.True(t, before.TotalPrice.Equal(after.TotalPrice))
	assert.Len(t, after.Items, 2)
	rows, err := f.gw.CartItems.ListCartItems(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(mfs, "checkout_partial_failures_total", "step", StepClearCart))
}

func TestSubmitUsesCurrentPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.a.ID).
		Update("price", decimal.RequireFromString("25.00")).Error)

	receipt, err := f.service(t, nil).Submit(ctx, f.userID, f.store, validAddress())
	require.NoError(t, err)
	assert.True(t, receipt.TotalAmount.Equal(decimal.RequireFromString("85.00")), "total %s", receipt.TotalAmount)

	order, err := f.gw.Orders.FindOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("85.00")))
	for _, item := range order.Items {
		if item.ProductName == "Product A" {
			assert.True(t, item.ProductPrice.Equal(decimal.NewFromInt(25)), "price %s", item.ProductPrice)
		}
	}
}

func TestSubmitEmptyCartReportedBeforeAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Clear(ctx))

	_, err := f.service(t, nil).Submit(ctx, f.userID, f.store, nil)
	require.Error(t, err)
	assert.Equal(t, "cart is empty", pkgerrors.As(err).Message())
	assert.Zero(t, f.countOrders(t))
}

func TestSubmitMissingProductFailsBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Delete(&models.Product{}, "id = ?", f.b.ID).Error)
	require.NoError(t, f.store.Load(ctx))

	_, err := f.service(t, nil).Submit(ctx, f.userID, f.store, validAddress())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.countOrders(t))
}

func TestSnapshotSurvivesProductEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.service(t, nil).Submit(ctx, f.userID, f.store, validAddress())
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.a.ID).
		Updates(map[string]any{"name": "Renamed", "price": decimal.NewFromInt(999)}).Error)

	order, err := f.gw.Orders.FindOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	for _, item := range order.Items {
		assert.NotEqual(t, "Renamed", item.ProductName)
		assert.False(t, item.ProductPrice.Equal(decimal.NewFromInt(999)))
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, testLogger(), nil); err == nil {
		t.Fatal("expected missing order writer to fail")
	}
	if _, err := NewService(&failingWriter{}, nil, nil, nil); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}

type failingWriter struct {
	next     orderWriter
	orderErr error
	itemsErr error
}

func (w *failingWriter) InsertOrder(ctx context.Context, in gateway.OrderInsert) (uuid.UUID, error) {
	if w.orderErr != nil {
		return uuid.Nil, w.orderErr
	}
	return w.next.InsertOrder(ctx, in)
}

func (w *failingWriter) InsertOrderItems(ctx context.Context, items []gateway.OrderItemInsert) error {
	if w.itemsErr != nil {
		return w.itemsErr
	}
	return w.next.InsertOrderItems(ctx, items)
}

type clearFailingCart struct {
	*gateway.CartItemRepository
	err error
}

func (c clearFailingCart) DeleteCartItems(context.Context, uuid.UUID) error {
	return c.err
}
