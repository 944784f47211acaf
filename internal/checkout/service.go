package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Steps that can fail after the order row exists.
const (
	StepInsertOrderItems = "insert_order_items"
	StepClearCart        = "clear_cart"
)

type orderWriter interface {
	InsertOrder(ctx context.Context, in gateway.OrderInsert) (uuid.UUID, error)
	InsertOrderItems(ctx context.Context, items []gateway.OrderItemInsert) error
}

type profileLoader interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Service turns a cart into an order.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, store *cart.Store, address *Address) (*Receipt, error)
}

// Receipt describes a placed order.
type Receipt struct {
	OrderID     uuid.UUID
	TotalAmount decimal.Decimal
	ItemCount   int
	Notice      cart.Notice
}

var placedNotice = cart.Notice{
	Title:       "Order Placed Successfully",
	Description: "Thank you for your order! We'll send you a confirmation email.",
	Variant:     enums.NoticeVariantDefault,
}

const placeOrderFailed = "Failed to place order. Please try again."

type service struct {
	orders   orderWriter
	profiles profileLoader
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
}

// NewService builds the checkout service. profiles may be nil, in which case an
// address is required on every submission.
func NewService(orders orderWriter, profiles profileLoader, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   orders,
		profiles: profiles,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Submit writes the order header, then its lines, then clears the cart. Each step
// runs only after the previous one succeeded, while the cart is held exclusively
// and freshly reloaded. The cart is checked before the shipping address.
// A failure after the header exists is reported as a partial failure carrying the
// order id; the cart is left intact and the order is not rolled back.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, store *cart.Store, address *Address) (*Receipt, error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveDuration(s.now().Sub(started))
	}()

	if userID == uuid.Nil || store == nil || store.UserID() != userID {
		s.metrics.IncOutcome(metrics.CheckoutResultRejected)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	var receipt *Receipt
	err := store.Exclusive(ctx, func(ctx context.Context, locked *cart.Locked) error {
		view := locked.View()
		lines, err := snapshotLines(view)
		if err != nil {
			return err
		}
		addr, err := s.resolveAddress(ctx, userID, address)
		if err != nil {
			return err
		}

		orderID, err := s.orders.InsertOrder(ctx, gateway.OrderInsert{
			UserID:      userID,
			TotalAmount: view.TotalPrice,
			Shipping:    addr.shipping(),
		})
		if err != nil {
			s.logg.Error(ctx, "checkout order insert failed", err)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, placeOrderFailed)
		}
		ctx = s.logg.WithOrderID(ctx, orderID.String())

		for i := range lines {
			lines[i].OrderID = orderID
		}
		if err := s.orders.InsertOrderItems(ctx, lines); err != nil {
			return s.partial(ctx, StepInsertOrderItems, orderID, err, placeOrderFailed)
		}

		if err := locked.Clear(ctx); err != nil {
			return s.partial(ctx, StepClearCart, orderID, err, "Your order was placed but the cart could not be cleared")
		}

		receipt = &Receipt{
			OrderID:     orderID,
			TotalAmount: view.TotalPrice,
			ItemCount:   view.TotalItems,
			Notice:      placedNotice,
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.IncOutcome(metrics.CheckoutResultSuccess)
	s.logg.Info(s.logg.WithOrderID(ctx, receipt.OrderID.String()), "order placed")
	return receipt, nil
}

func (s *service) resolveAddress(ctx context.Context, userID uuid.UUID, address *Address) (Address, error) {
	if address == nil {
		if s.profiles == nil {
			return Address{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
		}
		profile, err := s.profiles.FindProfile(ctx, userID)
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			return Address{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load saved address")
		}
		saved := AddressFromProfile(profile)
		address = &saved
	}
	addr := address.normalized()
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

func (s *service) partial(ctx context.Context, step string, orderID uuid.UUID, cause error, msg string) error {
	s.metrics.IncPartialFailure(step)
	s.logg.Error(s.logg.WithField(ctx, "step", step), "checkout partially applied", cause)
	return pkgerrors.Wrap(pkgerrors.CodePartialFailure, cause, msg).WithDetails(map[string]any{
		"step":     step,
		"order_id": orderID.String(),
	})
}

func (s *service) recordFailure(err error) {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodePartialFailure):
		s.metrics.IncOutcome(metrics.CheckoutResultPartial)
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation), pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized):
		s.metrics.IncOutcome(metrics.CheckoutResultRejected)
	default:
		s.metrics.IncOutcome(metrics.CheckoutResultFailed)
	}
}

// snapshotLines copies each cart line's product name and price. The OrderID is
// filled in once the header exists.
func snapshotLines(view cart.View) ([]gateway.OrderItemInsert, error) {
	if view.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines := make([]gateway.OrderItemInsert, 0, len(view.Items))
	for _, item := range view.Items {
		if item.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a product in your cart is no longer available").
				WithDetails(map[string]any{"item_id": item.ID.String()})
		}
		productID := item.ProductID
		lines = append(lines, gateway.OrderItemInsert{
			ProductID:    &productID,
			ProductName:  item.Product.Name,
			ProductPrice: item.Product.Price,
			Quantity:     item.Quantity,
		})
	}
	return lines, nil
}
