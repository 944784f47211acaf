package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

type repository interface {
	ListOrders(ctx context.Context, f gateway.OrderFilter) ([]models.Order, error)
	ListOrderItemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderItem, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error
}

// Service exposes order history and administrative status changes.
type Service interface {
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	AdminList(ctx context.Context, input AdminListInput) (*OrderList, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

// AdminListInput filters the admin order listing. From and To are inclusive.
type AdminListInput struct {
	Status *enums.OrderStatus
	From   *time.Time
	To     *time.Time
	Params pagination.Params
}

type service struct {
	repo repository
	logg *logger.Logger
}

// NewService builds the orders service.
func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return s.list(ctx, gateway.OrderFilter{UserID: &userID}, params)
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*OrderList, error) {
	filter := gateway.OrderFilter{Status: input.Status}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *input.Status)
	}
	if input.From != nil || input.To != nil {
		if input.From != nil && input.To != nil && input.To.Before(*input.From) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end is before its start")
		}
		filter.Range = &gateway.DateRange{From: input.From, To: input.To}
	}
	return s.list(ctx, filter, input.Params)
}

func (s *service) list(ctx context.Context, filter gateway.OrderFilter, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor
	filter.Limit = pagination.LimitWithBuffer(params.Limit)

	rows, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load orders")
	}
	page := pagination.Paginate(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, o := range page.Items {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.ListOrderItemsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load orders")
	}

	out := &OrderList{Orders: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, o := range page.Items {
		out.Orders = append(out.Orders, toOrderDTO(o, items[o.ID]))
	}
	return out, nil
}

// UpdateStatus applies an allowed status transition. The write only lands if
// the order is still in the status that was read.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", next)
	}
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status cannot change that way").
			WithDetails(map[string]any{"from": order.Status, "to": next})
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, next); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order was updated by someone else; reload and retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to update order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"from": order.Status.String(),
		"to":   next.String(),
	})
	s.logg.Info(logCtx, "order status updated")

	updated, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*updated, updated.Items)
	return &dto, nil
}

func (s *service) find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load order")
	}
	return order, nil
}
