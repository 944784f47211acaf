package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartStores interface {
	Acquire(userID uuid.UUID) *cartsvc.Store
}

// reportCache is told when an order write makes the admin dashboard stale.
type reportCache interface {
	Invalidate(ctx context.Context)
}

// A missing shipping_address falls back to the saved profile address.
type checkoutRequest struct {
	ShippingAddress *checkout.Address `json:"shipping_address" validate:"-"`
}

type checkoutResponse struct {
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	Notice      cartdto.Notice  `json:"notice"`
}

// Checkout turns the signed-in user's cart into an order.
func Checkout(svc checkout.Service, stores cartStores, reports reportCache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || stores == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		receipt, err := svc.Submit(r.Context(), userID, stores.Acquire(userID), payload.ShippingAddress)
		if err == nil || pkgerrors.IsCode(err, pkgerrors.CodePartialFailure) {
			invalidateReports(r.Context(), reports)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:     receipt.OrderID,
			TotalAmount: receipt.TotalAmount,
			ItemCount:   receipt.ItemCount,
			Notice:      *cartdto.NewNotice(&receipt.Notice),
		})
	}
}

func invalidateReports(ctx context.Context, reports reportCache) {
	if reports != nil {
		reports.Invalidate(ctx)
	}
}
