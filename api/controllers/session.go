package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartSessions interface {
	Open(ctx context.Context, userID uuid.UUID) (*cartsvc.Store, error)
	Close(userID uuid.UUID)
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string, expiresAt time.Time) error
}

type sessionResponse struct {
	UserID uuid.UUID    `json:"user_id"`
	Role   string       `json:"role"`
	Cart   cartdto.Cart `json:"cart"`
}

// SessionOpen starts the signed-in user's cart session and returns the loaded cart.
// A failed load still opens the session; the cart reloads on next access.
func SessionOpen(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := sessions.Open(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(r.Context(), "session.opened")
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			UserID: userID,
			Role:   middleware.RoleFromContext(r.Context()),
			Cart:   cartdto.NewCart(store.View()),
		})
	}
}

// SessionClose signs the user out: the cart session is torn down, discarding
// in-flight results, and the access token is revoked until it expires.
func SessionClose(sessions cartSessions, revoker sessionRevoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessions.Close(userID)

		if claims, ok := middleware.SessionFromContext(r.Context()); ok && revoker != nil && claims.AccessID != "" {
			if err := revoker.Revoke(r.Context(), claims.AccessID, time.Unix(claims.ExpiresAt, 0)); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
				return
			}
		}

		if logg != nil {
			logg.Info(r.Context(), "session.closed")
		}

		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}
