package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/profiles"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type updateProfileRequest struct {
	Email        string `json:"email" validate:"omitempty,email,max=320"`
	FullName     string `json:"full_name" validate:"max=200"`
	Phone        string `json:"phone" validate:"max=40"`
	AddressLine1 string `json:"address_line1" validate:"max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
}

func (p updateProfileRequest) toInput() profiles.UpdateInput {
	return profiles.UpdateInput{
		Email:        validators.SanitizeString(p.Email, 320),
		FullName:     validators.SanitizeString(p.FullName, 200),
		Phone:        validators.SanitizeString(p.Phone, 40),
		AddressLine1: validators.SanitizeString(p.AddressLine1, 200),
		AddressLine2: validators.SanitizeString(p.AddressLine2, 200),
		City:         validators.SanitizeString(p.City, 100),
		State:        validators.SanitizeString(p.State, 100),
		PostalCode:   validators.SanitizeString(p.PostalCode, 20),
		Country:      validators.SanitizeString(p.Country, 100),
	}
}

// ProfileFetch returns the signed-in user's profile.
func ProfileFetch(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ProfileUpdate replaces the signed-in user's profile fields.
func ProfileUpdate(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Update(r.Context(), userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}
