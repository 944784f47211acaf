package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

type repository interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// Service reads and edits the signed-in user's profile.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*ProfileDTO, error)
}

// ProfileDTO is the account profile payload.
type ProfileDTO struct {
	ID           uuid.UUID `json:"id"`
	Email        *string   `json:"email,omitempty"`
	FullName     *string   `json:"full_name,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	AddressLine1 *string   `json:"address_line1,omitempty"`
	AddressLine2 *string   `json:"address_line2,omitempty"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty"`
	PostalCode   *string   `json:"postal_code,omitempty"`
	Country      *string   `json:"country,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateInput replaces every editable field. Blank values clear the field.
type UpdateInput struct {
	Email        string
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

type service struct {
	repo repository
}

// NewService builds the profile service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the stored profile, or an empty one for a user who never saved it.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return &ProfileDTO{ID: userID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load profile")
	}
	dto := toDTO(profile)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	profile := &models.Profile{
		ID:           userID,
		Email:        optional(input.Email),
		FullName:     optional(input.FullName),
		Phone:        optional(input.Phone),
		AddressLine1: optional(input.AddressLine1),
		AddressLine2: optional(input.AddressLine2),
		City:         optional(input.City),
		State:        optional(input.State),
		PostalCode:   optional(input.PostalCode),
		Country:      optional(input.Country),
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to update profile")
	}
	return s.Get(ctx, userID)
}

func toDTO(p *models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		Phone:        p.Phone,
		AddressLine1: p.AddressLine1,
		AddressLine2: p.AddressLine2,
		City:         p.City,
		State:        p.State,
		PostalCode:   p.PostalCode,
		Country:      p.Country,
		UpdatedAt:    p.UpdatedAt,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
