package gateway

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists account profiles.
type ProfileRepository struct {
	repo.Base
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{Base: repo.NewBase(db)}
}

func (r *ProfileRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.DB(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// UpsertProfile inserts the profile or overwrites every editable column.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "full_name", "phone",
			"address_line1", "address_line2", "city", "state", "postal_code", "country",
			"updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
