package repositories

import (
	"fmt"

	"biblio/internal/apperrors"
	"biblio/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAPIKeyRepository is a GORM implementation of APIKeyRepository.
type GORMAPIKeyRepository struct {
	db *gorm.DB
}

// NewGORMAPIKeyRepository creates a new instance of GORMAPIKeyRepository bound
// to the given transaction.
func NewGORMAPIKeyRepository(db *gorm.DB) *GORMAPIKeyRepository {
	return &GORMAPIKeyRepository{db: db}
}

// Create inserts an API key and returns the generated identifier.
func (r *GORMAPIKeyRepository) Create(key *models.APIKey) (string, error) {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if err := r.db.Create(key).Error; err != nil {
		return "", fmt.Errorf("failed to create api key: %w", err)
	}
	return key.ID, nil
}

// GetByID retrieves an API key by ID, or nil when absent.
func (r *GORMAPIKeyRepository) GetByID(id string) (*models.APIKeyDTO, error) {
	return takeOneAPIKey(r.db, "id = ?", id)
}

// GetByKey retrieves an API key by its token string, or nil when absent.
func (r *GORMAPIKeyRepository) GetByKey(key string) (*models.APIKeyDTO, error) {
	return takeOneAPIKey(r.db, "key = ?", key)
}

// GetAllByUser returns all keys owned by the user.
func (r *GORMAPIKeyRepository) GetAllByUser(userID string) ([]models.APIKeyDTO, error) {
	var keys []models.APIKey
	if err := r.db.Where("user_id = ?", userID).Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys for user %s: %w", userID, err)
	}
	dtos := make([]models.APIKeyDTO, 0, len(keys))
	for i := range keys {
		dtos = append(dtos, *keys[i].ToDTO())
	}
	return dtos, nil
}

// DeleteByID removes the key. Absent match is not an error at this layer.
func (r *GORMAPIKeyRepository) DeleteByID(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&models.APIKey{}).Error; err != nil {
		return fmt.Errorf("failed to delete api key %s: %w", id, err)
	}
	return nil
}

func takeOneAPIKey(db *gorm.DB, query string, args ...any) (*models.APIKeyDTO, error) {
	var keys []models.APIKey
	if err := db.Where(query, args...).Limit(2).Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to query api key: %w", err)
	}
	switch len(keys) {
	case 0:
		return nil, nil
	case 1:
		return keys[0].ToDTO(), nil
	default:
		return nil, apperrors.Internal("multiple api keys matched a unique filter", nil)
	}
}
