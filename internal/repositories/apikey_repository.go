package repositories

import "biblio/internal/models"

// APIKeyRepository defines the interface for API key data access. Lookups
// return a nil DTO when no row matches.
type APIKeyRepository interface {
	Create(key *models.APIKey) (string, error)
	GetByID(id string) (*models.APIKeyDTO, error)
	GetByKey(key string) (*models.APIKeyDTO, error)
	GetAllByUser(userID string) ([]models.APIKeyDTO, error)
	DeleteByID(id string) error
}
