package repositories

import "biblio/internal/models"

// UserRepository defines the interface for user data access. Lookups return
// a nil DTO when no row matches; the service layer decides whether absence
// is an error.
type UserRepository interface {
	Create(user *models.User) (string, error)
	GetByID(id string) (*models.UserDTO, error)
	GetByUsername(username string, withPassword bool) (*models.UserDTO, error)
	GetAllWithFilters(filters map[string]any) ([]models.UserDTO, error)
	Update(id string, fields map[string]any) error
	Delete(filters map[string]any) error
}
