package repositories

import (
	"errors"
	"fmt"

	"biblio/internal/apperrors"
	"biblio/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository bound to
// the given transaction.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Create inserts a new user and returns the generated identifier. A uniqueness
// violation on username or email surfaces as a CONFLICT-coded error.
func (r *GORMUserRepository) Create(user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperrors.Conflict("user with the same username or email already exists")
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// GetByID retrieves a user by ID, or nil when absent.
func (r *GORMUserRepository) GetByID(id string) (*models.UserDTO, error) {
	user, err := takeOneUser(r.db, "id = ?", id)
	if user == nil || err != nil {
		return nil, err
	}
	return user.ToDTO(false), nil
}

// GetByUsername retrieves a user by username, or nil when absent. The password
// hash is only included when withPassword is set.
func (r *GORMUserRepository) GetByUsername(username string, withPassword bool) (*models.UserDTO, error) {
	user, err := takeOneUser(r.db, "username = ?", username)
	if user == nil || err != nil {
		return nil, err
	}
	return user.ToDTO(withPassword), nil
}

// GetAllWithFilters retrieves all users matching the given column filters.
func (r *GORMUserRepository) GetAllWithFilters(filters map[string]any) ([]models.UserDTO, error) {
	var users []models.User
	if err := r.db.Where(filters).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	dtos := make([]models.UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, *users[i].ToDTO(false))
	}
	return dtos, nil
}

// Update applies a partial update; columns absent from fields stay untouched.
func (r *GORMUserRepository) Update(id string, fields map[string]any) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("user with the same username or email already exists")
		}
		return fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	return nil
}

// Delete removes users matching the filters. Matching nothing is not an error
// at this layer.
func (r *GORMUserRepository) Delete(filters map[string]any) error {
	if err := r.db.Where(filters).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	return nil
}

// takeOneUser expects at most one match; more than one on a supposedly unique
// filter is a contract violation.
func takeOneUser(db *gorm.DB, query string, args ...any) (*models.User, error) {
	var users []models.User
	if err := db.Where(query, args...).Limit(2).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return &users[0], nil
	default:
		return nil, apperrors.Internal("multiple users matched a unique filter", nil)
	}
}
