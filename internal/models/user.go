package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the system.
type User struct {
	ID                 string      `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name               string      `json:"name" gorm:"type:varchar(256)" validate:"required,min=1,max=256"`
	Email              string      `json:"email" gorm:"uniqueIndex;type:varchar(512)" validate:"required,email"`
	Username           string      `json:"username" gorm:"uniqueIndex;type:varchar(256)" validate:"required,min=3,max=256"`
	Password           string      `gorm:"type:varchar(512)" validate:"required,min=6"` // No json tag for security
	Banned             bool        `json:"banned"`
	Permissions        Permissions `json:"permissions" gorm:"embedded;embeddedPrefix:perm_"`
	ExcludedCategories []string    `json:"excluded_categories" gorm:"serializer:json"`

	APIKeys []APIKey `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Books   []Book   `json:"-" gorm:"many2many:library_entries;"`

	gorm.Model // CreatedAt, UpdatedAt, DeletedAt
}

// UserDTO is an immutable snapshot of a user handed to the service and API
// layers. The password hash is only populated when explicitly requested.
type UserDTO struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Username           string      `json:"username"`
	Password           string      `json:"-"`
	Banned             bool        `json:"banned"`
	Permissions        Permissions `json:"permissions"`
	ExcludedCategories []string    `json:"excluded_categories"`
	CreatedAt          time.Time   `json:"created_at"`
}

// ToDTO converts the storage row to a snapshot. The password hash is included
// only when withPassword is set, for credential verification paths.
func (u *User) ToDTO(withPassword bool) *UserDTO {
	dto := &UserDTO{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Username:           u.Username,
		Banned:             u.Banned,
		Permissions:        u.Permissions,
		ExcludedCategories: append([]string(nil), u.ExcludedCategories...),
		CreatedAt:          u.CreatedAt,
	}
	if withPassword {
		dto.Password = u.Password
	}
	return dto
}

// UserCreate is the payload for the admin-gated creation endpoint.
type UserCreate struct {
	Name        string      `json:"name" validate:"required,min=1,max=256"`
	Email       string      `json:"email" validate:"required,email"`
	Username    string      `json:"username" validate:"required,min=3,max=256"`
	Password    string      `json:"password" validate:"required,min=6"`
	Permissions Permissions `json:"permissions"`
}

// UserUpdate carries the optional fields of a partial profile update. Nil
// fields are left untouched.
type UserUpdate struct {
	Name               *string   `json:"name" validate:"omitempty,min=1,max=256"`
	Email              *string   `json:"email" validate:"omitempty,email"`
	Username           *string   `json:"username" validate:"omitempty,min=3,max=256"`
	Password           *string   `json:"password" validate:"omitempty,min=6"`
	ExcludedCategories *[]string `json:"excluded_categories"`
}

// Fields translates the patch into a column map for a partial update.
func (u *UserUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Email != nil {
		fields["email"] = *u.Email
	}
	if u.Username != nil {
		fields["username"] = *u.Username
	}
	if u.Password != nil {
		fields["password"] = *u.Password
	}
	if u.ExcludedCategories != nil {
		fields["excluded_categories"] = *u.ExcludedCategories
	}
	return fields
}
