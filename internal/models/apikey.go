package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey is a long-lived credential owned by a user. The token is stored as
// the lookup key itself, so the plaintext is only ever returned once, at
// creation time.
type APIKey struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Key        string    `json:"-" gorm:"uniqueIndex;type:varchar(64)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index"`
	ExpireDate time.Time `json:"expire_date"`

	gorm.Model
}

// APIKeyDTO is an immutable snapshot of an API key. Key is omitted from list
// responses and only populated on the resolution path.
type APIKeyDTO struct {
	ID         string    `json:"id"`
	Key        string    `json:"-"`
	UserID     string    `json:"user_id"`
	ExpireDate time.Time `json:"expire_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToDTO converts the storage row to a snapshot, including the stored key.
func (k *APIKey) ToDTO() *APIKeyDTO {
	return &APIKeyDTO{
		ID:         k.ID,
		Key:        k.Key,
		UserID:     k.UserID,
		ExpireDate: k.ExpireDate,
		CreatedAt:  k.CreatedAt,
	}
}
