package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"biblio/internal/apperrors"
	"biblio/internal/models"
	"biblio/internal/repositories"
)

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// APIKeyService issues, lists, resolves and deletes long-lived API keys.
type APIKeyService struct {
	uowFactory repositories.UnitOfWorkFactory
	keyLength  int
}

// NewAPIKeyService creates a new APIKeyService issuing keys of the given
// length.
func NewAPIKeyService(uowFactory repositories.UnitOfWorkFactory, keyLength int) *APIKeyService {
	return &APIKeyService{uowFactory: uowFactory, keyLength: keyLength}
}

// Create issues a new key for the actor with the given expiration and returns
// the plaintext. The plaintext is not retrievable again; list responses
// redact it.
func (s *APIKeyService) Create(ctx context.Context, actor *models.UserDTO, expireDate time.Time) (string, error) {
	today := time.Now().Truncate(24 * time.Hour)
	if expireDate.Before(today) {
		return "", apperrors.Validation("expire date must be in the future")
	}

	key, err := generateKey(s.keyLength)
	if err != nil {
		return "", err
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer uow.Close()

	_, err = uow.APIKeys().Create(&models.APIKey{
		Key:        key,
		UserID:     actor.ID,
		ExpireDate: expireDate,
	})
	if err != nil {
		return "", err
	}
	if err := uow.Commit(); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the actor's keys. The DTO's json shape never exposes the
// stored token.
func (s *APIKeyService) List(ctx context.Context, actor *models.UserDTO) ([]models.APIKeyDTO, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	keys, err := uow.APIKeys().GetAllByUser(actor.ID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ResolveUser resolves a presented key to its owner. Absent key, expired key
// and banned owner all fail Unauthorized.
func (s *APIKeyService) ResolveUser(ctx context.Context, key string) (*models.UserDTO, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	apiKey, err := uow.APIKeys().GetByKey(key)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if apiKey.ExpireDate.Before(time.Now().Truncate(24 * time.Hour)) {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := uow.Users().GetByID(apiKey.UserID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if user == nil || user.Banned {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

// Delete removes one of the actor's keys. Deleting an absent key is NotFound;
// deleting another user's key is Forbidden, checked before any mutation.
func (s *APIKeyService) Delete(ctx context.Context, actor *models.UserDTO, id string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	apiKey, err := uow.APIKeys().GetByID(id)
	if err != nil {
		return err
	}
	if apiKey == nil {
		return apperrors.ErrNotFound
	}
	if apiKey.UserID != actor.ID {
		return apperrors.ErrForbidden
	}
	if err := uow.APIKeys().DeleteByID(id); err != nil {
		return err
	}
	return uow.Commit()
}

// generateKey draws a high-entropy alphanumeric token from crypto/rand.
func generateKey(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate api key: %w", err)
		}
		buf[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
