package services_test

import (
	"context"
	"testing"

	"biblio/internal/gbooks"
	"biblio/internal/models"
	"biblio/internal/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// seedUser persists a user in the store and returns its generated ID.
func seedUser(t *testing.T, store *repositories.MemoryStore, user *models.User) string {
	t.Helper()
	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	id, err := uow.Users().Create(user)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return id
}

// seedBook persists a book in the store and returns its generated ID.
func seedBook(t *testing.T, store *repositories.MemoryStore, book *models.Book) string {
	t.Helper()
	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	id, err := uow.Books().Create(book)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return id
}

// seedAPIKey persists an API key in the store and returns its generated ID.
func seedAPIKey(t *testing.T, store *repositories.MemoryStore, key *models.APIKey) string {
	t.Helper()
	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	id, err := uow.APIKeys().Create(key)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return id
}

// loadUser reads a user back from the store.
func loadUser(t *testing.T, store *repositories.MemoryStore, id string) *models.UserDTO {
	t.Helper()
	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	user, err := uow.Users().GetByID(id)
	require.NoError(t, err)
	return user
}

// MockCatalog is a testify mock of the external metadata client.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByID(ctx context.Context, gbID string) (*models.BookImport, error) {
	args := m.Called(ctx, gbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookImport), args.Error(1)
}

func (m *MockCatalog) Search(ctx context.Context, q gbooks.SearchQuery) ([]models.BookImport, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookImport), args.Error(1)
}

// MockPublisher is a testify mock of the event publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, payload map[string]any) error {
	args := m.Called(routingKey, payload)
	return args.Error(0)
}
