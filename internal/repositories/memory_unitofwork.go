package repositories

import (
	"context"
	"fmt"
	"sync"

	"biblio/internal/apperrors"
	"biblio/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of UnitOfWorkFactory, useful for
// tests and local development without a database. Each Begin snapshots the
// store; Commit publishes the snapshot back, Close without Commit discards it,
// mirroring the transactional contract of the GORM factory.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	books   map[string]models.Book
	apiKeys map[string]models.APIKey
	library map[string]models.LibraryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		books:   make(map[string]models.Book),
		apiKeys: make(map[string]models.APIKey),
		library: make(map[string]models.LibraryEntry),
	}
}

type memoryState struct {
	users   map[string]models.User
	books   map[string]models.Book
	apiKeys map[string]models.APIKey
	library map[string]models.LibraryEntry
}

func libraryKey(bookID, userID string) string {
	return bookID + "|" + userID
}

// Begin snapshots the current store state into a new unit of work.
func (s *MemoryStore) Begin(_ context.Context) (UnitOfWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &memoryState{
		users:   make(map[string]models.User, len(s.users)),
		books:   make(map[string]models.Book, len(s.books)),
		apiKeys: make(map[string]models.APIKey, len(s.apiKeys)),
		library: make(map[string]models.LibraryEntry, len(s.library)),
	}
	for k, v := range s.users {
		state.users[k] = v
	}
	for k, v := range s.books {
		state.books[k] = v
	}
	for k, v := range s.apiKeys {
		state.apiKeys[k] = v
	}
	for k, v := range s.library {
		state.library[k] = v
	}
	return &memoryUnitOfWork{store: s, state: state}, nil
}

type memoryUnitOfWork struct {
	store     *MemoryStore
	state     *memoryState
	committed bool
	closed    bool
}

func (u *memoryUnitOfWork) Users() UserRepository      { return &memoryUserRepository{u.state} }
func (u *memoryUnitOfWork) Books() BookRepository      { return &memoryBookRepository{u.state} }
func (u *memoryUnitOfWork) APIKeys() APIKeyRepository  { return &memoryAPIKeyRepository{u.state} }
func (u *memoryUnitOfWork) Library() LibraryRepository { return &memoryLibraryRepository{u.state} }

// Commit publishes the staged state back to the shared store.
func (u *memoryUnitOfWork) Commit() error {
	if u.closed {
		return fmt.Errorf("commit on a closed unit of work")
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.users = u.state.users
	u.store.books = u.state.books
	u.store.apiKeys = u.state.apiKeys
	u.store.library = u.state.library
	u.committed = true
	return nil
}

// Close discards the staged state when Commit was never called.
func (u *memoryUnitOfWork) Close() {
	u.closed = true
}

// memoryUserRepository implements UserRepository over the staged state.
type memoryUserRepository struct {
	state *memoryState
}

func (r *memoryUserRepository) Create(user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, existing := range r.state.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return "", apperrors.Conflict("user with the same username or email already exists")
		}
	}
	r.state.users[user.ID] = *user
	return user.ID, nil
}

func (r *memoryUserRepository) GetByID(id string) (*models.UserDTO, error) {
	user, ok := r.state.users[id]
	if !ok {
		return nil, nil
	}
	return user.ToDTO(false), nil
}

func (r *memoryUserRepository) GetByUsername(username string, withPassword bool) (*models.UserDTO, error) {
	for _, user := range r.state.users {
		if user.Username == username {
			return user.ToDTO(withPassword), nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) GetAllWithFilters(filters map[string]any) ([]models.UserDTO, error) {
	var dtos []models.UserDTO
	for _, user := range r.state.users {
		if banned, ok := filters["banned"]; ok && user.Banned != banned.(bool) {
			continue
		}
		dtos = append(dtos, *user.ToDTO(false))
	}
	return dtos, nil
}

func (r *memoryUserRepository) Update(id string, fields map[string]any) error {
	user, ok := r.state.users[id]
	if !ok {
		return nil
	}
	for column, value := range fields {
		switch column {
		case "name":
			user.Name = value.(string)
		case "email":
			user.Email = value.(string)
		case "username":
			user.Username = value.(string)
		case "password":
			user.Password = value.(string)
		case "banned":
			user.Banned = value.(bool)
		case "excluded_categories":
			user.ExcludedCategories = value.([]string)
		case "perm_can_view_users":
			user.Permissions.CanViewUsers = value.(bool)
		case "perm_can_add_users":
			user.Permissions.CanAddUsers = value.(bool)
		case "perm_can_ban_users":
			user.Permissions.CanBanUsers = value.(bool)
		case "perm_can_delete_users":
			user.Permissions.CanDeleteUsers = value.(bool)
		case "perm_can_edit_user_profile":
			user.Permissions.CanEditUserProfile = value.(bool)
		case "perm_can_edit_user_permissions":
			user.Permissions.CanEditUserPermissions = value.(bool)
		case "perm_super_user":
			user.Permissions.SuperUser = value.(bool)
		default:
			return fmt.Errorf("unknown user column %q", column)
		}
	}
	r.state.users[id] = user
	return nil
}

func (r *memoryUserRepository) Delete(filters map[string]any) error {
	if id, ok := filters["id"]; ok {
		delete(r.state.users, id.(string))
	}
	return nil
}

// memoryBookRepository implements BookRepository over the staged state.
type memoryBookRepository struct {
	state *memoryState
}

func (r *memoryBookRepository) Create(book *models.Book) (string, error) {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	for _, existing := range r.state.books {
		if existing.GBID == book.GBID {
			return "", apperrors.Conflict(fmt.Sprintf("book with gb_id %s already cached", book.GBID))
		}
	}
	r.state.books[book.ID] = *book
	return book.ID, nil
}

func (r *memoryBookRepository) GetByID(id string) (*models.BookDTO, error) {
	book, ok := r.state.books[id]
	if !ok {
		return nil, nil
	}
	return book.ToDTO(), nil
}

func (r *memoryBookRepository) GetByGBID(gbID string) (*models.BookDTO, error) {
	for _, book := range r.state.books {
		if book.GBID == gbID {
			return book.ToDTO(), nil
		}
	}
	return nil, nil
}

func (r *memoryBookRepository) GetByISBN(isbn string) (*models.BookDTO, error) {
	for _, book := range r.state.books {
		if book.ISBN == isbn {
			return book.ToDTO(), nil
		}
	}
	return nil, nil
}

func (r *memoryBookRepository) GetUserLibrary(userID string) ([]models.BookDTO, error) {
	var dtos []models.BookDTO
	for _, entry := range r.state.library {
		if entry.UserID != userID {
			continue
		}
		if book, ok := r.state.books[entry.BookID]; ok {
			dtos = append(dtos, *book.ToDTO())
		}
	}
	return dtos, nil
}

// memoryAPIKeyRepository implements APIKeyRepository over the staged state.
type memoryAPIKeyRepository struct {
	state *memoryState
}

func (r *memoryAPIKeyRepository) Create(key *models.APIKey) (string, error) {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	r.state.apiKeys[key.ID] = *key
	return key.ID, nil
}

func (r *memoryAPIKeyRepository) GetByID(id string) (*models.APIKeyDTO, error) {
	key, ok := r.state.apiKeys[id]
	if !ok {
		return nil, nil
	}
	return key.ToDTO(), nil
}

func (r *memoryAPIKeyRepository) GetByKey(token string) (*models.APIKeyDTO, error) {
	for _, key := range r.state.apiKeys {
		if key.Key == token {
			return key.ToDTO(), nil
		}
	}
	return nil, nil
}

func (r *memoryAPIKeyRepository) GetAllByUser(userID string) ([]models.APIKeyDTO, error) {
	var dtos []models.APIKeyDTO
	for _, key := range r.state.apiKeys {
		if key.UserID == userID {
			dtos = append(dtos, *key.ToDTO())
		}
	}
	return dtos, nil
}

func (r *memoryAPIKeyRepository) DeleteByID(id string) error {
	delete(r.state.apiKeys, id)
	return nil
}

// memoryLibraryRepository implements LibraryRepository over the staged state.
type memoryLibraryRepository struct {
	state *memoryState
}

func (r *memoryLibraryRepository) GetAssociation(bookID, userID string) (*models.LibraryEntry, error) {
	entry, ok := r.state.library[libraryKey(bookID, userID)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *memoryLibraryRepository) AddAssociation(bookID, userID string) error {
	key := libraryKey(bookID, userID)
	if _, ok := r.state.library[key]; ok {
		return apperrors.Conflict("this book is already in the user's library")
	}
	r.state.library[key] = models.LibraryEntry{BookID: bookID, UserID: userID}
	return nil
}

func (r *memoryLibraryRepository) DelAssociation(bookID, userID string) error {
	delete(r.state.library, libraryKey(bookID, userID))
	return nil
}
