package repositories

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork aggregates one repository per entity, all sharing a single open
// transaction. It is the only way services touch storage: begin, perform
// repository calls, commit, and Close on every path.
type UnitOfWork interface {
	Users() UserRepository
	Books() BookRepository
	APIKeys() APIKeyRepository
	Library() LibraryRepository

	// Commit persists all repository work since Begin.
	Commit() error
	// Close rolls back uncommitted work and releases the transaction. Safe
	// to defer.
	Close()
}

// UnitOfWorkFactory starts a new unit of work per logical request.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// gormUnitOfWork binds the GORM repositories to one SessionScope.
type gormUnitOfWork struct {
	scope   *SessionScope
	users   UserRepository
	books   BookRepository
	apiKeys APIKeyRepository
	library LibraryRepository
}

func (u *gormUnitOfWork) Users() UserRepository      { return u.users }
func (u *gormUnitOfWork) Books() BookRepository      { return u.books }
func (u *gormUnitOfWork) APIKeys() APIKeyRepository  { return u.apiKeys }
func (u *gormUnitOfWork) Library() LibraryRepository { return u.library }
func (u *gormUnitOfWork) Commit() error              { return u.scope.Commit() }
func (u *gormUnitOfWork) Close()                     { u.scope.Close() }

// GORMUnitOfWorkFactory creates units of work backed by the shared GORM pool.
type GORMUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGORMUnitOfWorkFactory creates a new factory over the shared pool.
func NewGORMUnitOfWorkFactory(db *gorm.DB) *GORMUnitOfWorkFactory {
	return &GORMUnitOfWorkFactory{db: db}
}

// Begin opens a transaction scope and binds one repository of each kind to it.
func (f *GORMUnitOfWorkFactory) Begin(ctx context.Context) (UnitOfWork, error) {
	scope := NewSessionScope(f.db)
	if err := scope.Open(ctx); err != nil {
		return nil, err
	}
	tx := scope.Tx()
	return &gormUnitOfWork{
		scope:   scope,
		users:   NewGORMUserRepository(tx),
		books:   NewGORMBookRepository(tx),
		apiKeys: NewGORMAPIKeyRepository(tx),
		library: NewGORMLibraryRepository(tx),
	}, nil
}
