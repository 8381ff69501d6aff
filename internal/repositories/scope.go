package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SessionScope owns one database transaction for the duration of a logical
// request. Closing the scope rolls back anything not committed and releases
// the transaction, on every exit path.
type SessionScope struct {
	db        *gorm.DB
	tx        *gorm.DB
	committed bool
}

// NewSessionScope creates a scope bound to the shared connection pool. The
// transaction is not started until Open.
func NewSessionScope(db *gorm.DB) *SessionScope {
	return &SessionScope{db: db}
}

// Open begins the transaction. Opening an already-open scope is a programming
// error and panics rather than nesting transactions.
func (s *SessionScope) Open(ctx context.Context) error {
	if s.tx != nil {
		panic("repositories: session scope opened while already open")
	}
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	s.tx = tx
	s.committed = false
	return nil
}

// Tx returns the open transaction. Accessing it before Open is a programming
// error.
func (s *SessionScope) Tx() *gorm.DB {
	if s.tx == nil {
		panic("repositories: session scope accessed before Open")
	}
	return s.tx
}

// Commit persists all work since Open.
func (s *SessionScope) Commit() error {
	if err := s.Tx().Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.committed = true
	return nil
}

// Close releases the scope. If Commit was never called the transaction is
// rolled back, discarding all work. Safe to defer and to call twice.
func (s *SessionScope) Close() {
	if s.tx == nil {
		return
	}
	if !s.committed {
		s.tx.Rollback()
	}
	s.tx = nil
}
