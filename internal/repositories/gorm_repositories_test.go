package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"biblio/internal/apperrors"
	"biblio/internal/models"
	"biblio/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a fresh in-memory SQLite database per test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.SetupJoinTable(&models.User{}, "Books", &models.LibraryEntry{}))
	require.NoError(t, db.SetupJoinTable(&models.Book{}, "Users", &models.LibraryEntry{}))
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}, &models.APIKey{}, &models.LibraryEntry{}))
	return db
}

func beginUoW(t *testing.T, db *gorm.DB) repositories.UnitOfWork {
	t.Helper()
	uow, err := repositories.NewGORMUnitOfWorkFactory(db).Begin(context.Background())
	require.NoError(t, err)
	return uow
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	id, err := uow.Users().Create(&models.User{
		Name:     "Alice",
		Email:    "alice@example.com",
		Username: "alice",
		Password: "digest",
		Permissions: models.Permissions{
			CanViewUsers: true,
		},
		ExcludedCategories: []string{"Horror"},
	})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	uow.Close()

	uow = beginUoW(t, db)
	defer uow.Close()

	byID, err := uow.Users().GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)
	assert.True(t, byID.Permissions.CanViewUsers)
	assert.Equal(t, []string{"Horror"}, byID.ExcludedCategories)
	assert.Empty(t, byID.Password, "password must not leak without withPassword")

	withPassword, err := uow.Users().GetByUsername("alice", true)
	require.NoError(t, err)
	require.NotNil(t, withPassword)
	assert.Equal(t, "digest", withPassword.Password)

	absent, err := uow.Users().GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, absent, "absent user is nil, not an error")
}

func TestUserRepository_DuplicateUsernameConflicts(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	_, err := uow.Users().Create(&models.User{Name: "A", Email: "a@example.com", Username: "dup", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	uow.Close()

	uow = beginUoW(t, db)
	defer uow.Close()
	_, err = uow.Users().Create(&models.User{Name: "B", Email: "b@example.com", Username: "dup", Password: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestUserRepository_PartialUpdateLeavesOtherFields(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	id, err := uow.Users().Create(&models.User{Name: "Before", Email: "p@example.com", Username: "partial", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, uow.Users().Update(id, map[string]any{"name": "After"}))
	require.NoError(t, uow.Commit())
	uow.Close()

	uow = beginUoW(t, db)
	defer uow.Close()
	user, err := uow.Users().GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "After", user.Name)
	assert.Equal(t, "partial", user.Username)
	assert.Equal(t, "p@example.com", user.Email)
}

func TestSessionScope_RollbackOnCloseWithoutCommit(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	_, err := uow.Users().Create(&models.User{Name: "Ghost", Email: "g@example.com", Username: "ghost", Password: "x"})
	require.NoError(t, err)
	uow.Close() // never committed

	uow = beginUoW(t, db)
	defer uow.Close()
	user, err := uow.Users().GetByUsername("ghost", false)
	require.NoError(t, err)
	assert.Nil(t, user, "uncommitted work must be rolled back on close")
}

func TestSessionScope_MultiStepRollbackIsAtomic(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	actorID, err := uow.Users().Create(&models.User{
		Name: "Admin", Email: "admin@example.com", Username: "admin", Password: "x",
		Permissions: models.Permissions{SuperUser: true},
	})
	require.NoError(t, err)
	targetID, err := uow.Users().Create(&models.User{
		Name: "Target", Email: "t@example.com", Username: "target", Password: "x",
	})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	uow.Close()

	// Grant super to the target and revoke it from the actor, then abandon the
	// transaction: neither write may survive.
	uow = beginUoW(t, db)
	require.NoError(t, uow.Users().Update(targetID, map[string]any{"perm_super_user": true}))
	require.NoError(t, uow.Users().Update(actorID, map[string]any{"perm_super_user": false}))
	uow.Close()

	uow = beginUoW(t, db)
	defer uow.Close()
	actor, err := uow.Users().GetByID(actorID)
	require.NoError(t, err)
	target, err := uow.Users().GetByID(targetID)
	require.NoError(t, err)
	assert.True(t, actor.Permissions.SuperUser, "actor grant must be rolled back")
	assert.False(t, target.Permissions.SuperUser, "target grant must be rolled back")
}

func TestSessionScope_ReopenPanics(t *testing.T) {
	db := openTestDB(t)

	scope := repositories.NewSessionScope(db)
	require.NoError(t, scope.Open(context.Background()))
	defer scope.Close()

	assert.Panics(t, func() {
		_ = scope.Open(context.Background())
	})
}

func TestBookRepository_GBIDUniqueAndLookup(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	defer uow.Close()

	id, err := uow.Books().Create(&models.Book{GBID: "gb-1", ISBN: "1111111111", Title: "First"})
	require.NoError(t, err)

	_, err = uow.Books().Create(&models.Book{GBID: "gb-1", Title: "Second import of the same volume"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict), "duplicate gb_id must conflict")

	byGBID, err := uow.Books().GetByGBID("gb-1")
	require.NoError(t, err)
	require.NotNil(t, byGBID)
	assert.Equal(t, id, byGBID.ID)

	byISBN, err := uow.Books().GetByISBN("1111111111")
	require.NoError(t, err)
	require.NotNil(t, byISBN)
	assert.Equal(t, "First", byISBN.Title)
}

func TestLibraryRepository_AssociationUniqueness(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	userID, err := uow.Users().Create(&models.User{Name: "R", Email: "r@example.com", Username: "reader", Password: "x"})
	require.NoError(t, err)
	bookID, err := uow.Books().Create(&models.Book{GBID: "gb-lib"})
	require.NoError(t, err)

	require.NoError(t, uow.Library().AddAssociation(bookID, userID))
	err = uow.Library().AddAssociation(bookID, userID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict), "second association for the pair must conflict")
	uow.Close()

	uow = beginUoW(t, db)
	require.NoError(t, uow.Library().AddAssociation(bookID, userID))
	require.NoError(t, uow.Commit())
	uow.Close()

	uow = beginUoW(t, db)
	defer uow.Close()
	entry, err := uow.Library().GetAssociation(bookID, userID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	library, err := uow.Books().GetUserLibrary(userID)
	require.NoError(t, err)
	require.Len(t, library, 1)
	assert.Equal(t, "gb-lib", library[0].GBID)

	require.NoError(t, uow.Library().DelAssociation(bookID, userID))
	// Deleting an absent association is not an error.
	require.NoError(t, uow.Library().DelAssociation(bookID, userID))
}

func TestAPIKeyRepository_CRUD(t *testing.T) {
	db := openTestDB(t)

	uow := beginUoW(t, db)
	defer uow.Close()

	userID, err := uow.Users().Create(&models.User{Name: "K", Email: "k@example.com", Username: "keyowner", Password: "x"})
	require.NoError(t, err)

	id, err := uow.APIKeys().Create(&models.APIKey{Key: "secret-token", UserID: userID})
	require.NoError(t, err)

	byKey, err := uow.APIKeys().GetByKey("secret-token")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, id, byKey.ID)
	assert.Equal(t, userID, byKey.UserID)

	all, err := uow.APIKeys().GetAllByUser(userID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, uow.APIKeys().DeleteByID(id))
	gone, err := uow.APIKeys().GetByID(id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
