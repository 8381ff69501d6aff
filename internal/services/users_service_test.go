package services_test

import (
	"context"
	"testing"

	"biblio/internal/apperrors"
	"biblio/internal/models"
	"biblio/internal/repositories"
	"biblio/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUsersService(store *repositories.MemoryStore, publisher services.EventPublisher) *services.UsersService {
	return services.NewUsersService(store, services.NewPasswordService(), publisher)
}

func TestUsersService_Create(t *testing.T) {
	store := repositories.NewMemoryStore()
	publisher := new(MockPublisher)
	publisher.On("Publish", "user.created", mock.Anything).Return(nil)
	userService := newUsersService(store, publisher)

	adminID := seedUser(t, store, &models.User{
		Name: "Admin", Email: "admin@example.com", Username: "admin", Password: "digest",
		Permissions: models.Permissions{CanAddUsers: true},
	})
	admin := loadUser(t, store, adminID)

	id, err := userService.Create(context.Background(), admin, &models.UserCreate{
		Name:     "Bob",
		Email:    "bob@example.com",
		Username: "bob",
		Password: "password123",
	})
	require.NoError(t, err)

	created := loadUser(t, store, id)
	require.NotNil(t, created)
	assert.Equal(t, "bob", created.Username)
	assert.False(t, created.Banned)
	publisher.AssertCalled(t, "Publish", "user.created", mock.Anything)
}

func TestUsersService_CreateStoresHashedPassword(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	adminID := seedUser(t, store, &models.User{
		Name: "Admin", Email: "admin@example.com", Username: "admin", Password: "digest",
		Permissions: models.Permissions{CanAddUsers: true},
	})
	admin := loadUser(t, store, adminID)

	_, err := userService.Create(context.Background(), admin, &models.UserCreate{
		Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "password123",
	})
	require.NoError(t, err)

	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	stored, err := uow.Users().GetByUsername("bob", true)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.Password)
	assert.True(t, services.NewPasswordService().Verify("password123", stored.Password))
}

func TestUsersService_CreateRequiresAddUsers(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	actorID := seedUser(t, store, &models.User{Name: "Plain", Email: "plain@example.com", Username: "plain", Password: "digest"})
	actor := loadUser(t, store, actorID)

	_, err := userService.Create(context.Background(), actor, &models.UserCreate{
		Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "password123",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUsersService_CreateDuplicateUsername(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	adminID := seedUser(t, store, &models.User{
		Name: "Admin", Email: "admin@example.com", Username: "admin", Password: "digest",
		Permissions: models.Permissions{CanAddUsers: true},
	})
	admin := loadUser(t, store, adminID)
	seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})

	_, err := userService.Create(context.Background(), admin, &models.UserCreate{
		Name: "Bob Two", Email: "bob2@example.com", Username: "bob", Password: "password123",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "same username")
}

func TestUsersService_CreateSuperUserTransfersFlag(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	// A mere add_users holder may not mint a super user.
	actorID := seedUser(t, store, &models.User{
		Name: "Actor", Email: "actor@example.com", Username: "actor", Password: "digest",
		Permissions: models.Permissions{CanAddUsers: true},
	})
	actor := loadUser(t, store, actorID)

	_, err := userService.Create(context.Background(), actor, &models.UserCreate{
		Name: "Boss", Email: "boss@example.com", Username: "boss", Password: "password123",
		Permissions: models.Permissions{SuperUser: true},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	// A super user may, and loses the flag in the same stroke.
	superID := seedUser(t, store, &models.User{
		Name: "Root", Email: "root@example.com", Username: "root", Password: "digest",
		Permissions: models.Permissions{SuperUser: true},
	})
	super := loadUser(t, store, superID)

	id, err := userService.Create(context.Background(), super, &models.UserCreate{
		Name: "Boss", Email: "boss@example.com", Username: "boss", Password: "password123",
		Permissions: models.Permissions{SuperUser: true},
	})
	require.NoError(t, err)

	assert.True(t, loadUser(t, store, id).Permissions.SuperUser)
	assert.False(t, loadUser(t, store, superID).Permissions.SuperUser)
}

func TestUsersService_GetDefaultsToSelf(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	actorID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	otherID := seedUser(t, store, &models.User{Name: "Alice", Email: "alice@example.com", Username: "alice", Password: "digest"})
	actor := loadUser(t, store, actorID)

	self, err := userService.Get(context.Background(), actor, "")
	require.NoError(t, err)
	assert.Equal(t, actorID, self.ID)

	// Viewing others needs the capability.
	_, err = userService.Get(context.Background(), actor, otherID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	viewerID := seedUser(t, store, &models.User{
		Name: "Viewer", Email: "viewer@example.com", Username: "viewer", Password: "digest",
		Permissions: models.Permissions{CanViewUsers: true},
	})
	viewer := loadUser(t, store, viewerID)

	other, err := userService.Get(context.Background(), viewer, otherID)
	require.NoError(t, err)
	assert.Equal(t, "alice", other.Username)

	_, err = userService.Get(context.Background(), viewer, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestUsersService_Edit(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	actorID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	otherID := seedUser(t, store, &models.User{Name: "Alice", Email: "alice@example.com", Username: "alice", Password: "digest"})
	actor := loadUser(t, store, actorID)

	newName := "Robert"
	excluded := []string{"horror"}
	err := userService.Edit(context.Background(), actor, "", &models.UserUpdate{
		Name:               &newName,
		ExcludedCategories: &excluded,
	})
	require.NoError(t, err)

	updated := loadUser(t, store, actorID)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, []string{"horror"}, updated.ExcludedCategories)
	assert.Equal(t, "bob@example.com", updated.Email, "untouched fields must survive a partial update")

	err = userService.Edit(context.Background(), actor, otherID, &models.UserUpdate{Name: &newName})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUsersService_EditRehashesPassword(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	actorID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	actor := loadUser(t, store, actorID)

	newPassword := "newpassword"
	require.NoError(t, userService.Edit(context.Background(), actor, "", &models.UserUpdate{Password: &newPassword}))

	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()
	stored, err := uow.Users().GetByUsername("bob", true)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "newpassword", stored.Password)
	assert.True(t, services.NewPasswordService().Verify("newpassword", stored.Password))
}

func TestUsersService_ChangePermissions(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	editorID := seedUser(t, store, &models.User{
		Name: "Editor", Email: "editor@example.com", Username: "editor", Password: "digest",
		Permissions: models.Permissions{CanEditUserPermissions: true},
	})
	targetID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	editor := loadUser(t, store, editorID)

	err := userService.ChangePermissions(context.Background(), editor, targetID, models.Permissions{CanViewUsers: true, CanBanUsers: true})
	require.NoError(t, err)

	target := loadUser(t, store, targetID)
	assert.True(t, target.Permissions.CanViewUsers)
	assert.True(t, target.Permissions.CanBanUsers)
	assert.False(t, target.Permissions.CanAddUsers)

	// Granting super_user is out of reach without holding it.
	err = userService.ChangePermissions(context.Background(), editor, targetID, models.Permissions{SuperUser: true})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUsersService_ChangePermissionsGuardsPrivilegedTargets(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	editorID := seedUser(t, store, &models.User{
		Name: "Editor", Email: "editor@example.com", Username: "editor", Password: "digest",
		Permissions: models.Permissions{CanEditUserPermissions: true},
	})
	peerID := seedUser(t, store, &models.User{
		Name: "Peer", Email: "peer@example.com", Username: "peer", Password: "digest",
		Permissions: models.Permissions{CanEditUserPermissions: true},
	})
	superID := seedUser(t, store, &models.User{
		Name: "Root", Email: "root@example.com", Username: "root", Password: "digest",
		Permissions: models.Permissions{SuperUser: true},
	})
	editor := loadUser(t, store, editorID)
	super := loadUser(t, store, superID)

	// A non-super editor may not touch a super user or a fellow editor.
	err := userService.ChangePermissions(context.Background(), editor, superID, models.Permissions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	err = userService.ChangePermissions(context.Background(), editor, peerID, models.Permissions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	// The super user may strip a fellow editor.
	require.NoError(t, userService.ChangePermissions(context.Background(), super, peerID, models.Permissions{}))
	assert.False(t, loadUser(t, store, peerID).Permissions.CanEditUserPermissions)
}

func TestUsersService_ChangePermissionsTransfersSuperUser(t *testing.T) {
	store := repositories.NewMemoryStore()
	userService := newUsersService(store, nil)

	superID := seedUser(t, store, &models.User{
		Name: "Root", Email: "root@example.com", Username: "root", Password: "digest",
		Permissions: models.Permissions{SuperUser: true},
	})
	targetID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	super := loadUser(t, store, superID)

	require.NoError(t, userService.ChangePermissions(context.Background(), super, targetID, models.Permissions{SuperUser: true}))

	assert.True(t, loadUser(t, store, targetID).Permissions.SuperUser)
	assert.False(t, loadUser(t, store, superID).Permissions.SuperUser, "the grant must revoke the actor's own flag")
}

func TestUsersService_Ban(t *testing.T) {
	store := repositories.NewMemoryStore()
	publisher := new(MockPublisher)
	publisher.On("Publish", "user.banned", mock.Anything).Return(nil)
	userService := newUsersService(store, publisher)

	modID := seedUser(t, store, &models.User{
		Name: "Mod", Email: "mod@example.com", Username: "mod", Password: "digest",
		Permissions: models.Permissions{CanBanUsers: true},
	})
	targetID := seedUser(t, store, &models.User{Name: "Bob", Email: "bob@example.com", Username: "bob", Password: "digest"})
	mod := loadUser(t, store, modID)
	target := loadUser(t, store, targetID)

	err := userService.Ban(context.Background(), target, modID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, userService.Ban(context.Background(), mod, targetID))
	assert.True(t, loadUser(t, store, targetID).Banned)
	publisher.AssertCalled(t, "Publish", "user.banned", mock.Anything)

	// Banning an already banned user is not an error.
	require.NoError(t, userService.Ban(context.Background(), mod, targetID))
}
