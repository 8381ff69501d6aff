package services

import (
	"context"
	"log"

	"biblio/internal/apperrors"
	"biblio/internal/models"
	"biblio/internal/repositories"

	"biblio/pkg/events"
)

// UsersService orchestrates user management workflows and enforces the
// permission model. All permission and validation checks happen before any
// storage mutation; every multi-step write runs inside one unit of work.
type UsersService struct {
	uowFactory repositories.UnitOfWorkFactory
	passwords  *PasswordService
	publisher  EventPublisher
}

// NewUsersService creates a new UsersService.
func NewUsersService(uowFactory repositories.UnitOfWorkFactory, passwords *PasswordService, publisher EventPublisher) *UsersService {
	return &UsersService{
		uowFactory: uowFactory,
		passwords:  passwords,
		publisher:  publisher,
	}
}

// Create adds a new user on behalf of the actor. Granting super_user requires
// the actor to hold it, and transfers it: the actor's own flag is revoked in
// the same transaction.
func (s *UsersService) Create(ctx context.Context, actor *models.UserDTO, create *models.UserCreate) (string, error) {
	if !models.May(actor.Permissions, models.ActionAddUsers) {
		return "", apperrors.ErrForbidden
	}
	if create.Permissions.SuperUser && !actor.Permissions.SuperUser {
		return "", apperrors.ErrForbidden
	}

	digest, err := s.passwords.Hash(create.Password)
	if err != nil {
		return "", err
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer uow.Close()

	existing, err := uow.Users().GetByUsername(create.Username, false)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", apperrors.Validation("there is already an account with the same username")
	}

	id, err := uow.Users().Create(&models.User{
		Name:        create.Name,
		Email:       create.Email,
		Username:    create.Username,
		Password:    digest,
		Permissions: create.Permissions,
	})
	if err != nil {
		return "", err
	}
	if create.Permissions.SuperUser {
		if err := revokeActorSuperUser(uow, actor); err != nil {
			return "", err
		}
	}
	if err := uow.Commit(); err != nil {
		return "", err
	}

	s.publish(events.UserCreated, map[string]any{"user_id": id, "actor_id": actor.ID})
	return id, nil
}

// Get returns the target user, defaulting to the actor itself. Looking up
// anyone else requires the view-users capability.
func (s *UsersService) Get(ctx context.Context, actor *models.UserDTO, targetID string) (*models.UserDTO, error) {
	if targetID == "" {
		targetID = actor.ID
	}
	if targetID != actor.ID && !models.May(actor.Permissions, models.ActionViewUsers) {
		return nil, apperrors.ErrForbidden
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	user, err := uow.Users().GetByID(targetID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

// Edit applies a partial profile update to the target, defaulting to the
// actor itself. Editing anyone else requires the edit-profile capability.
func (s *UsersService) Edit(ctx context.Context, actor *models.UserDTO, targetID string, patch *models.UserUpdate) error {
	if targetID == "" {
		targetID = actor.ID
	}
	if targetID != actor.ID && !models.May(actor.Permissions, models.ActionEditProfile) {
		return apperrors.ErrForbidden
	}
	if patch.Password != nil {
		digest, err := s.passwords.Hash(*patch.Password)
		if err != nil {
			return err
		}
		patch.Password = &digest
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	user, err := uow.Users().GetByID(targetID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.ErrNotFound
	}
	fields := patch.Fields()
	if len(fields) > 0 {
		if err := uow.Users().Update(targetID, fields); err != nil {
			return err
		}
	}
	return uow.Commit()
}

// ChangePermissions replaces the target's capability set. Only a super user
// may touch a target who is already super_user or who can themself edit
// permissions, and granting super_user transfers it from the actor.
func (s *UsersService) ChangePermissions(ctx context.Context, actor *models.UserDTO, targetID string, perms models.Permissions) error {
	if !models.May(actor.Permissions, models.ActionEditPermissions) {
		return apperrors.ErrForbidden
	}
	if perms.SuperUser && !actor.Permissions.SuperUser {
		return apperrors.ErrForbidden
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	target, err := uow.Users().GetByID(targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperrors.ErrNotFound
	}
	if target.Permissions.SuperUser && !actor.Permissions.SuperUser {
		return apperrors.ErrForbidden
	}
	if target.Permissions.CanEditUserPermissions && !actor.Permissions.SuperUser {
		return apperrors.ErrForbidden
	}

	if err := uow.Users().Update(targetID, perms.Fields()); err != nil {
		return err
	}
	if perms.SuperUser {
		if err := revokeActorSuperUser(uow, actor); err != nil {
			return err
		}
	}
	return uow.Commit()
}

// Ban marks the target as banned. There is no un-ban operation.
func (s *UsersService) Ban(ctx context.Context, actor *models.UserDTO, targetID string) error {
	if !models.May(actor.Permissions, models.ActionBanUsers) {
		return apperrors.ErrForbidden
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	if err := uow.Users().Update(targetID, map[string]any{"banned": true}); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.publish(events.UserBanned, map[string]any{"user_id": targetID, "actor_id": actor.ID})
	return nil
}

func (s *UsersService) publish(routingKey string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}

// revokeActorSuperUser enforces the single-super-user invariant: both the
// creation and permission-change paths call it when a grant hands super_user
// to someone else, revoking the actor's own flag inside the same transaction.
func revokeActorSuperUser(uow repositories.UnitOfWork, actor *models.UserDTO) error {
	return uow.Users().Update(actor.ID, map[string]any{"perm_super_user": false})
}
