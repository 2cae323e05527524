package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrNotGroupAdmin  = errors.New("only group admins can do this")
	ErrAlreadyMember  = errors.New("user is already a member of this group")
	ErrMemberNotFound = errors.New("user is not a member of this group")
	ErrLastAdmin      = errors.New("cannot remove the last admin of the group")
)

type GroupService struct {
	groupRepo *repository.GroupRepository
	userRepo  *repository.UserRepository
	authz     *Authorizer
	db        *gorm.DB
	cache     cache.Store
}

func NewGroupService(groupRepo *repository.GroupRepository, userRepo *repository.UserRepository, authz *Authorizer, db *gorm.DB, cacheStore cache.Store) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		authz:     authz,
		db:        db,
		cache:     cacheStore,
	}
}

// Create inserts the group and the creator's admin membership as one unit.
func (s *GroupService) Create(ctx context.Context, name, description string, creatorID uuid.UUID) (*models.Group, error) {
	group := &models.Group{
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.groupRepo.CreateInTx(tx, group); err != nil {
			return err
		}
		return s.groupRepo.AddMemberInTx(tx, &models.GroupMember{
			GroupID: group.ID,
			UserID:  creatorID,
			Role:    models.RoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.GroupsKey())

	return s.groupRepo.FindByID(group.ID)
}

func (s *GroupService) Get(id uuid.UUID) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

func (s *GroupService) List() ([]models.Group, error) {
	return s.groupRepo.FindAll()
}

func (s *GroupService) Update(ctx context.Context, id, actorID uuid.UUID, req models.UpdateGroupRequest) (*models.Group, error) {
	group, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.authz.IsGroupAdmin(id, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotGroupAdmin
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := s.groupRepo.Update(group); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx,
		cache.GroupKey(id),
		cache.GroupsKey(),
		cache.GroupMembersKey(id),
	)

	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	isAdmin, err := s.authz.IsGroupAdmin(id, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotGroupAdmin
	}

	if err := s.groupRepo.Delete(id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx,
		cache.GroupKey(id),
		cache.GroupsKey(),
		cache.GroupMembersKey(id),
		cache.GroupExpensesKey(id),
	)

	return nil
}

func (s *GroupService) AddMember(ctx context.Context, groupID, actorID, targetUserID uuid.UUID, role string) (*models.GroupMember, error) {
	if _, err := s.Get(groupID); err != nil {
		return nil, err
	}

	isAdmin, err := s.authz.IsGroupAdmin(groupID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotGroupAdmin
	}

	target, err := s.userRepo.FindByID(targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.groupRepo.FindMember(groupID, targetUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	if role == "" {
		role = models.RoleMember
	}

	member := &models.GroupMember{
		GroupID: groupID,
		UserID:  targetUserID,
		Role:    role,
	}
	if err := s.groupRepo.AddMemberInTx(s.db, member); err != nil {
		return nil, err
	}
	member.User = *target

	s.cache.Invalidate(ctx, cache.GroupMembersKey(groupID), cache.GroupKey(groupID))

	return member, nil
}

// RemoveMember handles self-leave and admin removal. The last-admin check
// runs under a row lock in the same transaction as the delete, so two
// concurrent removals cannot both pass it.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, targetUserID uuid.UUID) error {
	if _, err := s.Get(groupID); err != nil {
		return err
	}

	if actorID != targetUserID {
		isAdmin, err := s.authz.IsGroupAdmin(groupID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return ErrNotGroupAdmin
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.groupRepo.FindMemberForUpdate(tx, groupID, targetUserID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrMemberNotFound
		}

		if member.Role == models.RoleAdmin {
			admins, err := s.groupRepo.CountAdminsForUpdate(tx, groupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		return s.groupRepo.DeleteMemberInTx(tx, groupID, targetUserID)
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.GroupMembersKey(groupID), cache.GroupKey(groupID))

	return nil
}

func (s *GroupService) ListMembers(groupID uuid.UUID) ([]models.GroupMember, error) {
	if _, err := s.Get(groupID); err != nil {
		return nil, err
	}
	return s.groupRepo.ListMembers(groupID)
}

func (s *GroupService) IsMember(groupID, userID uuid.UUID) (bool, error) {
	return s.authz.IsGroupMember(groupID, userID)
}

func (s *GroupService) RoleOf(groupID, userID uuid.UUID) (string, bool, error) {
	return s.authz.RoleOf(groupID, userID)
}
