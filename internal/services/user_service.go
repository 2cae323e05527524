package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotAccountOwner = errors.New("can only modify your own account")
)

type UserService struct {
	userRepo *repository.UserRepository
	keyRepo  *repository.APIKeyRepository
	db       *gorm.DB
	cache    cache.Store
}

func NewUserService(userRepo *repository.UserRepository, keyRepo *repository.APIKeyRepository, db *gorm.DB, cacheStore cache.Store) *UserService {
	return &UserService{
		userRepo: userRepo,
		keyRepo:  keyRepo,
		db:       db,
		cache:    cacheStore,
	}
}

// Register creates the user and auto-issues one API key in a single
// transaction. The raw key is returned here and never again.
func (s *UserService) Register(ctx context.Context, req models.CreateUserRequest) (*models.User, string, error) {
	existing, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.keyRepo.CreateInTx(tx, &models.APIKey{
			UserID:  user.ID,
			KeyHash: models.HashAPIKey(rawKey),
		})
	})
	if err != nil {
		return nil, "", err
	}

	s.cache.Invalidate(ctx, cache.UsersKey())

	return user, rawKey, nil
}

func (s *UserService) Get(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List() ([]models.User, error) {
	return s.userRepo.FindAll()
}

func (s *UserService) Update(ctx context.Context, id, actorID uuid.UUID, req models.UpdateUserRequest) (*models.User, error) {
	if id != actorID {
		return nil, ErrNotAccountOwner
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Email != nil && *req.Email != user.Email {
		existing, err := s.userRepo.FindByEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.UserKey(id), cache.UsersKey())

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if id != actorID {
		return ErrNotAccountOwner
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	// Collect the groups the deletion will touch before the cascade runs,
	// so their cached reads can be evicted too.
	var groupIDs []uuid.UUID
	if err := s.db.Model(&models.GroupMember{}).Where("user_id = ?", id).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return err
	}

	if err := s.userRepo.Delete(id); err != nil {
		return err
	}

	keys := []string{cache.UserKey(id), cache.UsersKey(), cache.GroupsKey()}
	for _, gid := range groupIDs {
		keys = append(keys,
			cache.GroupKey(gid),
			cache.GroupMembersKey(gid),
			cache.GroupExpensesKey(gid),
		)
	}
	s.cache.Invalidate(ctx, keys...)

	return nil
}
