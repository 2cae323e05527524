package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/database"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	userRepo    *repository.UserRepository
	keyRepo     *repository.APIKeyRepository
	groupRepo   *repository.GroupRepository
	expenseRepo *repository.ExpenseRepository
	authz       *Authorizer
	auth        *AuthService
	users       *UserService
	groups      *GroupService
	expenses    *ExpenseService
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	authz := NewAuthorizer(groupRepo, expenseRepo)

	return &testEnv{
		db:          db,
		userRepo:    userRepo,
		keyRepo:     keyRepo,
		groupRepo:   groupRepo,
		expenseRepo: expenseRepo,
		authz:       authz,
		auth:        NewAuthService(keyRepo, userRepo, "test-secret"),
		users:       NewUserService(userRepo, keyRepo, db, cache.Noop{}),
		groups:      NewGroupService(groupRepo, userRepo, authz, db, cache.Noop{}),
		expenses:    NewExpenseService(expenseRepo, groupRepo, userRepo, authz, db, cache.Noop{}),
	}
}

func (e *testEnv) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, _, err := e.users.Register(context.Background(), models.CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createGroup(t *testing.T, name string, creatorID uuid.UUID) *models.Group {
	t.Helper()
	group, err := e.groups.Create(context.Background(), name, "", creatorID)
	require.NoError(t, err)
	return group
}

func (e *testEnv) addMember(t *testing.T, groupID, actorID, targetID uuid.UUID) {
	t.Helper()
	_, err := e.groups.AddMember(context.Background(), groupID, actorID, targetID, models.RoleMember)
	require.NoError(t, err)
}

func (e *testEnv) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(model).Count(&count).Error)
	return count
}
