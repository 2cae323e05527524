package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/database"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"github.com/splitledger/splitledger/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data",
	Long: `Seed the database with demo users, a "Roommates" group, and a
reconciled grocery expense. Intended for local development; prints the
demo users' API keys.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(); err != nil {
			log.Fatal(err)
		}
	},
}

func runSeed() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	cacheStore := cache.Noop{}
	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	authz := services.NewAuthorizer(groupRepo, expenseRepo)
	userService := services.NewUserService(userRepo, keyRepo, db, cacheStore)
	groupService := services.NewGroupService(groupRepo, userRepo, authz, db, cacheStore)
	expenseService := services.NewExpenseService(expenseRepo, groupRepo, userRepo, authz, db, cacheStore)

	ctx := context.Background()

	seedUsers := []models.CreateUserRequest{
		{Name: "John Doe", Email: "john@example.com", Password: "password123"},
		{Name: "Jane Smith", Email: "jane@example.com", Password: "password456"},
		{Name: "Bob Wilson", Email: "bob@example.com", Password: "password789"},
	}

	users := make([]*models.User, 0, len(seedUsers))
	for _, req := range seedUsers {
		user, rawKey, err := userService.Register(ctx, req)
		if err != nil {
			return err
		}
		log.Printf("created user %s <%s> api_key=%s", user.Name, user.Email, rawKey)
		users = append(users, user)
	}

	group, err := groupService.Create(ctx, "Roommates", "Apartment expenses", users[0].ID)
	if err != nil {
		return err
	}
	for _, u := range users[1:] {
		if _, err := groupService.AddMember(ctx, group.ID, users[0].ID, u.ID, models.RoleMember); err != nil {
			return err
		}
	}
	log.Printf("created group %q (%s) with %d members", group.Name, group.ID, len(users))

	paid := 150.00
	expense, err := expenseService.Create(ctx, group.ID, users[0].ID, models.CreateExpenseRequest{
		Amount:      150.00,
		Description: "Groceries",
		Category:    "Food",
		Participants: []models.ParticipantInput{
			{UserID: users[0].ID.String(), Share: 50.00, Paid: &paid},
			{UserID: users[1].ID.String(), Share: 50.00},
			{UserID: users[2].ID.String(), Share: 50.00},
		},
	})
	if err != nil {
		return err
	}
	log.Printf("created expense %q (%s) amount=%.2f", expense.Description, expense.ID, expense.Amount)

	return nil
}
