package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/database"
	"github.com/splitledger/splitledger/internal/handlers"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/repository"
	"github.com/splitledger/splitledger/internal/services"
	"github.com/splitledger/splitledger/pkg/logging"

	_ "github.com/splitledger/splitledger/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

// @title           SplitLedger API
// @version         1.0
// @description     Multi-tenant expense-splitting API
// @BasePath        /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func serve() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	cacheStore := cache.Connect(cfg.Redis.URL)

	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)

	authz := services.NewAuthorizer(groupRepo, expenseRepo)
	authService := services.NewAuthService(keyRepo, userRepo, cfg.JWT.Secret)
	userService := services.NewUserService(userRepo, keyRepo, db, cacheStore)
	groupService := services.NewGroupService(groupRepo, userRepo, authz, db, cacheStore)
	expenseService := services.NewExpenseService(expenseRepo, groupRepo, userRepo, authz, db, cacheStore)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, cacheStore)
	groupHandler := handlers.NewGroupHandler(groupService, cacheStore)
	memberHandler := handlers.NewMemberHandler(groupService, cacheStore)
	expenseHandler := handlers.NewExpenseHandler(expenseService, cacheStore)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.Default())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	{
		// Reads are public; mutations require identity.
		api.POST("/auth/login", authHandler.Login)

		api.GET("/users", userHandler.List)
		api.POST("/users", userHandler.Create)
		api.GET("/users/:id", userHandler.Get)

		api.GET("/groups", groupHandler.List)
		api.GET("/groups/:id", groupHandler.Get)
		api.GET("/groups/:id/members", memberHandler.List)
		api.GET("/groups/:id/expenses", expenseHandler.ListByGroup)

		api.GET("/expenses/:id", expenseHandler.Get)
		api.GET("/expenses/:id/participants", expenseHandler.ListParticipants)

		authenticated := api.Group("")
		authenticated.Use(authMiddleware.RequireAuth())
		{
			authenticated.PUT("/users/:id", userHandler.Update)
			authenticated.DELETE("/users/:id", userHandler.Delete)

			authenticated.POST("/groups", groupHandler.Create)
			authenticated.PUT("/groups/:id", groupHandler.Update)
			authenticated.DELETE("/groups/:id", groupHandler.Delete)

			authenticated.POST("/groups/:id/members", memberHandler.Add)
			authenticated.DELETE("/groups/:id/members/:userID", memberHandler.Remove)

			authenticated.POST("/groups/:id/expenses", expenseHandler.Create)
			authenticated.PUT("/expenses/:id", expenseHandler.Update)
			authenticated.DELETE("/expenses/:id", expenseHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting SplitLedger server on %s", addr)
	log.Fatal(router.Run(addr))
}
