package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/services"
)

type UserHandler struct {
	userService *services.UserService
	cache       cache.Store
}

func NewUserHandler(userService *services.UserService, cacheStore cache.Store) *UserHandler {
	return &UserHandler{userService: userService, cache: cacheStore}
}

type UserListResponse struct {
	Users []models.UserResponse `json:"users"`
}

type UserItemResponse struct {
	User  models.UserResponse `json:"user"`
	Links Links               `json:"_links,omitempty"`
}

type UserCreatedResponse struct {
	User   models.UserResponse `json:"user"`
	APIKey string              `json:"api_key"`
	Links  Links               `json:"_links,omitempty"`
}

func userLinks(id uuid.UUID) Links {
	href := "/api/v1/users/" + id.String()
	return Links{
		"self":   {Href: href},
		"update": {Href: href, Method: http.MethodPut},
		"delete": {Href: href, Method: http.MethodDelete},
	}
}

// List godoc
// @Summary List all users
// @Tags users
// @Produce json
// @Success 200 {object} UserListResponse
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var resp UserListResponse
	if h.cache.GetJSON(ctx, cache.UsersKey(), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	users, err := h.userService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp.Users = []models.UserResponse{}
	for _, u := range users {
		resp.Users = append(resp.Users, u.ToResponse())
	}

	h.cache.SetJSON(ctx, cache.UsersKey(), resp, userCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} UserItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID"})
		return
	}

	ctx := c.Request.Context()
	var resp UserItemResponse
	if h.cache.GetJSON(ctx, cache.UserKey(id), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	user, err := h.userService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp = UserItemResponse{User: user.ToResponse(), Links: userLinks(id)}
	h.cache.SetJSON(ctx, cache.UserKey(id), resp, userCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Sign up a new user
// @Description Creates the user and auto-issues one API key. The raw key appears in this response only.
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "User details"
// @Success 201 {object} UserCreatedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	user, rawKey, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, UserCreatedResponse{
		User:   user.ToResponse(),
		APIKey: rawKey,
		Links:  userLinks(user.ID),
	})
}

// Update godoc
// @Summary Update your own account
// @Tags users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param request body models.UpdateUserRequest true "Fields to update"
// @Success 200 {object} UserItemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID"})
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, middleware.GetUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotAccountOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrEmailTaken):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, UserItemResponse{User: user.ToResponse(), Links: userLinks(id)})
}

// Delete godoc
// @Summary Delete your own account
// @Tags users
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID"})
		return
	}

	err = h.userService.Delete(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotAccountOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
