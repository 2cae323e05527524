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

type GroupHandler struct {
	groupService *services.GroupService
	cache        cache.Store
}

func NewGroupHandler(groupService *services.GroupService, cacheStore cache.Store) *GroupHandler {
	return &GroupHandler{groupService: groupService, cache: cacheStore}
}

type GroupListResponse struct {
	Groups []models.GroupResponse `json:"groups"`
}

type GroupItemResponse struct {
	Group models.GroupResponse `json:"group"`
	Links Links                `json:"_links,omitempty"`
}

func groupLinks(id uuid.UUID) Links {
	href := "/api/v1/groups/" + id.String()
	return Links{
		"self":     {Href: href},
		"update":   {Href: href, Method: http.MethodPut},
		"delete":   {Href: href, Method: http.MethodDelete},
		"members":  {Href: href + "/members"},
		"expenses": {Href: href + "/expenses"},
	}
}

// List godoc
// @Summary List all groups
// @Tags groups
// @Produce json
// @Success 200 {object} GroupListResponse
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var resp GroupListResponse
	if h.cache.GetJSON(ctx, cache.GroupsKey(), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	groups, err := h.groupService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp.Groups = []models.GroupResponse{}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, g.ToResponse())
	}

	h.cache.SetJSON(ctx, cache.GroupsKey(), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a group with its members
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} GroupItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	ctx := c.Request.Context()
	var resp GroupItemResponse
	if h.cache.GetJSON(ctx, cache.GroupKey(id), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	group, err := h.groupService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp = GroupItemResponse{Group: group.ToResponse(), Links: groupLinks(id)}
	h.cache.SetJSON(ctx, cache.GroupKey(id), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a group
// @Description The creator automatically joins as admin.
// @Tags groups
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.CreateGroupRequest true "Group details"
// @Success 201 {object} GroupItemResponse
// @Failure 400 {object} ErrorResponse
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), req.Name, req.Description, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, GroupItemResponse{Group: group.ToResponse(), Links: groupLinks(group.ID)})
}

// Update godoc
// @Summary Update a group
// @Tags groups
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Group ID"
// @Param request body models.UpdateGroupRequest true "Fields to update"
// @Success 200 {object} GroupItemResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	group, err := h.groupService.Update(c.Request.Context(), id, middleware.GetUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrNotGroupAdmin):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, GroupItemResponse{Group: group.ToResponse(), Links: groupLinks(id)})
}

// Delete godoc
// @Summary Delete a group
// @Tags groups
// @Security ApiKeyAuth
// @Param id path string true "Group ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	err = h.groupService.Delete(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrNotGroupAdmin):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
