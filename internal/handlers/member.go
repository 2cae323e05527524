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

type MemberHandler struct {
	groupService *services.GroupService
	cache        cache.Store
}

func NewMemberHandler(groupService *services.GroupService, cacheStore cache.Store) *MemberHandler {
	return &MemberHandler{groupService: groupService, cache: cacheStore}
}

type MemberListResponse struct {
	Members []models.GroupMemberResponse `json:"members"`
}

type MemberItemResponse struct {
	Member models.GroupMemberResponse `json:"member"`
}

// List godoc
// @Summary List members of a group
// @Tags members
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} MemberListResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	ctx := c.Request.Context()
	var resp MemberListResponse
	if h.cache.GetJSON(ctx, cache.GroupMembersKey(groupID), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	members, err := h.groupService.ListMembers(groupID)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp.Members = []models.GroupMemberResponse{}
	for _, m := range members {
		resp.Members = append(resp.Members, m.ToResponse())
	}

	h.cache.SetJSON(ctx, cache.GroupMembersKey(groupID), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Add godoc
// @Summary Add a member to a group
// @Tags members
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Group ID"
// @Param request body models.AddMemberRequest true "Member to add"
// @Success 201 {object} MemberItemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /groups/{id}/members [post]
func (h *MemberHandler) Add(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID"})
		return
	}

	member, err := h.groupService.AddMember(c.Request.Context(), groupID, middleware.GetUserID(c), targetID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrNotGroupAdmin):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrUserNotFound):
			// An unknown target user is a malformed request, not a
			// missing resource.
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user does not exist"})
		case errors.Is(err, services.ErrAlreadyMember):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, MemberItemResponse{Member: member.ToResponse()})
}

// Remove godoc
// @Summary Remove a member from a group
// @Description Members may remove themselves; admins may remove anyone. The last admin can never be removed.
// @Tags members
// @Security ApiKeyAuth
// @Param id path string true "Group ID"
// @Param userID path string true "User ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id}/members/{userID} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	targetID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user ID"})
		return
	}

	err = h.groupService.RemoveMember(c.Request.Context(), groupID, middleware.GetUserID(c), targetID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNotFound), errors.Is(err, services.ErrMemberNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrNotGroupAdmin):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only group admins can remove other members"})
		case errors.Is(err, services.ErrLastAdmin):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
