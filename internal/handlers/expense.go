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

type ExpenseHandler struct {
	expenseService *services.ExpenseService
	cache          cache.Store
}

func NewExpenseHandler(expenseService *services.ExpenseService, cacheStore cache.Store) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, cache: cacheStore}
}

type ExpenseListResponse struct {
	Expenses []models.ExpenseResponse `json:"expenses"`
}

type ExpenseItemResponse struct {
	Expense models.ExpenseResponse `json:"expense"`
	Links   Links                  `json:"_links,omitempty"`
}

type ParticipantListResponse struct {
	Participants []models.ParticipantResponse `json:"participants"`
}

func expenseLinks(id uuid.UUID) Links {
	href := "/api/v1/expenses/" + id.String()
	return Links{
		"self":         {Href: href},
		"update":       {Href: href, Method: http.MethodPut},
		"delete":       {Href: href, Method: http.MethodDelete},
		"participants": {Href: href + "/participants"},
	}
}

// expenseStatus maps the ledger engine's error kinds onto HTTP statuses:
// authorization failures are 403, broken domain rules are 400.
func expenseStatus(err error) (int, string) {
	var mismatch *services.ShareMismatchError
	var participant *services.ParticipantError

	switch {
	case errors.Is(err, services.ErrGroupNotFound), errors.Is(err, services.ErrExpenseNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrNotGroupMember),
		errors.Is(err, services.ErrNotExpenseCreator),
		errors.Is(err, services.ErrNotCreatorOrAdmin):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountPrecision),
		errors.Is(err, services.ErrEmptyDescription),
		errors.Is(err, services.ErrNegativeShare):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &mismatch), errors.As(err, &participant):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// ListByGroup godoc
// @Summary List expenses in a group
// @Tags expenses
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} ExpenseListResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id}/expenses [get]
func (h *ExpenseHandler) ListByGroup(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	ctx := c.Request.Context()
	var resp ExpenseListResponse
	if h.cache.GetJSON(ctx, cache.GroupExpensesKey(groupID), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	expenses, err := h.expenseService.ListByGroup(groupID)
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	resp.Expenses = []models.ExpenseResponse{}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, e.ToResponse())
	}

	h.cache.SetJSON(ctx, cache.GroupExpensesKey(groupID), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create an expense in a group
// @Description Participant shares must sum to the expense amount within 0.01. Any validation failure rolls the whole operation back.
// @Tags expenses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Group ID"
// @Param request body models.CreateExpenseRequest true "Expense details"
// @Success 201 {object} ExpenseItemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /groups/{id}/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group ID"})
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), groupID, middleware.GetUserID(c), req)
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusCreated, ExpenseItemResponse{Expense: expense.ToResponse(), Links: expenseLinks(expense.ID)})
}

// Get godoc
// @Summary Get an expense with its participants
// @Tags expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} ExpenseItemResponse
// @Failure 404 {object} ErrorResponse
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expense ID"})
		return
	}

	ctx := c.Request.Context()
	var resp ExpenseItemResponse
	if h.cache.GetJSON(ctx, cache.ExpenseKey(id), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	expense, err := h.expenseService.Get(id)
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	resp = ExpenseItemResponse{Expense: expense.ToResponse(), Links: expenseLinks(id)}
	h.cache.SetJSON(ctx, cache.ExpenseKey(id), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Update an expense
// @Description Scalar fields patch by presence. A participants list is a full replace, re-validated against the amount.
// @Tags expenses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Expense ID"
// @Param request body models.UpdateExpenseRequest true "Fields to update"
// @Success 200 {object} ExpenseItemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expense ID"})
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	expense, err := h.expenseService.Replace(c.Request.Context(), id, middleware.GetUserID(c), req)
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, ExpenseItemResponse{Expense: expense.ToResponse(), Links: expenseLinks(id)})
}

// Delete godoc
// @Summary Delete an expense
// @Tags expenses
// @Security ApiKeyAuth
// @Param id path string true "Expense ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expense ID"})
		return
	}

	err = h.expenseService.Delete(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListParticipants godoc
// @Summary List participants of an expense
// @Description Each participant carries a derived balance of paid minus share.
// @Tags expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} ParticipantListResponse
// @Failure 404 {object} ErrorResponse
// @Router /expenses/{id}/participants [get]
func (h *ExpenseHandler) ListParticipants(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expense ID"})
		return
	}

	ctx := c.Request.Context()
	var resp ParticipantListResponse
	if h.cache.GetJSON(ctx, cache.ExpenseParticipantsKey(id), &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	participants, err := h.expenseService.ListParticipants(id)
	if err != nil {
		status, msg := expenseStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	resp.Participants = []models.ParticipantResponse{}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, p.ToResponse())
	}

	h.cache.SetJSON(ctx, cache.ExpenseParticipantsKey(id), resp, groupCacheTTL)
	c.JSON(http.StatusOK, resp)
}
