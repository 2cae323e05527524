package services

import (
	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
)

// Authorizer answers the role/relationship questions that gate mutations.
// Every check reads live state; decisions are never cached, so a role
// change takes effect on the next request.
type Authorizer struct {
	groupRepo   *repository.GroupRepository
	expenseRepo *repository.ExpenseRepository
}

func NewAuthorizer(groupRepo *repository.GroupRepository, expenseRepo *repository.ExpenseRepository) *Authorizer {
	return &Authorizer{groupRepo: groupRepo, expenseRepo: expenseRepo}
}

func (a *Authorizer) IsGroupMember(groupID, userID uuid.UUID) (bool, error) {
	member, err := a.groupRepo.FindMember(groupID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

func (a *Authorizer) IsGroupAdmin(groupID, userID uuid.UUID) (bool, error) {
	member, err := a.groupRepo.FindMember(groupID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.Role == models.RoleAdmin, nil
}

// RoleOf returns the member's role and whether they belong to the group.
func (a *Authorizer) RoleOf(groupID, userID uuid.UUID) (string, bool, error) {
	member, err := a.groupRepo.FindMember(groupID, userID)
	if err != nil {
		return "", false, err
	}
	if member == nil {
		return "", false, nil
	}
	return member.Role, true, nil
}

func (a *Authorizer) IsExpenseCreator(expenseID, userID uuid.UUID) (bool, error) {
	expense, err := a.expenseRepo.FindByID(expenseID)
	if err != nil {
		return false, err
	}
	return expense != nil && expense.CreatedBy == userID, nil
}
