package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/cache"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"gorm.io/gorm"
)

// shareTolerance absorbs binary-floating round-trip error on two-decimal
// currency values.
const shareTolerance = 0.01

var (
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrNotGroupMember    = errors.New("only group members can create expenses")
	ErrNotExpenseCreator = errors.New("only the creator can update the expense")
	ErrNotCreatorOrAdmin = errors.New("only the creator or a group admin can delete the expense")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrAmountPrecision   = errors.New("amount must have at most two decimal places")
	ErrEmptyDescription  = errors.New("description must not be empty")
	ErrNegativeShare     = errors.New("share and paid must not be negative")
)

// ShareMismatchError reports a failed reconciliation: the participant
// shares do not sum to the expense amount.
type ShareMismatchError struct {
	TotalShare float64
	Amount     float64
}

func (e *ShareMismatchError) Error() string {
	return fmt.Sprintf("total participant shares (%.2f) must equal expense amount (%.2f)",
		e.TotalShare, e.Amount)
}

// ParticipantError reports why a participant entry was rejected.
type ParticipantError struct {
	UserID uuid.UUID
	Reason string
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("user %s %s", e.UserID, e.Reason)
}

type ExpenseService struct {
	expenseRepo *repository.ExpenseRepository
	groupRepo   *repository.GroupRepository
	userRepo    *repository.UserRepository
	authz       *Authorizer
	db          *gorm.DB
	cache       cache.Store
}

func NewExpenseService(expenseRepo *repository.ExpenseRepository, groupRepo *repository.GroupRepository, userRepo *repository.UserRepository, authz *Authorizer, db *gorm.DB, cacheStore cache.Store) *ExpenseService {
	return &ExpenseService{
		expenseRepo: expenseRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		authz:       authz,
		db:          db,
		cache:       cacheStore,
	}
}

// Create persists an expense and its participant breakdown as one
// transaction. Any participant failing validation, or the shares not
// reconciling with the amount, rolls the whole thing back.
func (s *ExpenseService) Create(ctx context.Context, groupID, creatorID uuid.UUID, req models.CreateExpenseRequest) (*models.Expense, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	isMember, err := s.authz.IsGroupMember(groupID, creatorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrEmptyDescription
	}

	expense := &models.Expense{
		GroupID:     groupID,
		CreatedBy:   creatorID,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.expenseRepo.CreateInTx(tx, expense); err != nil {
			return err
		}
		return s.insertParticipants(tx, expense, req.Participants)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.GroupExpensesKey(groupID))

	return s.expenseRepo.FindByID(expense.ID)
}

// Replace applies a partial update to the expense's scalar fields and, when
// a participants list is present, fully replaces the participant rows. The
// expense row is locked for the duration so concurrent replaces cannot
// interleave their delete-and-reinsert steps.
func (s *ExpenseService) Replace(ctx context.Context, expenseID, actorID uuid.UUID, req models.UpdateExpenseRequest) (*models.Expense, error) {
	var groupID uuid.UUID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		expense, err := s.expenseRepo.FindByIDForUpdate(tx, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return ErrExpenseNotFound
		}
		if expense.CreatedBy != actorID {
			return ErrNotExpenseCreator
		}
		groupID = expense.GroupID

		amountChanged := false
		if req.Amount != nil {
			if err := validateAmount(*req.Amount); err != nil {
				return err
			}
			amountChanged = *req.Amount != expense.Amount
			expense.Amount = *req.Amount
		}
		if req.Description != nil {
			if strings.TrimSpace(*req.Description) == "" {
				return ErrEmptyDescription
			}
			expense.Description = *req.Description
		}
		if req.Category != nil {
			expense.Category = *req.Category
		}

		if err := s.expenseRepo.SaveInTx(tx, expense); err != nil {
			return err
		}

		if req.Participants != nil {
			if err := s.expenseRepo.DeleteParticipantsInTx(tx, expenseID); err != nil {
				return err
			}
			return s.insertParticipants(tx, expense, *req.Participants)
		}

		if amountChanged {
			// The untouched participant rows must still reconcile with
			// the new amount.
			existing, err := s.expenseRepo.ListParticipantsInTx(tx, expenseID)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				total := 0.0
				for _, p := range existing {
					total += p.Share
				}
				if math.Abs(total-expense.Amount) > shareTolerance {
					return &ShareMismatchError{TotalShare: total, Amount: expense.Amount}
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx,
		cache.ExpenseKey(expenseID),
		cache.ExpenseParticipantsKey(expenseID),
		cache.GroupExpensesKey(groupID),
	)

	return s.expenseRepo.FindByID(expenseID)
}

func (s *ExpenseService) Delete(ctx context.Context, expenseID, actorID uuid.UUID) error {
	expense, err := s.expenseRepo.FindByID(expenseID)
	if err != nil {
		return err
	}
	if expense == nil {
		return ErrExpenseNotFound
	}

	isCreator, err := s.authz.IsExpenseCreator(expenseID, actorID)
	if err != nil {
		return err
	}
	if !isCreator {
		isAdmin, err := s.authz.IsGroupAdmin(expense.GroupID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return ErrNotCreatorOrAdmin
		}
	}

	if err := s.expenseRepo.Delete(expenseID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx,
		cache.ExpenseKey(expenseID),
		cache.ExpenseParticipantsKey(expenseID),
		cache.GroupExpensesKey(expense.GroupID),
	)

	return nil
}

func (s *ExpenseService) Get(id uuid.UUID) (*models.Expense, error) {
	expense, err := s.expenseRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

func (s *ExpenseService) ListByGroup(groupID uuid.UUID) ([]models.Expense, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return s.expenseRepo.ListByGroup(groupID)
}

func (s *ExpenseService) ListParticipants(expenseID uuid.UUID) ([]models.ExpenseParticipant, error) {
	if _, err := s.Get(expenseID); err != nil {
		return nil, err
	}
	return s.expenseRepo.ListParticipants(expenseID)
}

// insertParticipants validates and inserts a participant list, then runs the
// reconciliation check. An empty list is legal: the expense simply carries
// no breakdown and no check runs.
func (s *ExpenseService) insertParticipants(tx *gorm.DB, expense *models.Expense, participants []models.ParticipantInput) error {
	if len(participants) == 0 {
		return nil
	}

	totalShare := 0.0
	for _, in := range participants {
		userID, err := uuid.Parse(in.UserID)
		if err != nil {
			return &ParticipantError{Reason: "does not exist"}
		}

		if in.Share < 0 || (in.Paid != nil && *in.Paid < 0) {
			return ErrNegativeShare
		}

		user, err := s.userRepo.FindByIDInTx(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return &ParticipantError{UserID: userID, Reason: "does not exist"}
		}

		member, err := s.groupRepo.FindMemberInTx(tx, expense.GroupID, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return &ParticipantError{UserID: userID, Reason: "is not a member of this group"}
		}

		paid := 0.0
		if in.Paid != nil {
			paid = *in.Paid
		}

		err = s.expenseRepo.CreateParticipantInTx(tx, &models.ExpenseParticipant{
			ExpenseID: expense.ID,
			UserID:    userID,
			Share:     in.Share,
			Paid:      paid,
		})
		if err != nil {
			return err
		}

		totalShare += in.Share
	}

	if math.Abs(totalShare-expense.Amount) > shareTolerance {
		return &ShareMismatchError{TotalShare: totalShare, Amount: expense.Amount}
	}

	return nil
}

func validateAmount(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	cents := amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return ErrAmountPrecision
	}
	return nil
}
