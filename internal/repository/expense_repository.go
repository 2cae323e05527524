package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) CreateInTx(tx *gorm.DB, expense *models.Expense) error {
	return tx.Create(expense).Error
}

func (r *ExpenseRepository) FindByID(id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	err := r.db.Preload("Participants").Preload("Participants.User").
		Where("id = ?", id).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

// FindByIDForUpdate locks the expense row, serializing concurrent
// participant replaces on the same expense.
func (r *ExpenseRepository) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *ExpenseRepository) ListByGroup(groupID uuid.UUID) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.Preload("Participants").Preload("Participants.User").
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) SaveInTx(tx *gorm.DB, expense *models.Expense) error {
	return tx.Save(expense).Error
}

func (r *ExpenseRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", id).
			Delete(&models.ExpenseParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Expense{}, "id = ?", id).Error
	})
}

// Participant helpers

func (r *ExpenseRepository) CreateParticipantInTx(tx *gorm.DB, participant *models.ExpenseParticipant) error {
	return tx.Create(participant).Error
}

func (r *ExpenseRepository) DeleteParticipantsInTx(tx *gorm.DB, expenseID uuid.UUID) error {
	return tx.Where("expense_id = ?", expenseID).
		Delete(&models.ExpenseParticipant{}).Error
}

func (r *ExpenseRepository) ListParticipants(expenseID uuid.UUID) ([]models.ExpenseParticipant, error) {
	var participants []models.ExpenseParticipant
	err := r.db.Preload("User").
		Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *ExpenseRepository) ListParticipantsInTx(tx *gorm.DB, expenseID uuid.UUID) ([]models.ExpenseParticipant, error) {
	var participants []models.ExpenseParticipant
	err := tx.Where("expense_id = ?", expenseID).Find(&participants).Error
	return participants, err
}
