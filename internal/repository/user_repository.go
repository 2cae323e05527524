package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	return findUserBy(r.db, "id = ?", id.String())
}

func (r *UserRepository) FindByIDInTx(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	return findUserBy(tx, "id = ?", id.String())
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	return findUserBy(r.db, "email = ?", email)
}

func findUserBy(db *gorm.DB, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := db.Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) FindAll() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at ASC").Find(&users).Error
	return users, err
}

// Delete removes the user and everything hanging off it. SQLite does not
// always honor gorm's cascade constraints, so owned rows go explicitly
// inside one transaction.
func (r *UserRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.APIKey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ExpenseParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}

		var groupIDs []uuid.UUID
		if err := tx.Model(&models.Group{}).Where("created_by = ?", id).
			Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		for _, gid := range groupIDs {
			if err := deleteGroupInTx(tx, gid); err != nil {
				return err
			}
		}

		var expenseIDs []uuid.UUID
		if err := tx.Model(&models.Expense{}).Where("created_by = ?", id).
			Pluck("id", &expenseIDs).Error; err != nil {
			return err
		}
		if len(expenseIDs) > 0 {
			if err := tx.Where("expense_id IN ?", expenseIDs).
				Delete(&models.ExpenseParticipant{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", expenseIDs).Delete(&models.Expense{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
}
