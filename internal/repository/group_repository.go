package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) CreateInTx(tx *gorm.DB, group *models.Group) error {
	return tx.Create(group).Error
}

func (r *GroupRepository) FindByID(id uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := r.db.Preload("Members").Preload("Members.User").
		Where("id = ?", id).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) FindAll() ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Preload("Members").Preload("Members.User").
		Order("created_at ASC").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) Update(group *models.Group) error {
	return r.db.Save(group).Error
}

func (r *GroupRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteGroupInTx(tx, id)
	})
}

func deleteGroupInTx(tx *gorm.DB, id uuid.UUID) error {
	var expenseIDs []uuid.UUID
	if err := tx.Model(&models.Expense{}).Where("group_id = ?", id).
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
	if err := tx.Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Group{}, "id = ?", id).Error
}

// Membership helpers

func (r *GroupRepository) AddMemberInTx(tx *gorm.DB, member *models.GroupMember) error {
	return tx.Create(member).Error
}

func (r *GroupRepository) FindMember(groupID, userID uuid.UUID) (*models.GroupMember, error) {
	return findMemberBy(r.db, groupID, userID)
}

func (r *GroupRepository) FindMemberInTx(tx *gorm.DB, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	return findMemberBy(tx, groupID, userID)
}

// FindMemberForUpdate locks the membership row so a concurrent removal
// cannot slip between the last-admin count and the delete.
func (r *GroupRepository) FindMemberForUpdate(tx *gorm.DB, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func findMemberBy(db *gorm.DB, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := db.Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *GroupRepository) ListMembers(groupID uuid.UUID) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// CountAdminsForUpdate locks the group's admin rows for the rest of the
// transaction. Two concurrent removals both seeing "2 admins" and both
// proceeding would leave zero.
func (r *GroupRepository) CountAdminsForUpdate(tx *gorm.DB, groupID uuid.UUID) (int64, error) {
	var admins []models.GroupMember
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
		Find(&admins).Error
	return int64(len(admins)), err
}

func (r *GroupRepository) DeleteMemberInTx(tx *gorm.DB, groupID, userID uuid.UUID) error {
	return tx.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).Error
}
