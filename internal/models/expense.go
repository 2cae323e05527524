package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Expense struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"group_id"`
	Group        Group                `gorm:"foreignKey:GroupID" json:"-"`
	CreatedBy    uuid.UUID            `gorm:"type:uuid;not null" json:"created_by"`
	Creator      User                 `gorm:"foreignKey:CreatedBy" json:"-"`
	Amount       float64              `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description  string               `gorm:"not null" json:"description"`
	Category     string               `gorm:"size:100" json:"category,omitempty"`
	Participants []ExpenseParticipant `gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type ExpenseParticipant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseID uuid.UUID `gorm:"type:uuid;not null;index" json:"expense_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Share     float64   `gorm:"type:decimal(10,2);not null" json:"share"`
	Paid      float64   `gorm:"type:decimal(10,2);default:0" json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *ExpenseParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Balance is how far ahead (positive) or behind (negative) the participant
// is on this expense. Derived, never stored.
func (p *ExpenseParticipant) Balance() float64 {
	return p.Paid - p.Share
}

// Request structs
type ParticipantInput struct {
	UserID string   `json:"user_id" binding:"required,uuid"`
	Share  float64  `json:"share" binding:"gte=0"`
	Paid   *float64 `json:"paid" binding:"omitempty,gte=0"`
}

type CreateExpenseRequest struct {
	Amount       float64            `json:"amount" binding:"required,gt=0"`
	Description  string             `json:"description" binding:"required"`
	Category     string             `json:"category"`
	Participants []ParticipantInput `json:"participants"`
}

// UpdateExpenseRequest carries a partial update. A nil Participants pointer
// leaves the existing rows alone; a present (even empty) list is a full
// replace.
type UpdateExpenseRequest struct {
	Amount       *float64            `json:"amount" binding:"omitempty,gt=0"`
	Description  *string             `json:"description"`
	Category     *string             `json:"category"`
	Participants *[]ParticipantInput `json:"participants"`
}

// Response structs
type ExpenseResponse struct {
	ID           uuid.UUID             `json:"id"`
	GroupID      uuid.UUID             `json:"group_id"`
	CreatedBy    uuid.UUID             `json:"created_by"`
	Amount       float64               `json:"amount"`
	Description  string                `json:"description"`
	Category     string                `json:"category,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type ParticipantResponse struct {
	ID        uuid.UUID `json:"id"`
	ExpenseID uuid.UUID `json:"expense_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Share     float64   `json:"share"`
	Paid      float64   `json:"paid"`
	Balance   float64   `json:"balance"`
}

func (e *Expense) ToResponse() ExpenseResponse {
	resp := ExpenseResponse{
		ID:           e.ID,
		GroupID:      e.GroupID,
		CreatedBy:    e.CreatedBy,
		Amount:       e.Amount,
		Description:  e.Description,
		Category:     e.Category,
		Participants: []ParticipantResponse{},
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	for _, p := range e.Participants {
		resp.Participants = append(resp.Participants, p.ToResponse())
	}
	return resp
}

func (p *ExpenseParticipant) ToResponse() ParticipantResponse {
	return ParticipantResponse{
		ID:        p.ID,
		ExpenseID: p.ExpenseID,
		UserID:    p.UserID,
		UserName:  p.User.Name,
		Share:     p.Share,
		Paid:      p.Paid,
		Balance:   p.Balance(),
	}
}
