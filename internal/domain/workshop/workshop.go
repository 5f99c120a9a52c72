package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WorkshopStatusDraft     = "draft"
	WorkshopStatusActive    = "active"
	WorkshopStatusPaused    = "paused"
	WorkshopStatusCompleted = "completed"
)

type Workshop struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title       string    `gorm:"column:title;not null;default:'Untitled workshop'" json:"title"`
	Status      string    `gorm:"column:status;not null;default:'draft';index" json:"status"`

	// CreditConsumedAt marks the workshop as unlocked past the paid stage boundary.
	CreditConsumedAt *time.Time `gorm:"column:credit_consumed_at" json:"credit_consumed_at,omitempty"`

	// CreatedAt doubles as the grandfathering reference for the payment gate.
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Workshop) TableName() string { return "workshop" }

func (w *Workshop) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
