package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StageStatusNotStarted        = "not_started"
	StageStatusInProgress        = "in_progress"
	StageStatusComplete          = "complete"
	StageStatusNeedsRegeneration = "needs_regeneration"
)

// StageInstance is one workshop's progress through one stage definition.
// (workshop_id, stage_id) is unique.
type StageInstance struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkshopID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workshop_stage_key,priority:1;index" json:"workshop_id"`
	StageID    string    `gorm:"column:stage_id;not null;uniqueIndex:idx_workshop_stage_key,priority:2" json:"stage_id"`
	Ordinal    int       `gorm:"column:ordinal;not null;index" json:"ordinal"`
	Status     string    `gorm:"column:status;not null;default:'not_started';index" json:"status"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StageInstance) TableName() string { return "workshop_stage" }

func (s *StageInstance) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsComplete reports whether the stage carries a completion timestamp.
func (s *StageInstance) IsComplete() bool {
	return s != nil && s.CompletedAt != nil
}
