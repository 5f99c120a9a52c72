package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StageSummary is the compressed synopsis written once when a stage completes.
type StageSummary struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StageInstanceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"stage_instance_id"`
	WorkshopID      uuid.UUID `gorm:"type:uuid;not null;index" json:"workshop_id"`
	StageID         string    `gorm:"column:stage_id;not null" json:"stage_id"`
	Summary         string    `gorm:"column:summary;type:text;not null" json:"summary"`
	TokenCount      *int      `gorm:"column:token_count" json:"token_count,omitempty"`
	IsFallback      bool      `gorm:"column:is_fallback;not null;default:false" json:"is_fallback"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (StageSummary) TableName() string { return "stage_summary" }

func (s *StageSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
