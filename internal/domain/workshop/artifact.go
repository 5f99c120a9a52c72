package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StageArtifact is the structured result document for one stage instance.
// Version starts at 1 and every accepted write bumps it by exactly one.
type StageArtifact struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StageInstanceID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"stage_instance_id"`
	WorkshopID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"workshop_id"`
	Payload         datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	SchemaVersion   int            `gorm:"column:schema_version;not null;default:1" json:"schema_version"`
	Version         int            `gorm:"column:version;not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StageArtifact) TableName() string { return "stage_artifact" }

func (a *StageArtifact) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
