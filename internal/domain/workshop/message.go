package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage is one turn of a stage's conversation. Seq orders turns
// within a stage instance.
type ConversationMessage struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkshopID      uuid.UUID `gorm:"type:uuid;not null;index" json:"workshop_id"`
	StageInstanceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stage_message_seq,priority:1" json:"stage_instance_id"`
	StageID         string    `gorm:"column:stage_id;not null" json:"stage_id"`
	Seq             int64     `gorm:"column:seq;not null;uniqueIndex:idx_stage_message_seq,priority:2" json:"seq"`
	Role            string    `gorm:"column:role;not null" json:"role"`
	Content         string    `gorm:"column:content;type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ConversationMessage) TableName() string { return "conversation_message" }

func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
