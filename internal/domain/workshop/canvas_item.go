package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CanvasItem is a sticky note or card on a stage's whiteboard. Category groups
// items for grouped layouts; Row/Col place them for grid layouts.
type CanvasItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkshopID uuid.UUID `gorm:"type:uuid;not null;index:idx_canvas_stage,priority:1" json:"workshop_id"`
	StageID    string    `gorm:"column:stage_id;not null;index:idx_canvas_stage,priority:2" json:"stage_id"`
	Label      string    `gorm:"column:label;type:text;not null" json:"label"`
	Category   string    `gorm:"column:category" json:"category,omitempty"`
	Row        *int      `gorm:"column:row_index" json:"row,omitempty"`
	Col        *int      `gorm:"column:col_index" json:"col,omitempty"`
	SortIndex  int       `gorm:"column:sort_index;not null;default:0" json:"sort_index"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CanvasItem) TableName() string { return "canvas_item" }

func (c *CanvasItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
