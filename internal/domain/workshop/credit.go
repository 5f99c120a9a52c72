package workshop

import (
	"time"

	"github.com/google/uuid"
)

// UserCredit is the per-user balance of workshop unlock credits.
type UserCredit struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Balance   int       `gorm:"column:balance;not null;default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserCredit) TableName() string { return "user_credit" }
