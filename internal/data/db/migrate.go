package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return ensureIndexes(db)
}

// ensureIndexes adds the composite lookups the context assembler and reset rely on.
// Both dialects accept CREATE INDEX IF NOT EXISTS.
func ensureIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_workshop_stage_workshop_ordinal", `CREATE INDEX IF NOT EXISTS idx_workshop_stage_workshop_ordinal ON workshop_stage (workshop_id, ordinal)`},
		{"idx_stage_summary_workshop_stage", `CREATE INDEX IF NOT EXISTS idx_stage_summary_workshop_stage ON stage_summary (workshop_id, stage_id)`},
		{"idx_conversation_message_workshop_stage", `CREATE INDEX IF NOT EXISTS idx_conversation_message_workshop_stage ON conversation_message (workshop_id, stage_id)`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
