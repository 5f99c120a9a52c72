package domain

import (
	"github.com/yungbote/workshop-backend/internal/domain/workshop"
)

const (
	WorkshopStatusDraft     = workshop.WorkshopStatusDraft
	WorkshopStatusActive    = workshop.WorkshopStatusActive
	WorkshopStatusPaused    = workshop.WorkshopStatusPaused
	WorkshopStatusCompleted = workshop.WorkshopStatusCompleted

	StageStatusNotStarted        = workshop.StageStatusNotStarted
	StageStatusInProgress        = workshop.StageStatusInProgress
	StageStatusComplete          = workshop.StageStatusComplete
	StageStatusNeedsRegeneration = workshop.StageStatusNeedsRegeneration

	RoleUser      = workshop.RoleUser
	RoleAssistant = workshop.RoleAssistant
	RoleSystem    = workshop.RoleSystem
)

type (
	Workshop            = workshop.Workshop
	StageInstance       = workshop.StageInstance
	StageArtifact       = workshop.StageArtifact
	StageSummary        = workshop.StageSummary
	ConversationMessage = workshop.ConversationMessage
	CanvasItem          = workshop.CanvasItem
	UserCredit          = workshop.UserCredit
)

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&Workshop{},
		&StageInstance{},
		&StageArtifact{},
		&StageSummary{},
		&ConversationMessage{},
		&CanvasItem{},
		&UserCredit{},
	}
}
