package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/repos/workshop"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type WorkshopRepo = workshop.WorkshopRepo
type StageInstanceRepo = workshop.StageInstanceRepo
type ArtifactRepo = workshop.ArtifactRepo
type StageSummaryRepo = workshop.StageSummaryRepo
type ConversationMessageRepo = workshop.ConversationMessageRepo
type CanvasItemRepo = workshop.CanvasItemRepo
type UserCreditRepo = workshop.UserCreditRepo

func NewWorkshopRepo(db *gorm.DB, baseLog *logger.Logger) WorkshopRepo {
	return workshop.NewWorkshopRepo(db, baseLog)
}

func NewStageInstanceRepo(db *gorm.DB, baseLog *logger.Logger) StageInstanceRepo {
	return workshop.NewStageInstanceRepo(db, baseLog)
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return workshop.NewArtifactRepo(db, baseLog)
}

func NewStageSummaryRepo(db *gorm.DB, baseLog *logger.Logger) StageSummaryRepo {
	return workshop.NewStageSummaryRepo(db, baseLog)
}

func NewConversationMessageRepo(db *gorm.DB, baseLog *logger.Logger) ConversationMessageRepo {
	return workshop.NewConversationMessageRepo(db, baseLog)
}

func NewCanvasItemRepo(db *gorm.DB, baseLog *logger.Logger) CanvasItemRepo {
	return workshop.NewCanvasItemRepo(db, baseLog)
}

func NewUserCreditRepo(db *gorm.DB, baseLog *logger.Logger) UserCreditRepo {
	return workshop.NewUserCreditRepo(db, baseLog)
}
