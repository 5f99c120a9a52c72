package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type Repos struct {
	Workshop     repos.WorkshopRepo
	StageInstance repos.StageInstanceRepo
	Artifact     repos.ArtifactRepo
	Summary      repos.StageSummaryRepo
	Message      repos.ConversationMessageRepo
	CanvasItem   repos.CanvasItemRepo
	UserCredit   repos.UserCreditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Workshop:     repos.NewWorkshopRepo(db, log),
		StageInstance: repos.NewStageInstanceRepo(db, log),
		Artifact:     repos.NewArtifactRepo(db, log),
		Summary:      repos.NewStageSummaryRepo(db, log),
		Message:      repos.NewConversationMessageRepo(db, log),
		CanvasItem:   repos.NewCanvasItemRepo(db, log),
		UserCredit:   repos.NewUserCreditRepo(db, log),
	}
}
