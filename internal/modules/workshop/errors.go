package workshop

import "github.com/yungbote/workshop-backend/internal/modules/workshop/steps"

var (
	ErrOptimisticLock    = steps.ErrOptimisticLock
	ErrStageNotFound     = steps.ErrStageNotFound
	ErrInvalidTransition = steps.ErrInvalidTransition
	ErrNoStagesForReset  = steps.ErrNoStagesForReset
	ErrStagesIncomplete  = steps.ErrStagesIncomplete
	ErrWorkshopNotFound  = steps.ErrWorkshopNotFound
	ErrWorkshopBusy      = steps.ErrWorkshopBusy
	ErrInvalidInput      = steps.ErrInvalidInput
	ErrArtifactNotFound  = steps.ErrArtifactNotFound
)
