package steps

import (
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
)

// Engine sentinels carry an aggregate code so the request layer can map them
// to a status with domainagg.CodeOf.
var (
	ErrOptimisticLock    = sentinel(domainagg.CodeConflict, "optimistic lock conflict")
	ErrStageNotFound     = sentinel(domainagg.CodeNotFound, "stage not found")
	ErrInvalidTransition = sentinel(domainagg.CodeValidation, "invalid stage transition")
	ErrNoStagesForReset  = sentinel(domainagg.CodePreconditionFailed, "no workshop steps found for reset")
	ErrStagesIncomplete  = sentinel(domainagg.CodePreconditionFailed, "all steps must be completed")
	ErrWorkshopNotFound  = sentinel(domainagg.CodeNotFound, "workshop not found")
	ErrWorkshopBusy      = sentinel(domainagg.CodeRetryable, "workshop is busy, retry")
	ErrInvalidInput      = sentinel(domainagg.CodeValidation, "invalid input")
	ErrArtifactNotFound  = sentinel(domainagg.CodeNotFound, "artifact not found")
)

func sentinel(code domainagg.ErrorCode, msg string) error {
	return &domainagg.Error{Code: code, Message: msg}
}

var errMissingCreditRepo = sentinel(domainagg.CodeInternal, "credit repo not configured")
