package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/lock"
)

func loadOwnedWorkshop(ctx context.Context, workshops repos.WorkshopRepo, workshopID, userID uuid.UUID) (*types.Workshop, error) {
	if workshops == nil {
		return nil, fmt.Errorf("workshop repo not configured")
	}
	if workshopID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing workshop_id or user_id", ErrInvalidInput)
	}
	ws, err := workshops.GetByIDForOwner(dbctx.Context{Ctx: ctx}, workshopID, userID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkshopNotFound
	}
	return ws, nil
}

func loadOwnedStageInstance(ctx context.Context, workshops repos.WorkshopRepo, stageRepo repos.StageInstanceRepo, workshopID, userID uuid.UUID, stageID string) (*types.StageInstance, error) {
	if stageRepo == nil {
		return nil, fmt.Errorf("stage instance repo not configured")
	}
	if _, err := loadOwnedWorkshop(ctx, workshops, workshopID, userID); err != nil {
		return nil, err
	}
	si, err := stageRepo.GetByWorkshopAndStage(dbctx.Context{Ctx: ctx}, workshopID, stageID)
	if err != nil {
		return nil, err
	}
	if si == nil {
		return nil, fmt.Errorf("%w: %q", ErrStageNotFound, stageID)
	}
	return si, nil
}

func workshopLockKey(workshopID uuid.UUID) string {
	return "workshop:" + workshopID.String()
}

// withWorkshopLock serializes fn per workshop. A nil locker runs fn unguarded.
func withWorkshopLock(ctx context.Context, locker lock.Locker, workshopID uuid.UUID, fn func() error) error {
	if locker == nil {
		return fn()
	}
	release, err := locker.Acquire(ctx, workshopLockKey(workshopID))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrWorkshopBusy, err)
	}
	defer release()
	return fn()
}

// errorStatus is the metrics label for an engine error.
func errorStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
