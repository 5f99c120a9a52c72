package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/observability"
)

type CompleteWorkshopInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
}

type CompleteWorkshopOutput struct {
	AlreadyCompleted bool     `json:"already_completed"`
	IncompleteStages []string `json:"incomplete_stages,omitempty"`
}

// CompleteWorkshop marks the workshop completed once every stage has a completion
// time. A completed workshop returns success without re-checking.
func CompleteWorkshop(ctx context.Context, deps StateMachineDeps, in CompleteWorkshopInput) (out CompleteWorkshopOutput, err error) {
	if err := deps.validate("complete workshop"); err != nil {
		return CompleteWorkshopOutput{}, err
	}
	metrics := observability.Current()
	defer func() { metrics.IncStageTransition("complete_workshop", errorStatus(err)) }()

	if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
		return CompleteWorkshopOutput{}, err
	}
	res, err := deps.Aggregate.Complete(ctx, domainagg.CompleteWorkshopInput{
		WorkshopID:       in.WorkshopID,
		RequiredStageIDs: deps.Registry.IDs(),
	})
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
			return CompleteWorkshopOutput{IncompleteStages: res.IncompleteStages}, fmt.Errorf("%w: %w", ErrStagesIncomplete, err)
		}
		return CompleteWorkshopOutput{}, err
	}
	if !res.AlreadyCompleted {
		deps.log().Info("workshop completed", "workshop_id", in.WorkshopID)
	}
	return CompleteWorkshopOutput{AlreadyCompleted: res.AlreadyCompleted}, nil
}
