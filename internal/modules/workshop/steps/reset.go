package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

type ResetInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
}

type ResetOutput struct {
	WipedStageIDs    []string `json:"wiped_stage_ids"`
	StagesReset      int64    `json:"stages_reset"`
	MessagesDeleted  int64    `json:"messages_deleted"`
	ArtifactsDeleted int64    `json:"artifacts_deleted"`
	SummariesDeleted int64    `json:"summaries_deleted"`
	WorkshopReopened bool     `json:"workshop_reopened"`
}

// Reset wipes StageID and every later stage: transcripts, artifacts and summaries
// go, StageID restarts in_progress and later stages return to not_started.
// Earlier stages are untouched. Canvas items are kept.
func Reset(ctx context.Context, deps StateMachineDeps, in ResetInput) (out ResetOutput, err error) {
	if err := deps.validate("reset"); err != nil {
		return ResetOutput{}, err
	}
	metrics := observability.Current()
	defer func() { metrics.IncStageTransition("reset", errorStatus(err)) }()

	def, ok := deps.Registry.Get(in.StageID)
	if !ok {
		return ResetOutput{}, fmt.Errorf("%w: %q", ErrStageNotFound, in.StageID)
	}
	wipe, _ := deps.Registry.Downstream(def.ID)

	ctx, span := observability.StartSpan(ctx, "workshop.reset",
		attribute.String("workshop.id", in.WorkshopID.String()),
		attribute.String("workshop.stage", def.ID),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			return err
		}
		instances, err := deps.Stages.ListByWorkshop(dbctx.Context{Ctx: ctx}, in.WorkshopID)
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			return ErrNoStagesForReset
		}
		res, err := deps.Aggregate.ForwardWipe(ctx, domainagg.ForwardWipeInput{
			WorkshopID:   in.WorkshopID,
			ResetStageID: def.ID,
			WipeStageIDs: wipe,
			At:           deps.now(),
		})
		if err != nil {
			if domainagg.IsCode(err, domainagg.CodeNotFound) {
				return fmt.Errorf("%w: %w", ErrNoStagesForReset, err)
			}
			return err
		}
		out = ResetOutput{
			WipedStageIDs:    wipe,
			StagesReset:      res.StagesReset,
			MessagesDeleted:  res.MessagesDeleted,
			ArtifactsDeleted: res.ArtifactsDeleted,
			SummariesDeleted: res.SummariesDeleted,
			WorkshopReopened: res.WorkshopReopened,
		}
		return nil
	})
	if err != nil {
		return ResetOutput{}, err
	}
	deps.log().Info("workshop reset",
		"workshop_id", in.WorkshopID,
		"stage_id", def.ID,
		"stages_reset", out.StagesReset,
		"messages_deleted", out.MessagesDeleted,
	)
	return out, nil
}
