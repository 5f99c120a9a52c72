package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

func TestCompleteWorkshopRequiresEveryStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	wsID := env.create(t, owner)
	env.sm.Gate.Config.Enabled = false
	env.advanceTo(t, wsID, owner, "synthesis")

	out, err := CompleteWorkshop(ctx, env.sm, CompleteWorkshopInput{WorkshopID: wsID, UserID: owner})
	if !errors.Is(err, ErrStagesIncomplete) {
		t.Fatalf("want ErrStagesIncomplete got=%v", err)
	}
	if len(out.IncompleteStages) != 1 || out.IncompleteStages[0] != "synthesis" {
		t.Fatalf("incomplete stages: want=[synthesis] got=%v", out.IncompleteStages)
	}
	ws, _ := env.workshops.GetByID(dbctx.Context{Ctx: ctx}, wsID)
	if ws.Status == types.WorkshopStatusCompleted {
		t.Fatalf("workshop completed with an open stage")
	}

	if _, err := CompleteStage(ctx, env.sm, CompleteStageInput{WorkshopID: wsID, UserID: owner, StageID: "synthesis"}); err != nil {
		t.Fatalf("CompleteStage: %v", err)
	}
	out, err = CompleteWorkshop(ctx, env.sm, CompleteWorkshopInput{WorkshopID: wsID, UserID: owner})
	if err != nil || out.AlreadyCompleted {
		t.Fatalf("CompleteWorkshop: out=%+v err=%v", out, err)
	}
	ws, _ = env.workshops.GetByID(dbctx.Context{Ctx: ctx}, wsID)
	if ws.Status != types.WorkshopStatusCompleted {
		t.Fatalf("workshop status: want=%s got=%s", types.WorkshopStatusCompleted, ws.Status)
	}
	updated := ws.UpdatedAt

	out, err = CompleteWorkshop(ctx, env.sm, CompleteWorkshopInput{WorkshopID: wsID, UserID: owner})
	if err != nil || !out.AlreadyCompleted {
		t.Fatalf("CompleteWorkshop(again): out=%+v err=%v", out, err)
	}
	ws, _ = env.workshops.GetByID(dbctx.Context{Ctx: ctx}, wsID)
	if !ws.UpdatedAt.Equal(updated) {
		t.Fatalf("second completion had side effects: updated_at %v -> %v", updated, ws.UpdatedAt)
	}
}

func TestCompleteWorkshopRefusesStagesFlaggedForRegeneration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	wsID := env.create(t, owner)
	env.sm.Gate.Config.Enabled = false
	env.advanceTo(t, wsID, owner, "synthesis")
	if _, err := CompleteStage(ctx, env.sm, CompleteStageInput{WorkshopID: wsID, UserID: owner, StageID: "synthesis"}); err != nil {
		t.Fatalf("CompleteStage: %v", err)
	}

	n, err := MarkNeedsRegeneration(ctx, env.sm, MarkNeedsRegenerationInput{WorkshopID: wsID, UserID: owner, StageID: "user-research"})
	if err != nil || n == 0 {
		t.Fatalf("MarkNeedsRegeneration: n=%d err=%v", n, err)
	}
	flagged := env.stage(t, wsID, "sense-making")
	if flagged.Status != types.StageStatusNeedsRegeneration || flagged.CompletedAt != nil {
		t.Fatalf("flagged stage keeps its completion: %+v", flagged)
	}

	out, err := CompleteWorkshop(ctx, env.sm, CompleteWorkshopInput{WorkshopID: wsID, UserID: owner})
	if !errors.Is(err, ErrStagesIncomplete) {
		t.Fatalf("want ErrStagesIncomplete got=%v", err)
	}
	if len(out.IncompleteStages) != int(n) {
		t.Fatalf("incomplete stages: want %d flagged got=%v", n, out.IncompleteStages)
	}
	ws, _ := env.workshops.GetByID(dbctx.Context{Ctx: ctx}, wsID)
	if ws.Status == types.WorkshopStatusCompleted {
		t.Fatalf("workshop completed with stages awaiting regeneration")
	}
}
