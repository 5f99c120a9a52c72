package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	"github.com/yungbote/workshop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
)

func newTestWorkshopAggregate(t *testing.T, db *gorm.DB) domainagg.WorkshopAggregate {
	t.Helper()
	log := testutil.Logger(t)
	return NewWorkshopAggregate(WorkshopAggregateDeps{
		Base:      BaseDeps{DB: db, Log: log},
		Workshops: repos.NewWorkshopRepo(db, log),
		Stages:    repos.NewStageInstanceRepo(db, log),
		Artifacts: repos.NewArtifactRepo(db, log),
		Summaries: repos.NewStageSummaryRepo(db, log),
		Messages:  repos.NewConversationMessageRepo(db, log),
		Canvas:    repos.NewCanvasItemRepo(db, log),
		Credits:   repos.NewUserCreditRepo(db, log),
	})
}

func seedsFor(ids []string) []domainagg.StageSeed {
	out := make([]domainagg.StageSeed, 0, len(ids))
	for i, id := range ids {
		out = append(out, domainagg.StageSeed{StageID: id, Ordinal: i + 1})
	}
	return out
}

func TestWorkshopAggregateCreate(t *testing.T) {
	db := testutil.DB(t)
	agg := newTestWorkshopAggregate(t, db)

	res, err := agg.Create(context.Background(), domainagg.CreateWorkshopInput{
		OwnerUserID: uuid.New(),
		Title:       "Clinic intake",
		Stages:      seedsFor(testutil.DefaultStageIDs),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(res.StageInstanceIDs) != 10 {
		t.Fatalf("stage instances: want=10 got=%d", len(res.StageInstanceIDs))
	}
	first := testutil.ReloadStage(t, db, res.StageInstanceIDs["challenge"])
	if first.Status != types.StageStatusInProgress || first.StartedAt == nil {
		t.Fatalf("first stage: want in_progress with started_at, got=%+v", first)
	}
	second := testutil.ReloadStage(t, db, res.StageInstanceIDs["stakeholder-mapping"])
	if second.Status != types.StageStatusNotStarted {
		t.Fatalf("second stage: want not_started got=%s", second.Status)
	}

	_, err = agg.Create(context.Background(), domainagg.CreateWorkshopInput{
		OwnerUserID: uuid.New(),
		Stages:      seedsFor([]string{"a", "a"}),
	})
	if !errors.Is(err, domainagg.ErrCodeValidation) {
		t.Fatalf("duplicate stage ids: want validation got=%v", err)
	}
}

func TestWorkshopAggregateTransitionIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)

	in := domainagg.TransitionInput{WorkshopID: w.ID, FromStageID: "challenge", ToStageID: "stakeholder-mapping"}
	res, err := agg.Transition(ctx, in)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !res.FromCompleted || !res.ToStarted {
		t.Fatalf("first transition: want both steps applied, got=%+v", res)
	}
	from := testutil.ReloadStage(t, db, si[0].ID)
	to := testutil.ReloadStage(t, db, si[1].ID)
	if from.Status != types.StageStatusComplete || from.CompletedAt == nil {
		t.Fatalf("from: want complete got=%+v", from)
	}
	if to.Status != types.StageStatusInProgress || to.StartedAt == nil {
		t.Fatalf("to: want in_progress got=%+v", to)
	}
	completedAt := *from.CompletedAt

	res, err = agg.Transition(ctx, in)
	if err != nil {
		t.Fatalf("Transition retry: %v", err)
	}
	if res.FromCompleted || res.ToStarted {
		t.Fatalf("retry should be a no-op, got=%+v", res)
	}
	again := testutil.ReloadStage(t, db, si[0].ID)
	if !again.CompletedAt.Equal(completedAt) {
		t.Fatalf("completed_at rewritten: before=%v after=%v", completedAt, again.CompletedAt)
	}
}

func TestWorkshopAggregateTransitionMissingWorkshop(t *testing.T) {
	db := testutil.DB(t)
	agg := newTestWorkshopAggregate(t, db)
	_, err := agg.Transition(context.Background(), domainagg.TransitionInput{
		WorkshopID: uuid.New(), FromStageID: "challenge", ToStageID: "persona",
	})
	if !errors.Is(err, domainagg.ErrCodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
}

func TestWorkshopAggregateTransitionRejectsUnstartedFrom(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)

	_, err := agg.Transition(ctx, domainagg.TransitionInput{WorkshopID: w.ID, FromStageID: si[1].StageID, ToStageID: si[2].StageID})
	if !errors.Is(err, domainagg.ErrCodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
	for i, want := range []string{types.StageStatusInProgress, types.StageStatusNotStarted, types.StageStatusNotStarted} {
		got := testutil.ReloadStage(t, db, si[i].ID)
		if got.Status != want || got.CompletedAt != nil {
			t.Fatalf("%s: want=%s got=%+v", si[i].StageID, want, got)
		}
	}

	_, err = agg.CompleteStage(ctx, domainagg.CompleteStageInput{WorkshopID: w.ID, StageID: si[len(si)-1].StageID})
	if !errors.Is(err, domainagg.ErrCodeConflict) {
		t.Fatalf("CompleteStage on unstarted stage: want conflict got=%v", err)
	}
}

func TestWorkshopAggregateForwardWipe(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)

	// walk through the first five stages and leave traces in each
	for i := 0; i < 5; i++ {
		testutil.SeedMessage(t, ctx, db, si[i], 1, types.RoleUser, "turn")
		testutil.SeedArtifact(t, ctx, db, si[i], `{"k":1}`)
		testutil.SeedSummary(t, ctx, db, si[i], "summary")
		if _, err := agg.Transition(ctx, domainagg.TransitionInput{
			WorkshopID: w.ID, FromStageID: si[i].StageID, ToStageID: si[i+1].StageID,
		}); err != nil {
			t.Fatalf("Transition %d: %v", i, err)
		}
	}
	testutil.SeedCanvasItem(t, ctx, db, w.ID, "user-research", "kept", "")

	res, err := agg.ForwardWipe(ctx, domainagg.ForwardWipeInput{
		WorkshopID:   w.ID,
		ResetStageID: "user-research",
		WipeStageIDs: testutil.DefaultStageIDs[2:],
	})
	if err != nil {
		t.Fatalf("ForwardWipe: %v", err)
	}
	if res.MessagesDeleted != 3 || res.ArtifactsDeleted != 3 || res.SummariesDeleted != 3 {
		t.Fatalf("deleted counts: %+v", res)
	}
	if res.StagesReset != 8 {
		t.Fatalf("stages reset: want=8 got=%d", res.StagesReset)
	}

	reset := testutil.ReloadStage(t, db, si[2].ID)
	if reset.Status != types.StageStatusInProgress || reset.CompletedAt != nil {
		t.Fatalf("reset stage: got=%+v", reset)
	}
	for _, later := range si[3:] {
		got := testutil.ReloadStage(t, db, later.ID)
		if got.Status != types.StageStatusNotStarted || got.StartedAt != nil || got.CompletedAt != nil {
			t.Fatalf("later stage %s: got=%+v", later.StageID, got)
		}
	}
	for _, earlier := range si[:2] {
		got := testutil.ReloadStage(t, db, earlier.ID)
		if got.Status != types.StageStatusComplete {
			t.Fatalf("earlier stage %s touched: %+v", earlier.StageID, got)
		}
		if n := testutil.CountRows(t, db, &types.StageSummary{}, "stage_instance_id = ?", earlier.ID); n != 1 {
			t.Fatalf("earlier summary deleted for %s", earlier.StageID)
		}
	}
	if n := testutil.CountRows(t, db, &types.CanvasItem{}, "workshop_id = ?", w.ID); n != 1 {
		t.Fatalf("canvas items must survive a reset, count=%d", n)
	}
}

func TestWorkshopAggregateCompleteAndReopen(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	ids := []string{"one", "two"}
	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), ids)

	res, err := agg.Complete(ctx, domainagg.CompleteWorkshopInput{WorkshopID: w.ID, RequiredStageIDs: ids})
	if !errors.Is(err, &domainagg.Error{Code: domainagg.CodeInvariantViolation}) {
		t.Fatalf("Complete with open stages: want invariant violation got=%v", err)
	}
	if len(res.IncompleteStages) != 2 {
		t.Fatalf("incomplete stages: got=%v", res.IncompleteStages)
	}

	now := time.Now().UTC()
	db.Model(&types.StageInstance{}).Where("workshop_id = ?", w.ID).
		Updates(map[string]interface{}{"status": types.StageStatusComplete, "completed_at": now})

	res, err = agg.Complete(ctx, domainagg.CompleteWorkshopInput{WorkshopID: w.ID, RequiredStageIDs: ids})
	if err != nil || res.AlreadyCompleted {
		t.Fatalf("Complete: res=%+v err=%v", res, err)
	}
	res, err = agg.Complete(ctx, domainagg.CompleteWorkshopInput{WorkshopID: w.ID, RequiredStageIDs: ids})
	if err != nil || !res.AlreadyCompleted {
		t.Fatalf("Complete again: want AlreadyCompleted, res=%+v err=%v", res, err)
	}

	wipe, err := agg.ForwardWipe(ctx, domainagg.ForwardWipeInput{WorkshopID: w.ID, ResetStageID: "two", WipeStageIDs: []string{"two"}})
	if err != nil || !wipe.WorkshopReopened {
		t.Fatalf("ForwardWipe on completed workshop: res=%+v err=%v", wipe, err)
	}
	if got := testutil.ReloadStage(t, db, si[1].ID); got.Status != types.StageStatusInProgress {
		t.Fatalf("reset stage: got=%s", got.Status)
	}
}

func TestWorkshopAggregateFlagNeedsRegeneration(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), []string{"a", "b", "c"})
	db.Model(&types.StageInstance{}).Where("id IN ?", []uuid.UUID{si[0].ID, si[1].ID}).
		Updates(map[string]interface{}{"status": types.StageStatusComplete, "completed_at": time.Now().UTC()})

	n, err := agg.FlagNeedsRegeneration(ctx, domainagg.FlagNeedsRegenerationInput{WorkshopID: w.ID, StageIDs: []string{"b", "c"}})
	if err != nil || n != 1 {
		t.Fatalf("FlagNeedsRegeneration: n=%d err=%v", n, err)
	}
	if got := testutil.ReloadStage(t, db, si[1].ID); got.Status != types.StageStatusNeedsRegeneration || got.CompletedAt != nil {
		t.Fatalf("b: want needs_regeneration without completed_at got=%+v", got)
	}
	if got := testutil.ReloadStage(t, db, si[2].ID); got.Status != types.StageStatusNotStarted {
		t.Fatalf("c: not started stages are not flagged, got=%s", got.Status)
	}

	res, err := agg.Complete(ctx, domainagg.CompleteWorkshopInput{WorkshopID: w.ID, RequiredStageIDs: []string{"a", "b"}})
	if !errors.Is(err, &domainagg.Error{Code: domainagg.CodeInvariantViolation}) || len(res.IncompleteStages) != 1 || res.IncompleteStages[0] != "b" {
		t.Fatalf("Complete with flagged stage: res=%+v err=%v", res, err)
	}
}

func TestWorkshopAggregateDeleteCascades(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	owner := uuid.New()
	w, si := testutil.SeedWorkshop(t, ctx, db, owner, time.Now().UTC(), nil)
	testutil.SeedMessage(t, ctx, db, si[0], 1, types.RoleUser, "hi")
	testutil.SeedSummary(t, ctx, db, si[0], "s")
	testutil.SeedCanvasItem(t, ctx, db, w.ID, "challenge", "note", "")

	if err := agg.Delete(ctx, domainagg.DeleteWorkshopInput{WorkshopID: w.ID, OwnerUserID: uuid.New()}); !errors.Is(err, domainagg.ErrCodeNotFound) {
		t.Fatalf("Delete by stranger: want not_found got=%v", err)
	}
	if err := agg.Delete(ctx, domainagg.DeleteWorkshopInput{WorkshopID: w.ID, OwnerUserID: owner}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, m := range []any{&types.StageInstance{}, &types.ConversationMessage{}, &types.StageSummary{}, &types.CanvasItem{}} {
		if n := testutil.CountRows(t, db, m, "workshop_id = ?", w.ID); n != 0 {
			t.Fatalf("%T rows left after delete: %d", m, n)
		}
	}
}

func TestWorkshopAggregateConsumeCredit(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTestWorkshopAggregate(t, db)
	owner := uuid.New()
	w, _ := testutil.SeedWorkshop(t, ctx, db, owner, time.Now().UTC(), nil)

	_, err := agg.ConsumeCredit(ctx, domainagg.ConsumeCreditInput{WorkshopID: w.ID, UserID: owner})
	if !errors.Is(err, domainagg.ErrCodePrecondition) {
		t.Fatalf("no credits: want precondition_failed got=%v", err)
	}

	credits := repos.NewUserCreditRepo(db, testutil.Logger(t))
	if err := credits.Grant(dbcFor(ctx), owner, 1); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	res, err := agg.ConsumeCredit(ctx, domainagg.ConsumeCreditInput{WorkshopID: w.ID, UserID: owner})
	if err != nil || res.AlreadyConsumed || res.RemainingBalance != 0 {
		t.Fatalf("ConsumeCredit: res=%+v err=%v", res, err)
	}
	res, err = agg.ConsumeCredit(ctx, domainagg.ConsumeCreditInput{WorkshopID: w.ID, UserID: owner})
	if err != nil || !res.AlreadyConsumed {
		t.Fatalf("ConsumeCredit again: want AlreadyConsumed, res=%+v err=%v", res, err)
	}
}
