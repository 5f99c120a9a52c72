package workshop

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

func TestStageSummaryRepoListsInWorkflowOrder(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewStageSummaryRepo(db, testutil.Logger(t))

	w, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)
	// insert out of workflow order so ordering must come from the stage instances
	testutil.SeedSummary(t, ctx, db, si[4], "persona summary")
	testutil.SeedSummary(t, ctx, db, si[0], "challenge summary")
	testutil.SeedSummary(t, ctx, db, si[2], "research summary")

	rows, err := repo.ListForStages(dbc, w.ID, []string{"persona", "challenge"}, "")
	if err != nil {
		t.Fatalf("ListForStages: %v", err)
	}
	if len(rows) != 2 || rows[0].StageID != "challenge" || rows[1].StageID != "persona" {
		t.Fatalf("ListForStages order: got=%v", stageIDsOf(rows))
	}

	all, err := repo.ListForStages(dbc, w.ID, nil, "user-research")
	if err != nil {
		t.Fatalf("ListForStages(all): %v", err)
	}
	if got := stageIDsOf(all); len(got) != 2 || got[0] != "challenge" || got[1] != "persona" {
		t.Fatalf("ListForStages(all) excluding current: got=%v", got)
	}

	empty, err := repo.ListForStages(dbc, w.ID, []string{}, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListForStages(empty): len=%d err=%v", len(empty), err)
	}
}

func TestStageSummaryRepoCreateIfAbsentIsWriteOnce(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewStageSummaryRepo(db, testutil.Logger(t))

	_, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)

	created, err := repo.CreateIfAbsent(dbc, &types.StageSummary{StageInstanceID: si[0].ID, WorkshopID: si[0].WorkshopID, StageID: si[0].StageID, Summary: "first"})
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent first: created=%v err=%v", created, err)
	}
	created, err = repo.CreateIfAbsent(dbc, &types.StageSummary{StageInstanceID: si[0].ID, WorkshopID: si[0].WorkshopID, StageID: si[0].StageID, Summary: "second"})
	if err != nil || created {
		t.Fatalf("CreateIfAbsent second: created=%v err=%v", created, err)
	}
	exists, err := repo.ExistsForStageInstance(dbc, si[0].ID)
	if err != nil || !exists {
		t.Fatalf("ExistsForStageInstance: exists=%v err=%v", exists, err)
	}
	rows, _ := repo.ListForStages(dbc, si[0].WorkshopID, nil, "")
	if len(rows) != 1 || rows[0].Summary != "first" {
		t.Fatalf("summary overwritten: %+v", rows)
	}

	n, err := repo.DeleteByStageInstanceIDs(dbc, []uuid.UUID{si[0].ID})
	if err != nil || n != 1 {
		t.Fatalf("DeleteByStageInstanceIDs: n=%d err=%v", n, err)
	}
}

func stageIDsOf(rows []*types.StageSummary) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StageID)
	}
	return out
}
