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

func TestWorkshopRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewWorkshopRepo(db, testutil.Logger(t))

	owner := uuid.New()
	w := &types.Workshop{OwnerUserID: owner, Title: "Clinic intake", Status: types.WorkshopStatusActive}
	if err := repo.Create(dbc, []*types.Workshop{w}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.ID == uuid.Nil {
		t.Fatalf("Create: expected generated id")
	}

	got, err := repo.GetByIDForOwner(dbc, w.ID, owner)
	if err != nil || got == nil {
		t.Fatalf("GetByIDForOwner: got=%v err=%v", got, err)
	}
	if other, err := repo.GetByIDForOwner(dbc, w.ID, uuid.New()); err != nil || other != nil {
		t.Fatalf("GetByIDForOwner(other owner): want nil got=%v err=%v", other, err)
	}

	consumed := time.Now().UTC()
	if err := repo.UpdateFields(dbc, w.ID, map[string]interface{}{"credit_consumed_at": consumed}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, w.ID)
	if got.CreditConsumedAt == nil {
		t.Fatalf("UpdateFields: credit_consumed_at not persisted")
	}

	list, err := repo.ListByOwner(dbc, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByOwner: len=%d err=%v", len(list), err)
	}

	n, err := repo.SoftDelete(dbc, w.ID)
	if err != nil || n != 1 {
		t.Fatalf("SoftDelete: n=%d err=%v", n, err)
	}
	if got, err := repo.GetByID(dbc, w.ID); err != nil || got != nil {
		t.Fatalf("GetByID after soft delete: want nil got=%v err=%v", got, err)
	}
	var raw int64
	db.Unscoped().Model(&types.Workshop{}).Where("id = ?", w.ID).Count(&raw)
	if raw != 1 {
		t.Fatalf("soft delete should keep the row: count=%d", raw)
	}
}

func TestStageInstanceRepoOrderingAndUniqueness(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewStageInstanceRepo(db, testutil.Logger(t))

	w, seeded := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)

	list, err := repo.ListByWorkshop(dbc, w.ID)
	if err != nil {
		t.Fatalf("ListByWorkshop: %v", err)
	}
	if len(list) != 10 {
		t.Fatalf("ListByWorkshop: want=10 got=%d", len(list))
	}
	for i, si := range list {
		if si.StageID != testutil.DefaultStageIDs[i] {
			t.Fatalf("order[%d]: want=%s got=%s", i, testutil.DefaultStageIDs[i], si.StageID)
		}
	}

	dup := &types.StageInstance{WorkshopID: w.ID, StageID: "persona", Ordinal: 5, Status: types.StageStatusNotStarted}
	if err := repo.Create(dbc, []*types.StageInstance{dup}); err == nil {
		t.Fatalf("Create duplicate (workshop, stage): expected unique violation")
	}

	n, err := repo.UpdateFieldsByStageIDs(dbc, w.ID, []string{"persona", "reframe"}, map[string]interface{}{"status": types.StageStatusComplete})
	if err != nil || n != 2 {
		t.Fatalf("UpdateFieldsByStageIDs: n=%d err=%v", n, err)
	}
	got, err := repo.GetByWorkshopAndStage(dbc, w.ID, "reframe")
	if err != nil || got == nil || got.Status != types.StageStatusComplete {
		t.Fatalf("GetByWorkshopAndStage: got=%+v err=%v", got, err)
	}
	if missing, err := repo.GetByWorkshopAndStage(dbc, w.ID, "nope"); err != nil || missing != nil {
		t.Fatalf("GetByWorkshopAndStage(missing): want nil got=%v err=%v", missing, err)
	}
	if byID, err := repo.GetByID(dbc, seeded[0].ID); err != nil || byID.StageID != "challenge" {
		t.Fatalf("GetByID: got=%+v err=%v", byID, err)
	}
}
