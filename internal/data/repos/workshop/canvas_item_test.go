package workshop

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

func TestCanvasItemRepoReplaceForStage(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCanvasItemRepo(db, testutil.Logger(t))
	wsID := uuid.New()

	testutil.SeedCanvasItem(t, dbc.Ctx, db, wsID, "ideation", "stale idea", "")
	testutil.SeedCanvasItem(t, dbc.Ctx, db, wsID, "persona", "keep me", "")

	err := repo.ReplaceForStage(dbc, wsID, "ideation", []*types.CanvasItem{
		{Label: "Self check-in kiosk", Category: "tech"},
		{Label: "Pre-visit SMS form", Category: "comms"},
	})
	if err != nil {
		t.Fatalf("ReplaceForStage: %v", err)
	}
	items, err := repo.ListByStage(dbc, wsID, "ideation")
	if err != nil {
		t.Fatalf("ListByStage: %v", err)
	}
	if len(items) != 2 || items[0].Label != "Self check-in kiosk" || items[1].Label != "Pre-visit SMS form" {
		t.Fatalf("ListByStage: got=%+v", items)
	}
	other, _ := repo.ListByStage(dbc, wsID, "persona")
	if len(other) != 1 {
		t.Fatalf("other stage touched: len=%d", len(other))
	}
}
