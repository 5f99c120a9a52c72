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

func TestConversationMessageRepoAppendAssignsSeq(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewConversationMessageRepo(db, testutil.Logger(t))

	_, si := testutil.SeedWorkshop(t, ctx, db, uuid.New(), time.Now().UTC(), nil)
	for _, turn := range []struct{ role, content string }{
		{types.RoleAssistant, "What problem are we solving?"},
		{types.RoleUser, "Patients wait too long at intake."},
		{types.RoleAssistant, "Who feels that most?"},
	} {
		if err := repo.Append(dbc, &types.ConversationMessage{
			WorkshopID:      si[0].WorkshopID,
			StageInstanceID: si[0].ID,
			StageID:         si[0].StageID,
			Role:            turn.role,
			Content:         turn.content,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := repo.Append(dbc, &types.ConversationMessage{WorkshopID: si[0].WorkshopID, StageInstanceID: si[0].ID, Content: "  "}); err == nil {
		t.Fatalf("Append(empty): expected error")
	}

	rows, err := repo.ListByStageInstance(dbc, si[0].ID)
	if err != nil {
		t.Fatalf("ListByStageInstance: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListByStageInstance: want=3 got=%d", len(rows))
	}
	for i, r := range rows {
		if r.Seq != int64(i+1) {
			t.Fatalf("seq[%d]: want=%d got=%d", i, i+1, r.Seq)
		}
	}

	testutil.SeedMessage(t, ctx, db, si[1], 1, types.RoleUser, "other stage")
	n, err := repo.DeleteByStageInstanceIDs(dbc, []uuid.UUID{si[0].ID, si[1].ID})
	if err != nil || n != 4 {
		t.Fatalf("DeleteByStageInstanceIDs: n=%d err=%v", n, err)
	}
}
