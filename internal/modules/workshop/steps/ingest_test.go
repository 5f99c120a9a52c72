package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/workshop-backend/internal/domain"
)

func TestAppendAndListMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	wsID := env.create(t, owner)
	deps := env.ingestDeps()

	turns := []AppendMessageInput{
		{Role: types.RoleUser, Content: "Our clinic loses patients at check-in."},
		{Role: types.RoleAssistant, Content: "Who feels that most?"},
		{Role: types.RoleUser, Content: "Older patients."},
	}
	for _, in := range turns {
		in.WorkshopID, in.UserID, in.StageID = wsID, owner, "challenge"
		if _, err := AppendMessage(ctx, deps, in); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	got, err := ListMessages(ctx, deps, StageRef{WorkshopID: wsID, UserID: owner, StageID: "challenge"})
	if err != nil || len(got) != 3 {
		t.Fatalf("ListMessages: len=%d err=%v", len(got), err)
	}
	for i, m := range got {
		if m.Seq != int64(i+1) || m.Content != turns[i].Content {
			t.Fatalf("message %d: got seq=%d content=%q", i, m.Seq, m.Content)
		}
	}

	cases := []struct {
		name string
		in   AppendMessageInput
		want error
	}{
		{"bad role", AppendMessageInput{WorkshopID: wsID, UserID: owner, StageID: "challenge", Role: "moderator", Content: "x"}, ErrInvalidInput},
		{"blank", AppendMessageInput{WorkshopID: wsID, UserID: owner, StageID: "challenge", Role: types.RoleUser, Content: "  "}, ErrInvalidInput},
		{"unknown stage", AppendMessageInput{WorkshopID: wsID, UserID: owner, StageID: "retro", Role: types.RoleUser, Content: "x"}, ErrStageNotFound},
		{"foreign user", AppendMessageInput{WorkshopID: wsID, UserID: uuid.New(), StageID: "challenge", Role: types.RoleUser, Content: "x"}, ErrWorkshopNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AppendMessage(ctx, deps, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, err)
			}
		})
	}
}

func TestReplaceCanvas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	wsID := env.create(t, owner)
	deps := env.ingestDeps()
	ref := StageRef{WorkshopID: wsID, UserID: owner, StageID: "stakeholder-mapping"}

	if _, err := ReplaceCanvas(ctx, deps, ReplaceCanvasInput{StageRef: ref, Items: []CanvasItemInput{
		{Label: "Nurses", Category: "Core"},
		{Label: "Insurers", Category: "Outer"},
	}}); err != nil {
		t.Fatalf("ReplaceCanvas(1): %v", err)
	}
	rows, err := ReplaceCanvas(ctx, deps, ReplaceCanvasInput{StageRef: ref, Items: []CanvasItemInput{
		{Label: "Receptionists", Category: "Core"},
		{Label: "   "},
	}})
	if err != nil || len(rows) != 1 {
		t.Fatalf("ReplaceCanvas(2): len=%d err=%v", len(rows), err)
	}
	got, err := ListCanvas(ctx, deps, ref)
	if err != nil || len(got) != 1 || got[0].Label != "Receptionists" {
		t.Fatalf("ListCanvas: got=%v err=%v", got, err)
	}
}
