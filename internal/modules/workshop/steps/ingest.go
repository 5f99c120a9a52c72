package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

// IngestDeps feeds the transcript and canvas stores the summary generator and
// context assembler read from.
type IngestDeps struct {
	Workshops repos.WorkshopRepo
	Stages    repos.StageInstanceRepo
	Messages  repos.ConversationMessageRepo
	Canvas    repos.CanvasItemRepo
}

type AppendMessageInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
	Role       string
	Content    string
}

func AppendMessage(ctx context.Context, deps IngestDeps, in AppendMessageInput) (*types.ConversationMessage, error) {
	if deps.Messages == nil {
		return nil, fmt.Errorf("append message: missing deps")
	}
	switch in.Role {
	case types.RoleUser, types.RoleAssistant, types.RoleSystem:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return nil, err
	}
	row := &types.ConversationMessage{
		WorkshopID:      si.WorkshopID,
		StageInstanceID: si.ID,
		StageID:         si.StageID,
		Role:            in.Role,
		Content:         in.Content,
	}
	if err := deps.Messages.Append(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, err
	}
	return row, nil
}

type StageRef struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
}

func ListMessages(ctx context.Context, deps IngestDeps, in StageRef) ([]*types.ConversationMessage, error) {
	if deps.Messages == nil {
		return nil, fmt.Errorf("list messages: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return nil, err
	}
	return deps.Messages.ListByStageInstance(dbctx.Context{Ctx: ctx}, si.ID)
}

type CanvasItemInput struct {
	Label     string `json:"label"`
	Category  string `json:"category,omitempty"`
	Row       *int   `json:"row,omitempty"`
	Col       *int   `json:"col,omitempty"`
	SortIndex int    `json:"sort_index"`
}

type ReplaceCanvasInput struct {
	StageRef
	Items []CanvasItemInput
}

// ReplaceCanvas swaps the stage's whole canvas snapshot. Items with a blank label are dropped.
func ReplaceCanvas(ctx context.Context, deps IngestDeps, in ReplaceCanvasInput) ([]*types.CanvasItem, error) {
	if deps.Canvas == nil {
		return nil, fmt.Errorf("replace canvas: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return nil, err
	}
	rows := make([]*types.CanvasItem, 0, len(in.Items))
	for _, it := range in.Items {
		label := strings.TrimSpace(it.Label)
		if label == "" {
			continue
		}
		rows = append(rows, &types.CanvasItem{
			WorkshopID: si.WorkshopID,
			StageID:    si.StageID,
			Label:      label,
			Category:   strings.TrimSpace(it.Category),
			Row:        it.Row,
			Col:        it.Col,
			SortIndex:  it.SortIndex,
		})
	}
	if err := deps.Canvas.ReplaceForStage(dbctx.Context{Ctx: ctx}, si.WorkshopID, si.StageID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func ListCanvas(ctx context.Context, deps IngestDeps, in StageRef) ([]*types.CanvasItem, error) {
	if deps.Canvas == nil {
		return nil, fmt.Errorf("list canvas: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return nil, err
	}
	return deps.Canvas.ListByStage(dbctx.Context{Ctx: ctx}, si.WorkshopID, si.StageID)
}
