package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
)

// DefaultStageIDs mirrors the canonical ten-stage workflow.
var DefaultStageIDs = []string{
	"challenge",
	"stakeholder-mapping",
	"user-research",
	"sense-making",
	"persona",
	"journey-mapping",
	"reframe",
	"ideation",
	"concept",
	"synthesis",
}

// SeedWorkshop inserts a workshop with one instance per stage id; the first is in_progress.
func SeedWorkshop(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, createdAt time.Time, stageIDs []string) (*types.Workshop, []*types.StageInstance) {
	tb.Helper()
	if stageIDs == nil {
		stageIDs = DefaultStageIDs
	}
	w := &types.Workshop{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Title:       "Seeded workshop",
		Status:      types.WorkshopStatusActive,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed workshop: %v", err)
	}
	instances := make([]*types.StageInstance, 0, len(stageIDs))
	for i, id := range stageIDs {
		si := &types.StageInstance{
			ID:         uuid.New(),
			WorkshopID: w.ID,
			StageID:    id,
			Ordinal:    i + 1,
			Status:     types.StageStatusNotStarted,
			CreatedAt:  createdAt.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:  createdAt,
		}
		if i == 0 {
			si.Status = types.StageStatusInProgress
			started := createdAt
			si.StartedAt = &started
		}
		instances = append(instances, si)
	}
	if len(instances) == 0 {
		return w, instances
	}
	if err := tx.WithContext(ctx).Create(&instances).Error; err != nil {
		tb.Fatalf("seed stage instances: %v", err)
	}
	return w, instances
}

func SeedSummary(tb testing.TB, ctx context.Context, tx *gorm.DB, si *types.StageInstance, text string) *types.StageSummary {
	tb.Helper()
	s := &types.StageSummary{
		StageInstanceID: si.ID,
		WorkshopID:      si.WorkshopID,
		StageID:         si.StageID,
		Summary:         text,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed summary: %v", err)
	}
	return s
}

func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, si *types.StageInstance, payload string) *types.StageArtifact {
	tb.Helper()
	a := &types.StageArtifact{
		StageInstanceID: si.ID,
		WorkshopID:      si.WorkshopID,
		Payload:         datatypes.JSON([]byte(payload)),
		SchemaVersion:   1,
		Version:         1,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return a
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, si *types.StageInstance, seq int64, role, content string) *types.ConversationMessage {
	tb.Helper()
	m := &types.ConversationMessage{
		WorkshopID:      si.WorkshopID,
		StageInstanceID: si.ID,
		StageID:         si.StageID,
		Seq:             seq,
		Role:            role,
		Content:         content,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedCanvasItem(tb testing.TB, ctx context.Context, tx *gorm.DB, workshopID uuid.UUID, stageID, label, category string) *types.CanvasItem {
	tb.Helper()
	c := &types.CanvasItem{
		WorkshopID: workshopID,
		StageID:    stageID,
		Label:      label,
		Category:   category,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed canvas item: %v", err)
	}
	return c
}

func ReloadStage(tb testing.TB, tx *gorm.DB, id uuid.UUID) *types.StageInstance {
	tb.Helper()
	var si types.StageInstance
	if err := tx.Where("id = ?", id).First(&si).Error; err != nil {
		tb.Fatalf("reload stage %s: %v", id, err)
	}
	return &si
}

func CountRows(tb testing.TB, tx *gorm.DB, model any, where string, args ...any) int64 {
	tb.Helper()
	var n int64
	if err := tx.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		tb.Fatalf("count rows: %v", err)
	}
	return n
}
