package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type CanvasItemRepo interface {
	ListByStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string) ([]*types.CanvasItem, error)
	// ReplaceForStage swaps the whole snapshot of one stage's canvas.
	ReplaceForStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string, items []*types.CanvasItem) error
	DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error)
}

type canvasItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCanvasItemRepo(db *gorm.DB, baseLog *logger.Logger) CanvasItemRepo {
	return &canvasItemRepo{db: db, log: baseLog.With("repo", "CanvasItemRepo")}
}

func (r *canvasItemRepo) ListByStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string) ([]*types.CanvasItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CanvasItem
	if workshopID == uuid.Nil || stageID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ? AND stage_id = ?", workshopID, stageID).
		Order("sort_index ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *canvasItemRepo) ReplaceForStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string, items []*types.CanvasItem) error {
	replace := func(tx *gorm.DB) error {
		if err := tx.Where("workshop_id = ? AND stage_id = ?", workshopID, stageID).
			Delete(&types.CanvasItem{}).Error; err != nil {
			return err
		}
		rows := make([]*types.CanvasItem, 0, len(items))
		now := time.Now().UTC()
		for i, it := range items {
			if it == nil {
				continue
			}
			it.ID = uuid.Nil
			it.WorkshopID = workshopID
			it.StageID = stageID
			if it.SortIndex == 0 {
				it.SortIndex = i
			}
			it.CreatedAt = now
			it.UpdatedAt = now
			rows = append(rows, it)
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	}
	if dbc.Tx != nil {
		return replace(dbc.Tx.WithContext(dbc.Ctx))
	}
	return r.db.WithContext(dbc.Ctx).Transaction(replace)
}

func (r *canvasItemRepo) DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error) {
	if workshopID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Delete(&types.CanvasItem{})
	return res.RowsAffected, res.Error
}
