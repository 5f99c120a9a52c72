package workshop

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type StageInstanceRepo interface {
	Create(dbc dbctx.Context, rows []*types.StageInstance) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StageInstance, error)
	GetByWorkshopAndStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string) (*types.StageInstance, error)
	// ListByWorkshop returns instances in workflow order.
	ListByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) ([]*types.StageInstance, error)
	UpdateFieldsByStageIDs(dbc dbctx.Context, workshopID uuid.UUID, stageIDs []string, updates map[string]interface{}) (int64, error)
	DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error)
}

type stageInstanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageInstanceRepo(db *gorm.DB, baseLog *logger.Logger) StageInstanceRepo {
	return &stageInstanceRepo{db: db, log: baseLog.With("repo", "StageInstanceRepo")}
}

func (r *stageInstanceRepo) Create(dbc dbctx.Context, rows []*types.StageInstance) error {
	if len(rows) == 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *stageInstanceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StageInstance, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing stage_instance_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StageInstance
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *stageInstanceRepo) GetByWorkshopAndStage(dbc dbctx.Context, workshopID uuid.UUID, stageID string) (*types.StageInstance, error) {
	if workshopID == uuid.Nil || stageID == "" {
		return nil, fmt.Errorf("missing workshop_id or stage_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StageInstance
	err := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ? AND stage_id = ?", workshopID, stageID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *stageInstanceRepo) ListByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) ([]*types.StageInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StageInstance
	if workshopID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Order("ordinal ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stageInstanceRepo) UpdateFieldsByStageIDs(dbc dbctx.Context, workshopID uuid.UUID, stageIDs []string, updates map[string]interface{}) (int64, error) {
	if workshopID == uuid.Nil || len(stageIDs) == 0 || len(updates) == 0 {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.StageInstance{}).
		Where("workshop_id = ? AND stage_id IN ?", workshopID, stageIDs).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *stageInstanceRepo) DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error) {
	if workshopID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Delete(&types.StageInstance{})
	return res.RowsAffected, res.Error
}
