package workshop

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

// ArtifactRepo covers reads and deletes. Versioned writes go through the artifact aggregate.
type ArtifactRepo interface {
	Create(dbc dbctx.Context, row *types.StageArtifact) error
	GetByStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) (*types.StageArtifact, error)
	DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error)
	DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) Create(dbc dbctx.Context, row *types.StageArtifact) error {
	if row == nil {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.Version == 0 {
		row.Version = 1
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *artifactRepo) GetByStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) (*types.StageArtifact, error) {
	if stageInstanceID == uuid.Nil {
		return nil, fmt.Errorf("missing stage_instance_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StageArtifact
	err := transaction.WithContext(dbc.Ctx).
		Where("stage_instance_id = ?", stageInstanceID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *artifactRepo) DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error) {
	if len(stageInstanceIDs) == 0 {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("stage_instance_id IN ?", stageInstanceIDs).
		Delete(&types.StageArtifact{})
	return res.RowsAffected, res.Error
}

func (r *artifactRepo) DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error) {
	if workshopID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Delete(&types.StageArtifact{})
	return res.RowsAffected, res.Error
}
