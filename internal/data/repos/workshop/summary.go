package workshop

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type StageSummaryRepo interface {
	// CreateIfAbsent inserts the summary unless one already exists for the stage instance.
	// Summaries are write-once; the bool reports whether this call wrote the row.
	CreateIfAbsent(dbc dbctx.Context, row *types.StageSummary) (bool, error)
	ExistsForStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) (bool, error)
	// ListForStages returns summaries of the given stages in workflow order. A nil
	// stageIDs means every stage except excludeStageID.
	ListForStages(dbc dbctx.Context, workshopID uuid.UUID, stageIDs []string, excludeStageID string) ([]*types.StageSummary, error)
	DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error)
	DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error)
}

type stageSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageSummaryRepo(db *gorm.DB, baseLog *logger.Logger) StageSummaryRepo {
	return &stageSummaryRepo{db: db, log: baseLog.With("repo", "StageSummaryRepo")}
}

func (r *stageSummaryRepo) CreateIfAbsent(dbc dbctx.Context, row *types.StageSummary) (bool, error) {
	if row == nil {
		return false, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stage_instance_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *stageSummaryRepo) ExistsForStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) (bool, error) {
	if stageInstanceID == uuid.Nil {
		return false, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StageSummary{}).
		Where("stage_instance_id = ?", stageInstanceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *stageSummaryRepo) ListForStages(dbc dbctx.Context, workshopID uuid.UUID, stageIDs []string, excludeStageID string) ([]*types.StageSummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StageSummary
	if workshopID == uuid.Nil {
		return out, nil
	}
	if stageIDs != nil && len(stageIDs) == 0 {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.StageSummary{}).
		Select("stage_summary.*").
		Joins("JOIN workshop_stage ON workshop_stage.id = stage_summary.stage_instance_id").
		Where("stage_summary.workshop_id = ?", workshopID)
	if stageIDs != nil {
		q = q.Where("stage_summary.stage_id IN ?", stageIDs)
	}
	if excludeStageID != "" {
		q = q.Where("stage_summary.stage_id <> ?", excludeStageID)
	}
	if err := q.Order("workshop_stage.ordinal ASC, workshop_stage.created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stageSummaryRepo) DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error) {
	if len(stageInstanceIDs) == 0 {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("stage_instance_id IN ?", stageInstanceIDs).
		Delete(&types.StageSummary{})
	return res.RowsAffected, res.Error
}

func (r *stageSummaryRepo) DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error) {
	if workshopID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Delete(&types.StageSummary{})
	return res.RowsAffected, res.Error
}
