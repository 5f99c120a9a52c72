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

type WorkshopRepo interface {
	Create(dbc dbctx.Context, rows []*types.Workshop) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workshop, error)
	GetByIDForOwner(dbc dbctx.Context, id uuid.UUID, ownerUserID uuid.UUID) (*types.Workshop, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Workshop, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type workshopRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkshopRepo(db *gorm.DB, baseLog *logger.Logger) WorkshopRepo {
	return &workshopRepo{db: db, log: baseLog.With("repo", "WorkshopRepo")}
}

func (r *workshopRepo) Create(dbc dbctx.Context, rows []*types.Workshop) error {
	if len(rows) == 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

// GetByID returns nil, nil when the workshop does not exist or is soft-deleted.
func (r *workshopRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workshop, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing workshop_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Workshop
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *workshopRepo) GetByIDForOwner(dbc dbctx.Context, id uuid.UUID, ownerUserID uuid.UUID) (*types.Workshop, error) {
	if id == uuid.Nil || ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing workshop_id or owner_user_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Workshop
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *workshopRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Workshop, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Workshop
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workshopRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing workshop_id")
	}
	if len(updates) == 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Workshop{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *workshopRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, fmt.Errorf("missing workshop_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Workshop{})
	return res.RowsAffected, res.Error
}
