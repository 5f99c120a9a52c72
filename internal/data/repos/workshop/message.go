package workshop

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type ConversationMessageRepo interface {
	// Append assigns the next seq for the stage instance. A concurrent append that
	// picks the same seq fails on the (stage_instance_id, seq) unique index.
	Append(dbc dbctx.Context, row *types.ConversationMessage) error
	ListByStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) ([]*types.ConversationMessage, error)
	// DeleteByStageInstanceIDs removes every transcript of the given stages in one statement.
	DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error)
	DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error)
}

type conversationMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationMessageRepo(db *gorm.DB, baseLog *logger.Logger) ConversationMessageRepo {
	return &conversationMessageRepo{db: db, log: baseLog.With("repo", "ConversationMessageRepo")}
}

func (r *conversationMessageRepo) Append(dbc dbctx.Context, row *types.ConversationMessage) error {
	if row == nil {
		return nil
	}
	if row.StageInstanceID == uuid.Nil || row.WorkshopID == uuid.Nil {
		return fmt.Errorf("missing workshop_id or stage_instance_id")
	}
	if strings.TrimSpace(row.Content) == "" {
		return fmt.Errorf("empty message content")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var maxSeq sql.NullInt64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ConversationMessage{}).
		Where("stage_instance_id = ?", row.StageInstanceID).
		Select("MAX(seq)").
		Row().
		Scan(&maxSeq); err != nil {
		return err
	}
	row.Seq = maxSeq.Int64 + 1
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *conversationMessageRepo) ListByStageInstance(dbc dbctx.Context, stageInstanceID uuid.UUID) ([]*types.ConversationMessage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ConversationMessage
	if stageInstanceID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("stage_instance_id = ?", stageInstanceID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationMessageRepo) DeleteByStageInstanceIDs(dbc dbctx.Context, stageInstanceIDs []uuid.UUID) (int64, error) {
	if len(stageInstanceIDs) == 0 {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("stage_instance_id IN ?", stageInstanceIDs).
		Delete(&types.ConversationMessage{})
	return res.RowsAffected, res.Error
}

func (r *conversationMessageRepo) DeleteByWorkshop(dbc dbctx.Context, workshopID uuid.UUID) (int64, error) {
	if workshopID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workshop_id = ?", workshopID).
		Delete(&types.ConversationMessage{})
	return res.RowsAffected, res.Error
}
