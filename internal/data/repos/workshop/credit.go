package workshop

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type UserCreditRepo interface {
	// GetBalance returns 0 for users without a ledger row.
	GetBalance(dbc dbctx.Context, userID uuid.UUID) (int, error)
	Grant(dbc dbctx.Context, userID uuid.UUID, amount int) error
	// DecrementIfPositive spends one credit; false means the balance was already zero.
	DecrementIfPositive(dbc dbctx.Context, userID uuid.UUID) (bool, error)
}

type userCreditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserCreditRepo(db *gorm.DB, baseLog *logger.Logger) UserCreditRepo {
	return &userCreditRepo{db: db, log: baseLog.With("repo", "UserCreditRepo")}
}

func (r *userCreditRepo) GetBalance(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.UserCredit
	err := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

func (r *userCreditRepo) Grant(dbc dbctx.Context, userID uuid.UUID, amount int) error {
	if userID == uuid.Nil || amount <= 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("user_credit.balance + ?", amount),
				"updated_at": now,
			}),
		}).
		Create(&types.UserCredit{UserID: userID, Balance: amount, UpdatedAt: now}).Error
}

func (r *userCreditRepo) DecrementIfPositive(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UserCredit{}).
		Where("user_id = ? AND balance > 0", userID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
