package steps

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

const (
	GateReasonDisabled        = "disabled"
	GateReasonAlreadyUnlocked = "already_unlocked"
	GateReasonGrandfathered   = "grandfathered"
	GateReasonPaymentRequired = "payment_required"
)

type GateConfig struct {
	// Enabled is the operational kill switch; false allows every advance.
	Enabled bool
	// StageID is the stage whose completion is gated.
	StageID string
	// GrandfatherCutoff exempts workshops created strictly before it.
	GrandfatherCutoff time.Time
}

// Applies reports whether leaving fromStageID crosses the gated boundary.
func (c GateConfig) Applies(fromStageID string) bool {
	return strings.TrimSpace(c.StageID) != "" && strings.TrimSpace(fromStageID) == strings.TrimSpace(c.StageID)
}

type GateDeps struct {
	Log       *logger.Logger
	Config    GateConfig
	Workshops repos.WorkshopRepo
	Credits   repos.UserCreditRepo
}

type CheckGateInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
}

// GateDecision is a result, not an error: callers branch on Blocked.
type GateDecision struct {
	Allowed    bool   `json:"allowed"`
	Blocked    bool   `json:"blocked"`
	HasCredits bool   `json:"has_credits"`
	Balance    int    `json:"balance"`
	Reason     string `json:"reason"`
}

// CheckGate decides whether the user may cross the gated boundary. It never
// consumes a credit.
func CheckGate(ctx context.Context, deps GateDeps, in CheckGateInput) (GateDecision, error) {
	metrics := observability.Current()
	if !deps.Config.Enabled {
		metrics.IncGateDecision(GateReasonDisabled)
		return GateDecision{Allowed: true, Reason: GateReasonDisabled}, nil
	}
	ws, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID)
	if err != nil {
		return GateDecision{}, err
	}
	if ws.CreditConsumedAt != nil {
		metrics.IncGateDecision(GateReasonAlreadyUnlocked)
		return GateDecision{Allowed: true, Reason: GateReasonAlreadyUnlocked}, nil
	}
	if !deps.Config.GrandfatherCutoff.IsZero() && ws.CreatedAt.Before(deps.Config.GrandfatherCutoff) {
		metrics.IncGateDecision(GateReasonGrandfathered)
		return GateDecision{Allowed: true, Reason: GateReasonGrandfathered}, nil
	}
	if deps.Credits == nil {
		return GateDecision{}, errMissingCreditRepo
	}
	balance, err := deps.Credits.GetBalance(dbctx.Context{Ctx: ctx}, in.UserID)
	if err != nil {
		return GateDecision{}, err
	}
	metrics.IncGateDecision(GateReasonPaymentRequired)
	if deps.Log != nil {
		deps.Log.Info("gate blocked", "workshop_id", in.WorkshopID, "user_id", in.UserID, "balance", balance)
	}
	return GateDecision{
		Blocked:    true,
		HasCredits: balance > 0,
		Balance:    balance,
		Reason:     GateReasonPaymentRequired,
	}, nil
}
