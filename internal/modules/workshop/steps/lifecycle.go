package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

const defaultWorkshopTitle = "Untitled workshop"

type CreateWorkshopInput struct {
	UserID uuid.UUID
	Title  string
}

type CreateWorkshopOutput struct {
	WorkshopID   uuid.UUID `json:"workshop_id"`
	FirstStageID string    `json:"first_stage_id"`
}

// CreateWorkshop inserts the workshop and all stage instances in canonical order.
func CreateWorkshop(ctx context.Context, deps StateMachineDeps, in CreateWorkshopInput) (out CreateWorkshopOutput, err error) {
	if deps.Registry == nil || deps.Aggregate == nil {
		return CreateWorkshopOutput{}, fmt.Errorf("create workshop: missing deps")
	}
	metrics := observability.Current()
	defer func() { metrics.IncStageTransition("create", errorStatus(err)) }()

	if in.UserID == uuid.Nil {
		return CreateWorkshopOutput{}, fmt.Errorf("%w: missing user_id", ErrInvalidInput)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultWorkshopTitle
	}
	ordered := deps.Registry.Ordered()
	seeds := make([]domainagg.StageSeed, 0, len(ordered))
	for _, def := range ordered {
		seeds = append(seeds, domainagg.StageSeed{StageID: def.ID, Ordinal: def.Ordinal})
	}
	res, err := deps.Aggregate.Create(ctx, domainagg.CreateWorkshopInput{
		WorkshopID:  uuid.New(),
		OwnerUserID: in.UserID,
		Title:       title,
		Stages:      seeds,
		At:          deps.now(),
	})
	if err != nil {
		return CreateWorkshopOutput{}, err
	}
	deps.log().Info("workshop created", "workshop_id", res.WorkshopID, "user_id", in.UserID)
	return CreateWorkshopOutput{WorkshopID: res.WorkshopID, FirstStageID: deps.Registry.First().ID}, nil
}

type DeleteWorkshopInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
}

func DeleteWorkshop(ctx context.Context, deps StateMachineDeps, in DeleteWorkshopInput) error {
	if deps.Aggregate == nil {
		return fmt.Errorf("delete workshop: missing deps")
	}
	if in.WorkshopID == uuid.Nil || in.UserID == uuid.Nil {
		return fmt.Errorf("%w: missing workshop_id or user_id", ErrInvalidInput)
	}
	return withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		err := deps.Aggregate.Delete(ctx, domainagg.DeleteWorkshopInput{WorkshopID: in.WorkshopID, OwnerUserID: in.UserID})
		if domainagg.IsCode(err, domainagg.CodeNotFound) {
			return fmt.Errorf("%w: %w", ErrWorkshopNotFound, err)
		}
		return err
	})
}

type StageProgress struct {
	StageID      string     `json:"stage_id"`
	Name         string     `json:"name"`
	Ordinal      int        `json:"ordinal"`
	CanvasLayout string     `json:"canvas_layout"`
	InstanceID   uuid.UUID  `json:"instance_id"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type Progress struct {
	Workshop *types.Workshop `json:"workshop"`
	Stages   []StageProgress `json:"stages"`
	// CurrentStageID is the first stage that is not complete, or "" when all are.
	CurrentStageID string `json:"current_stage_id,omitempty"`
}

type GetProgressInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
}

// GetProgress returns the stage instances in workflow order for navigation.
func GetProgress(ctx context.Context, deps StateMachineDeps, in GetProgressInput) (Progress, error) {
	if err := deps.validate("get progress"); err != nil {
		return Progress{}, err
	}
	ws, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID)
	if err != nil {
		return Progress{}, err
	}
	instances, err := deps.Stages.ListByWorkshop(dbctx.Context{Ctx: ctx}, ws.ID)
	if err != nil {
		return Progress{}, err
	}
	out := Progress{Workshop: ws, Stages: make([]StageProgress, 0, len(instances))}
	for _, si := range instances {
		p := StageProgress{
			StageID:     si.StageID,
			Ordinal:     si.Ordinal,
			InstanceID:  si.ID,
			Status:      si.Status,
			StartedAt:   si.StartedAt,
			CompletedAt: si.CompletedAt,
		}
		if def, ok := deps.Registry.Get(si.StageID); ok {
			p.Name = def.Name
			p.CanvasLayout = def.CanvasLayout
		}
		if out.CurrentStageID == "" && si.Status != types.StageStatusComplete {
			out.CurrentStageID = si.StageID
		}
		out.Stages = append(out.Stages, p)
	}
	return out, nil
}

// ListWorkshops returns the caller's live workshops, newest first.
func ListWorkshops(ctx context.Context, workshops repos.WorkshopRepo, userID uuid.UUID) ([]*types.Workshop, error) {
	if workshops == nil {
		return nil, fmt.Errorf("list workshops: missing deps")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidInput)
	}
	return workshops.ListByOwner(dbctx.Context{Ctx: ctx}, userID)
}

type MarkNeedsRegenerationInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
}

// MarkNeedsRegeneration flags every complete stage after StageID without deleting data.
func MarkNeedsRegeneration(ctx context.Context, deps StateMachineDeps, in MarkNeedsRegenerationInput) (flagged int64, err error) {
	if err := deps.validate("mark needs regeneration"); err != nil {
		return 0, err
	}
	metrics := observability.Current()
	defer func() { metrics.IncStageTransition("needs_regeneration", errorStatus(err)) }()

	def, ok := deps.Registry.Get(in.StageID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStageNotFound, in.StageID)
	}
	later, _ := deps.Registry.After(def.ID)
	if len(later) == 0 {
		return 0, nil
	}
	err = withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			return err
		}
		n, err := deps.Aggregate.FlagNeedsRegeneration(ctx, domainagg.FlagNeedsRegenerationInput{
			WorkshopID: in.WorkshopID,
			StageIDs:   later,
		})
		flagged = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

type ConsumeCreditInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
}

type ConsumeCreditOutput struct {
	AlreadyConsumed  bool `json:"already_consumed"`
	RemainingBalance int  `json:"remaining_balance"`
}

// ConsumeCredit spends one credit to unlock the workshop past the gate.
func ConsumeCredit(ctx context.Context, deps StateMachineDeps, in ConsumeCreditInput) (ConsumeCreditOutput, error) {
	if err := deps.validate("consume credit"); err != nil {
		return ConsumeCreditOutput{}, err
	}
	var out ConsumeCreditOutput
	err := withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			return err
		}
		res, err := deps.Aggregate.ConsumeCredit(ctx, domainagg.ConsumeCreditInput{
			WorkshopID: in.WorkshopID,
			UserID:     in.UserID,
			At:         deps.now(),
		})
		if err != nil {
			return err
		}
		out = ConsumeCreditOutput{AlreadyConsumed: res.AlreadyConsumed, RemainingBalance: res.RemainingBalance}
		return nil
	})
	if err != nil {
		return ConsumeCreditOutput{}, err
	}
	if !out.AlreadyConsumed {
		deps.log().Info("credit consumed", "workshop_id", in.WorkshopID, "user_id", in.UserID, "remaining", out.RemainingBalance)
	}
	return out, nil
}

// GetCreditBalance returns 0 for users who never held credits.
func GetCreditBalance(ctx context.Context, credits repos.UserCreditRepo, userID uuid.UUID) (int, error) {
	if credits == nil {
		return 0, errMissingCreditRepo
	}
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: missing user_id", ErrInvalidInput)
	}
	return credits.GetBalance(dbctx.Context{Ctx: ctx}, userID)
}
