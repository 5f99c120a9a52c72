package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/lock"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

// StateMachineDeps backs every operation that mutates stage statuses.
type StateMachineDeps struct {
	Log       *logger.Logger
	Registry  *stages.Registry
	Locker    lock.Locker
	Aggregate domainagg.WorkshopAggregate
	Workshops repos.WorkshopRepo
	Stages    repos.StageInstanceRepo
	Gate      GateDeps
	Summary   SummaryDeps
	// Now is overridable in tests.
	Now func() time.Time
}

func (d StateMachineDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d StateMachineDeps) log() *logger.Logger {
	if d.Log == nil {
		return logger.Nop()
	}
	return d.Log
}

func (d StateMachineDeps) validate(op string) error {
	if d.Registry == nil || d.Aggregate == nil || d.Workshops == nil || d.Stages == nil {
		return fmt.Errorf("%s: missing deps", op)
	}
	return nil
}

type AdvanceInput struct {
	WorkshopID  uuid.UUID
	UserID      uuid.UUID
	FromStageID string
	ToStageID   string
}

type AdvanceOutput struct {
	// Blocked is set when the gate refused; nothing was mutated.
	Blocked bool          `json:"blocked"`
	Gate    *GateDecision `json:"gate,omitempty"`

	NextStageID   string         `json:"next_stage_id,omitempty"`
	NextOrdinal   int            `json:"next_ordinal,omitempty"`
	FromCompleted bool           `json:"from_completed"`
	ToStarted     bool           `json:"to_started"`
	Summary       SummaryOutcome `json:"summary"`
}

// Advance completes FromStageID and starts ToStageID, which must be the stage
// directly after it. FromStageID must already be started. The status change is one
// transaction and re-running it is a no-op, so a caller may retry after a crash.
// The summary is generated after commit and its failure never fails the advance.
func Advance(ctx context.Context, deps StateMachineDeps, in AdvanceInput) (out AdvanceOutput, err error) {
	if err := deps.validate("advance"); err != nil {
		return AdvanceOutput{}, err
	}
	metrics := observability.Current()
	defer func() {
		status := errorStatus(err)
		if err == nil && out.Blocked {
			status = "blocked"
		}
		metrics.IncStageTransition("advance", status)
	}()

	// config errors fail before anything is written
	fromDef, ok := deps.Registry.Get(in.FromStageID)
	if !ok {
		return AdvanceOutput{}, fmt.Errorf("%w: %q", ErrStageNotFound, in.FromStageID)
	}
	toDef, ok := deps.Registry.Get(in.ToStageID)
	if !ok {
		return AdvanceOutput{}, fmt.Errorf("%w: %q", ErrStageNotFound, in.ToStageID)
	}
	if toDef.Ordinal <= fromDef.Ordinal {
		return AdvanceOutput{}, fmt.Errorf("%w: %s must come after %s", ErrInvalidTransition, toDef.ID, fromDef.ID)
	}
	// only the immediate successor, so no move can step over the gate stage
	if next, ok := deps.Registry.Next(fromDef.ID); !ok || next.ID != toDef.ID {
		return AdvanceOutput{}, fmt.Errorf("%w: %s is not the stage after %s", ErrInvalidTransition, toDef.ID, fromDef.ID)
	}

	ctx, span := observability.StartSpan(ctx, "workshop.advance",
		attribute.String("workshop.id", in.WorkshopID.String()),
		attribute.String("workshop.from", fromDef.ID),
		attribute.String("workshop.to", toDef.ID),
	)
	defer func() { observability.EndSpan(span, err) }()

	log := deps.log().With("workshop_id", in.WorkshopID, "from", fromDef.ID, "to", toDef.ID)

	var fromInstanceID uuid.UUID
	err = withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			return err
		}
		if deps.Gate.Config.Applies(fromDef.ID) {
			gateDeps := deps.Gate
			if gateDeps.Workshops == nil {
				gateDeps.Workshops = deps.Workshops
			}
			decision, err := CheckGate(ctx, gateDeps, CheckGateInput{WorkshopID: in.WorkshopID, UserID: in.UserID})
			if err != nil {
				return err
			}
			if decision.Blocked {
				out.Blocked = true
				out.Gate = &decision
				return nil
			}
		}

		res, err := deps.Aggregate.Transition(ctx, domainagg.TransitionInput{
			WorkshopID:  in.WorkshopID,
			FromStageID: fromDef.ID,
			ToStageID:   toDef.ID,
			At:          deps.now(),
		})
		if err != nil {
			return err
		}
		fromInstanceID = res.FromInstanceID
		out.FromCompleted = res.FromCompleted
		out.ToStarted = res.ToStarted
		return nil
	})
	if err != nil {
		log.Warn("advance failed", "error", err)
		return AdvanceOutput{}, err
	}
	if out.Blocked {
		log.Info("advance blocked by gate", "reason", out.Gate.Reason)
		return out, nil
	}

	// GenerateSummary skips when a row exists, so a retried advance does not regenerate.
	out.Summary = GenerateSummary(ctx, deps.Summary, GenerateSummaryInput{
		WorkshopID:      in.WorkshopID,
		StageInstanceID: fromInstanceID,
		StageID:         fromDef.ID,
		StageName:       fromDef.Name,
	})
	out.NextStageID = toDef.ID
	out.NextOrdinal = toDef.Ordinal
	log.Info("stage advanced",
		"from_completed", out.FromCompleted,
		"to_started", out.ToStarted,
		"summary_fallback", out.Summary.Fallback,
		"summary_skipped", out.Summary.Skipped,
	)
	return out, nil
}

type CompleteStageInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
}

type CompleteStageOutput struct {
	Completed bool           `json:"completed"`
	Summary   SummaryOutcome `json:"summary"`
}

// CompleteStage finishes the terminal stage, which has nowhere to advance to.
func CompleteStage(ctx context.Context, deps StateMachineDeps, in CompleteStageInput) (out CompleteStageOutput, err error) {
	if err := deps.validate("complete stage"); err != nil {
		return CompleteStageOutput{}, err
	}
	metrics := observability.Current()
	defer func() { metrics.IncStageTransition("complete_stage", errorStatus(err)) }()

	def, ok := deps.Registry.Get(in.StageID)
	if !ok {
		return CompleteStageOutput{}, fmt.Errorf("%w: %q", ErrStageNotFound, in.StageID)
	}
	if def.ID != deps.Registry.Terminal().ID {
		return CompleteStageOutput{}, fmt.Errorf("%w: %s is not the final stage; advance instead", ErrInvalidTransition, def.ID)
	}

	var instanceID uuid.UUID
	err = withWorkshopLock(ctx, deps.Locker, in.WorkshopID, func() error {
		if _, err := loadOwnedWorkshop(ctx, deps.Workshops, in.WorkshopID, in.UserID); err != nil {
			return err
		}
		res, err := deps.Aggregate.CompleteStage(ctx, domainagg.CompleteStageInput{
			WorkshopID: in.WorkshopID,
			StageID:    def.ID,
			At:         deps.now(),
		})
		if err != nil {
			return err
		}
		instanceID = res.InstanceID
		out.Completed = res.Completed
		return nil
	})
	if err != nil {
		return CompleteStageOutput{}, err
	}
	out.Summary = GenerateSummary(ctx, deps.Summary, GenerateSummaryInput{
		WorkshopID:      in.WorkshopID,
		StageInstanceID: instanceID,
		StageID:         def.ID,
		StageName:       def.Name,
	})
	return out, nil
}
