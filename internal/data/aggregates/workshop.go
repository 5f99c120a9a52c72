package aggregates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

const (
	workshopTable = "workshop"
	stageTable    = "workshop_stage"
)

type WorkshopAggregateDeps struct {
	Base BaseDeps

	Workshops repos.WorkshopRepo
	Stages    repos.StageInstanceRepo
	Artifacts repos.ArtifactRepo
	Summaries repos.StageSummaryRepo
	Messages  repos.ConversationMessageRepo
	Canvas    repos.CanvasItemRepo
	Credits   repos.UserCreditRepo
}

type workshopAggregate struct {
	deps WorkshopAggregateDeps
}

func NewWorkshopAggregate(deps WorkshopAggregateDeps) domainagg.WorkshopAggregate {
	deps.Base = deps.Base.withDefaults()
	return &workshopAggregate{deps: deps}
}

func (a *workshopAggregate) Contract() domainagg.Contract {
	return domainagg.WorkshopAggregateContract
}

func (a *workshopAggregate) reposConfigured() bool {
	d := a.deps
	return d.Workshops != nil && d.Stages != nil && d.Artifacts != nil &&
		d.Summaries != nil && d.Messages != nil && d.Canvas != nil && d.Credits != nil
}

func (a *workshopAggregate) Create(ctx context.Context, in domainagg.CreateWorkshopInput) (domainagg.CreateWorkshopResult, error) {
	const op = "Workshop.Create"
	var out domainagg.CreateWorkshopResult
	if in.OwnerUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner_user_id", nil)
	}
	if len(in.Stages) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "at least one stage is required", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	seeds := append([]domainagg.StageSeed(nil), in.Stages...)
	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].Ordinal < seeds[j].Ordinal })
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		id := strings.TrimSpace(s.StageID)
		if id == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "empty stage id", nil)
		}
		if seen[id] {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "duplicate stage id "+id, nil)
		}
		seen[id] = true
	}

	at := nowOr(in.At)
	wsID := in.WorkshopID
	if wsID == uuid.Nil {
		wsID = uuid.New()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled workshop"
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws := &types.Workshop{
			ID:          wsID,
			OwnerUserID: in.OwnerUserID,
			Title:       title,
			Status:      types.WorkshopStatusActive,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if err := a.deps.Workshops.Create(dbc, []*types.Workshop{ws}); err != nil {
			return err
		}
		rows := make([]*types.StageInstance, 0, len(seeds))
		ids := make(map[string]uuid.UUID, len(seeds))
		for i, s := range seeds {
			si := &types.StageInstance{
				ID:         uuid.New(),
				WorkshopID: wsID,
				StageID:    strings.TrimSpace(s.StageID),
				Ordinal:    s.Ordinal,
				Status:     types.StageStatusNotStarted,
				// stagger so created_at is a stable tiebreaker for equal ordinals
				CreatedAt: at.Add(time.Duration(i) * time.Microsecond),
				UpdatedAt: at,
			}
			if i == 0 {
				started := at
				si.Status = types.StageStatusInProgress
				si.StartedAt = &started
			}
			rows = append(rows, si)
			ids[si.StageID] = si.ID
		}
		if err := a.deps.Stages.Create(dbc, rows); err != nil {
			return err
		}
		out = domainagg.CreateWorkshopResult{WorkshopID: wsID, StageInstanceIDs: ids}
		return nil
	})
	return out, err
}

func (a *workshopAggregate) Transition(ctx context.Context, in domainagg.TransitionInput) (domainagg.TransitionResult, error) {
	const op = "Workshop.Transition"
	var out domainagg.TransitionResult
	from := strings.TrimSpace(in.FromStageID)
	to := strings.TrimSpace(in.ToStageID)
	if in.WorkshopID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id", nil)
	}
	if from == "" || to == "" || from == to {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "from and to must be distinct stage ids", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	at := nowOr(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByID(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		fromSI, completed, err := a.completeStageTx(dbc, in.WorkshopID, from, at)
		if err != nil {
			return err
		}
		toSI, err := a.deps.Stages.GetByWorkshopAndStage(dbc, in.WorkshopID, to)
		if err != nil {
			return err
		}
		if toSI == nil {
			return NotFoundError("stage instance not found: " + to)
		}
		out.FromInstanceID = fromSI.ID
		out.ToInstanceID = toSI.ID
		out.FromCompleted = completed

		started, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, stageTable, toSI.ID,
			[]string{types.StageStatusNotStarted, types.StageStatusNeedsRegeneration},
			map[string]any{
				"status":       types.StageStatusInProgress,
				"started_at":   at,
				"completed_at": nil,
				"updated_at":   at,
			})
		if err != nil {
			return err
		}
		out.ToStarted = started
		return nil
	})
	return out, err
}

func (a *workshopAggregate) CompleteStage(ctx context.Context, in domainagg.CompleteStageInput) (domainagg.CompleteStageResult, error) {
	const op = "Workshop.CompleteStage"
	var out domainagg.CompleteStageResult
	stageID := strings.TrimSpace(in.StageID)
	if in.WorkshopID == uuid.Nil || stageID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id or stage id", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	at := nowOr(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByID(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		si, completed, err := a.completeStageTx(dbc, in.WorkshopID, stageID, at)
		if err != nil {
			return err
		}
		out = domainagg.CompleteStageResult{InstanceID: si.ID, Completed: completed}
		return nil
	})
	return out, err
}

// completeStageTx moves a started stage to complete. completed is false for the
// already-complete case; a stage that was never started is a conflict.
func (a *workshopAggregate) completeStageTx(dbc dbctx.Context, workshopID uuid.UUID, stageID string, at time.Time) (*types.StageInstance, bool, error) {
	si, err := a.deps.Stages.GetByWorkshopAndStage(dbc, workshopID, stageID)
	if err != nil {
		return nil, false, err
	}
	if si == nil {
		return nil, false, NotFoundError("stage instance not found: " + stageID)
	}
	if si.Status == types.StageStatusComplete {
		return si, false, nil
	}
	completable := []string{types.StageStatusInProgress, types.StageStatusNeedsRegeneration}
	if err := RequireStatusAllowed(si.Status, completable...); err != nil {
		return nil, false, fmt.Errorf("complete stage %s: %w", stageID, err)
	}
	completed, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, stageTable, si.ID, completable,
		map[string]any{
			"status":       types.StageStatusComplete,
			"completed_at": at,
			"started_at":   gorm.Expr("COALESCE(started_at, ?)", at),
			"updated_at":   at,
		})
	if err != nil {
		return nil, false, err
	}
	if !completed {
		current, err := a.deps.Stages.GetByID(dbc, si.ID)
		if err != nil {
			return nil, false, err
		}
		if current == nil || current.Status != types.StageStatusComplete {
			return nil, false, ConflictError(fmt.Sprintf("stage %s changed concurrently", stageID))
		}
	}
	return si, completed, nil
}

func (a *workshopAggregate) ForwardWipe(ctx context.Context, in domainagg.ForwardWipeInput) (domainagg.ForwardWipeResult, error) {
	const op = "Workshop.ForwardWipe"
	var out domainagg.ForwardWipeResult
	resetID := strings.TrimSpace(in.ResetStageID)
	if in.WorkshopID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id", nil)
	}
	if resetID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing reset stage id", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	wipe := map[string]bool{resetID: true}
	for _, id := range in.WipeStageIDs {
		if id = strings.TrimSpace(id); id != "" {
			wipe[id] = true
		}
	}
	at := nowOr(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByID(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		instances, err := a.deps.Stages.ListByWorkshop(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		instanceIDs := make([]uuid.UUID, 0, len(wipe))
		later := make([]string, 0, len(wipe))
		found := false
		for _, si := range instances {
			if !wipe[si.StageID] {
				continue
			}
			instanceIDs = append(instanceIDs, si.ID)
			if si.StageID == resetID {
				found = true
			} else {
				later = append(later, si.StageID)
			}
		}
		if !found {
			return NotFoundError("reset stage instance not found")
		}

		if out.MessagesDeleted, err = a.deps.Messages.DeleteByStageInstanceIDs(dbc, instanceIDs); err != nil {
			return err
		}
		if out.ArtifactsDeleted, err = a.deps.Artifacts.DeleteByStageInstanceIDs(dbc, instanceIDs); err != nil {
			return err
		}
		if out.SummariesDeleted, err = a.deps.Summaries.DeleteByStageInstanceIDs(dbc, instanceIDs); err != nil {
			return err
		}

		n, err := a.deps.Stages.UpdateFieldsByStageIDs(dbc, in.WorkshopID, []string{resetID}, map[string]interface{}{
			"status":       types.StageStatusInProgress,
			"started_at":   at,
			"completed_at": nil,
		})
		if err != nil {
			return err
		}
		out.StagesReset = n
		if len(later) > 0 {
			n, err = a.deps.Stages.UpdateFieldsByStageIDs(dbc, in.WorkshopID, later, map[string]interface{}{
				"status":       types.StageStatusNotStarted,
				"started_at":   nil,
				"completed_at": nil,
			})
			if err != nil {
				return err
			}
			out.StagesReset += n
		}

		if ws.Status == types.WorkshopStatusCompleted {
			if err := a.deps.Workshops.UpdateFields(dbc, ws.ID, map[string]interface{}{
				"status": types.WorkshopStatusActive,
			}); err != nil {
				return err
			}
			out.WorkshopReopened = true
		}
		return nil
	})
	return out, err
}

func (a *workshopAggregate) Complete(ctx context.Context, in domainagg.CompleteWorkshopInput) (domainagg.CompleteWorkshopResult, error) {
	const op = "Workshop.Complete"
	var out domainagg.CompleteWorkshopResult
	if in.WorkshopID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id", nil)
	}
	if len(in.RequiredStageIDs) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "required stage ids must not be empty", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByID(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		if ws.Status == types.WorkshopStatusCompleted {
			out.AlreadyCompleted = true
			return nil
		}
		instances, err := a.deps.Stages.ListByWorkshop(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		byStage := make(map[string]*types.StageInstance, len(instances))
		for _, si := range instances {
			byStage[si.StageID] = si
		}
		for _, id := range in.RequiredStageIDs {
			if !byStage[id].IsComplete() {
				out.IncompleteStages = append(out.IncompleteStages, id)
			}
		}
		if len(out.IncompleteStages) > 0 {
			return InvariantError("stages incomplete: " + strings.Join(out.IncompleteStages, ", "))
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, workshopTable, ws.ID,
			[]string{types.WorkshopStatusDraft, types.WorkshopStatusActive, types.WorkshopStatusPaused},
			map[string]any{"status": types.WorkshopStatusCompleted, "updated_at": time.Now().UTC()})
		if err != nil {
			return err
		}
		out.AlreadyCompleted = !ok
		return nil
	})
	return out, err
}

func (a *workshopAggregate) FlagNeedsRegeneration(ctx context.Context, in domainagg.FlagNeedsRegenerationInput) (int64, error) {
	const op = "Workshop.FlagNeedsRegeneration"
	if in.WorkshopID == uuid.Nil {
		return 0, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id", nil)
	}
	if len(in.StageIDs) == 0 {
		return 0, nil
	}
	var flagged int64
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res := dbc.Tx.WithContext(dbc.Ctx).
			Model(&types.StageInstance{}).
			Where("workshop_id = ? AND stage_id IN ? AND status = ?", in.WorkshopID, in.StageIDs, types.StageStatusComplete).
			Updates(map[string]interface{}{
				"status":       types.StageStatusNeedsRegeneration,
				"completed_at": nil,
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		flagged = res.RowsAffected
		return nil
	})
	return flagged, err
}

func (a *workshopAggregate) Delete(ctx context.Context, in domainagg.DeleteWorkshopInput) error {
	const op = "Workshop.Delete"
	if in.WorkshopID == uuid.Nil || in.OwnerUserID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id or owner_user_id", nil)
	}
	if !a.reposConfigured() {
		return domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByIDForOwner(dbc, in.WorkshopID, in.OwnerUserID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		if _, err := a.deps.Messages.DeleteByWorkshop(dbc, ws.ID); err != nil {
			return err
		}
		if _, err := a.deps.Artifacts.DeleteByWorkshop(dbc, ws.ID); err != nil {
			return err
		}
		if _, err := a.deps.Summaries.DeleteByWorkshop(dbc, ws.ID); err != nil {
			return err
		}
		if _, err := a.deps.Canvas.DeleteByWorkshop(dbc, ws.ID); err != nil {
			return err
		}
		if _, err := a.deps.Stages.DeleteByWorkshop(dbc, ws.ID); err != nil {
			return err
		}
		n, err := a.deps.Workshops.SoftDelete(dbc, ws.ID)
		if err != nil {
			return err
		}
		return RequireCASSuccess(n > 0, "workshop deleted concurrently")
	})
}

func (a *workshopAggregate) ConsumeCredit(ctx context.Context, in domainagg.ConsumeCreditInput) (domainagg.ConsumeCreditResult, error) {
	const op = "Workshop.ConsumeCredit"
	var out domainagg.ConsumeCreditResult
	if in.WorkshopID == uuid.Nil || in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing workshop_id or user_id", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "workshop aggregate repos not configured", nil)
	}
	at := nowOr(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ws, err := a.deps.Workshops.GetByID(dbc, in.WorkshopID)
		if err != nil {
			return err
		}
		if ws == nil {
			return NotFoundError("workshop not found")
		}
		if ws.CreditConsumedAt != nil {
			out.AlreadyConsumed = true
			out.ConsumedAt = *ws.CreditConsumedAt
			out.RemainingBalance, err = a.deps.Credits.GetBalance(dbc, in.UserID)
			return err
		}
		ok, err := a.deps.Credits.DecrementIfPositive(dbc, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "no credits available", nil)
		}
		// the decrement rolls back with the transaction if another request unlocked first
		res := dbc.Tx.WithContext(dbc.Ctx).
			Table(workshopTable).
			Where("id = ? AND credit_consumed_at IS NULL", ws.ID).
			Updates(map[string]any{"credit_consumed_at": at, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}
		if err := RequireCASSuccess(res.RowsAffected > 0, "workshop unlocked concurrently"); err != nil {
			return err
		}
		out.ConsumedAt = at
		out.RemainingBalance, err = a.deps.Credits.GetBalance(dbc, in.UserID)
		return err
	})
	return out, err
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
