package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var WorkshopAggregateContract = Contract{
	Name:             "Workshop.WorkshopAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns workshop lifecycle and stage status consistency across its ten stage instances.",
}

// WorkshopAggregate owns the workshop row and its stage instances.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation,
// CodePreconditionFailed, CodeRetryable, CodeInternal.
type WorkshopAggregate interface {
	Aggregate

	// Create inserts the workshop and one instance per stage; the first stage starts in_progress.
	Create(ctx context.Context, in CreateWorkshopInput) (CreateWorkshopResult, error)

	// Transition completes one stage and starts the next as a single change. Steps whose
	// postcondition already holds are skipped, so a retried call is a no-op.
	Transition(ctx context.Context, in TransitionInput) (TransitionResult, error)

	// CompleteStage marks a single stage complete without starting another; used for
	// the terminal stage. Already complete is a no-op.
	CompleteStage(ctx context.Context, in CompleteStageInput) (CompleteStageResult, error)

	// ForwardWipe deletes transcripts, artifacts and summaries for the wiped stages and
	// rewinds their statuses. Stages outside the set are untouched.
	ForwardWipe(ctx context.Context, in ForwardWipeInput) (ForwardWipeResult, error)

	// Complete marks the workshop completed once every required stage has completed_at.
	Complete(ctx context.Context, in CompleteWorkshopInput) (CompleteWorkshopResult, error)

	// FlagNeedsRegeneration moves complete stages in the set to needs_regeneration.
	// completed_at is cleared, so a flagged stage no longer counts as done.
	FlagNeedsRegeneration(ctx context.Context, in FlagNeedsRegenerationInput) (int64, error)

	// Delete soft-deletes the workshop and hard-deletes everything hanging off it.
	Delete(ctx context.Context, in DeleteWorkshopInput) error

	// ConsumeCredit spends one user credit to unlock the workshop. Idempotent per workshop.
	ConsumeCredit(ctx context.Context, in ConsumeCreditInput) (ConsumeCreditResult, error)
}

type StageSeed struct {
	StageID string
	Ordinal int
}

type CreateWorkshopInput struct {
	WorkshopID  uuid.UUID
	OwnerUserID uuid.UUID
	Title       string
	Stages      []StageSeed
	At          time.Time
}

type CreateWorkshopResult struct {
	WorkshopID       uuid.UUID
	StageInstanceIDs map[string]uuid.UUID
}

type TransitionInput struct {
	WorkshopID  uuid.UUID
	FromStageID string
	ToStageID   string
	At          time.Time
}

type TransitionResult struct {
	FromInstanceID uuid.UUID
	ToInstanceID   uuid.UUID
	// FromCompleted is false when the source stage was already complete.
	FromCompleted bool
	// ToStarted is false when the destination was already started or complete.
	ToStarted bool
}

type CompleteStageInput struct {
	WorkshopID uuid.UUID
	StageID    string
	At         time.Time
}

type CompleteStageResult struct {
	InstanceID uuid.UUID
	// Completed is false when the stage was already complete.
	Completed bool
}

type ForwardWipeInput struct {
	WorkshopID uuid.UUID
	// ResetStageID restarts as in_progress; every other id in WipeStageIDs returns to not_started.
	ResetStageID string
	WipeStageIDs []string
	At           time.Time
}

type ForwardWipeResult struct {
	StagesReset      int64
	MessagesDeleted  int64
	ArtifactsDeleted int64
	SummariesDeleted int64
	WorkshopReopened bool
}

type CompleteWorkshopInput struct {
	WorkshopID       uuid.UUID
	RequiredStageIDs []string
}

type CompleteWorkshopResult struct {
	AlreadyCompleted bool
	IncompleteStages []string
}

type FlagNeedsRegenerationInput struct {
	WorkshopID uuid.UUID
	StageIDs   []string
}

type DeleteWorkshopInput struct {
	WorkshopID  uuid.UUID
	OwnerUserID uuid.UUID
}

type ConsumeCreditInput struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	At         time.Time
}

type ConsumeCreditResult struct {
	AlreadyConsumed  bool
	RemainingBalance int
	ConsumedAt       time.Time
}

var ArtifactAggregateContract = Contract{
	Name:             "Workshop.ArtifactAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes:            "Owns compare-and-swap writes of stage artifacts; reads stay on the artifact repo.",
}

// ArtifactAggregate owns optimistic-concurrency writes of stage artifacts.
type ArtifactAggregate interface {
	Aggregate

	// Save inserts when ExpectedVersion is 0, otherwise updates only if the stored
	// version still equals ExpectedVersion. A lost race is CodeConflict.
	Save(ctx context.Context, in SaveArtifactInput) (SaveArtifactResult, error)
}

type SaveArtifactInput struct {
	StageInstanceID uuid.UUID
	WorkshopID      uuid.UUID
	Payload         datatypes.JSON
	SchemaVersion   int
	ExpectedVersion int
}

type SaveArtifactResult struct {
	ArtifactID uuid.UUID
	NewVersion int
}
