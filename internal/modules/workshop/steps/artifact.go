package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type ArtifactDeps struct {
	Log       *logger.Logger
	Workshops repos.WorkshopRepo
	Stages    repos.StageInstanceRepo
	Artifacts repos.ArtifactRepo
	Aggregate domainagg.ArtifactAggregate
}

type ArtifactRef struct {
	WorkshopID uuid.UUID
	UserID     uuid.UUID
	StageID    string
}

type SaveArtifactInput struct {
	ArtifactRef
	Payload       json.RawMessage
	SchemaVersion int
	// ExpectedVersion is the version the caller last read; 0 means it read nothing.
	ExpectedVersion int
}

type SaveArtifactOutput struct {
	ArtifactID uuid.UUID `json:"artifact_id"`
	Version    int       `json:"version"`
}

// SaveArtifact writes the payload only if the stored version still equals
// ExpectedVersion. A lost race wraps ErrOptimisticLock and nothing is written.
func SaveArtifact(ctx context.Context, deps ArtifactDeps, in SaveArtifactInput) (SaveArtifactOutput, error) {
	if deps.Aggregate == nil {
		return SaveArtifactOutput{}, fmt.Errorf("save artifact: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return SaveArtifactOutput{}, err
	}
	return saveArtifact(ctx, deps, si, in.Payload, in.SchemaVersion, in.ExpectedVersion)
}

type SaveArtifactLatestInput struct {
	ArtifactRef
	Payload       json.RawMessage
	SchemaVersion int
}

// SaveArtifactLatest reads the current version and writes conditioned on it, so a
// concurrent writer between the read and the write still produces a conflict.
func SaveArtifactLatest(ctx context.Context, deps ArtifactDeps, in SaveArtifactLatestInput) (SaveArtifactOutput, error) {
	if deps.Aggregate == nil || deps.Artifacts == nil {
		return SaveArtifactOutput{}, fmt.Errorf("save artifact: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return SaveArtifactOutput{}, err
	}
	current, err := deps.Artifacts.GetByStageInstance(dbctx.Context{Ctx: ctx}, si.ID)
	if err != nil {
		return SaveArtifactOutput{}, err
	}
	expected := 0
	if current != nil {
		expected = current.Version
	}
	return saveArtifact(ctx, deps, si, in.Payload, in.SchemaVersion, expected)
}

func saveArtifact(ctx context.Context, deps ArtifactDeps, si *types.StageInstance, payload json.RawMessage, schemaVersion, expected int) (SaveArtifactOutput, error) {
	res, err := deps.Aggregate.Save(ctx, domainagg.SaveArtifactInput{
		StageInstanceID: si.ID,
		WorkshopID:      si.WorkshopID,
		Payload:         []byte(payload),
		SchemaVersion:   schemaVersion,
		ExpectedVersion: expected,
	})
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			observability.Current().IncArtifactConflict()
			if deps.Log != nil {
				deps.Log.Info("artifact write lost race", "stage_instance_id", si.ID, "expected_version", expected)
			}
			return SaveArtifactOutput{}, fmt.Errorf("%w: %w", ErrOptimisticLock, err)
		}
		return SaveArtifactOutput{}, err
	}
	return SaveArtifactOutput{ArtifactID: res.ArtifactID, Version: res.NewVersion}, nil
}

// LoadArtifact returns the stage's artifact or ErrArtifactNotFound.
func LoadArtifact(ctx context.Context, deps ArtifactDeps, in ArtifactRef) (*types.StageArtifact, error) {
	if deps.Artifacts == nil {
		return nil, fmt.Errorf("load artifact: missing deps")
	}
	si, err := loadOwnedStageInstance(ctx, deps.Workshops, deps.Stages, in.WorkshopID, in.UserID, in.StageID)
	if err != nil {
		return nil, err
	}
	row, err := deps.Artifacts.GetByStageInstance(dbctx.Context{Ctx: ctx}, si.ID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrArtifactNotFound
	}
	return row, nil
}
