package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

const artifactTable = "stage_artifact"

type ArtifactAggregateDeps struct {
	Base BaseDeps

	Artifacts repos.ArtifactRepo
}

type artifactAggregate struct {
	deps ArtifactAggregateDeps
}

func NewArtifactAggregate(deps ArtifactAggregateDeps) domainagg.ArtifactAggregate {
	deps.Base = deps.Base.withDefaults()
	return &artifactAggregate{deps: deps}
}

func (a *artifactAggregate) Contract() domainagg.Contract {
	return domainagg.ArtifactAggregateContract
}

func (a *artifactAggregate) Save(ctx context.Context, in domainagg.SaveArtifactInput) (domainagg.SaveArtifactResult, error) {
	const op = "Artifact.Save"
	var out domainagg.SaveArtifactResult
	if in.StageInstanceID == uuid.Nil || in.WorkshopID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing stage_instance_id or workshop_id", nil)
	}
	if in.ExpectedVersion < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "expected version must be >= 0", nil)
	}
	if len(in.Payload) == 0 || !json.Valid(in.Payload) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "payload must be valid json", nil)
	}
	if a.deps.Artifacts == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "artifact repo not configured", nil)
	}
	schemaVersion := in.SchemaVersion
	if schemaVersion <= 0 {
		schemaVersion = 1
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.Artifacts.GetByStageInstance(dbc, in.StageInstanceID)
		if err != nil {
			return err
		}
		if in.ExpectedVersion == 0 {
			if existing != nil {
				return ConflictError(fmt.Sprintf("artifact already exists at version %d", existing.Version))
			}
			row := &types.StageArtifact{
				StageInstanceID: in.StageInstanceID,
				WorkshopID:      in.WorkshopID,
				Payload:         in.Payload,
				SchemaVersion:   schemaVersion,
				Version:         1,
			}
			// a concurrent first insert loses on the unique stage_instance_id index
			if err := a.deps.Artifacts.Create(dbc, row); err != nil {
				return err
			}
			out = domainagg.SaveArtifactResult{ArtifactID: row.ID, NewVersion: 1}
			return nil
		}

		if existing == nil {
			return ConflictError("artifact does not exist")
		}
		if err := RequireVersionMatch(existing.Version, in.ExpectedVersion); err != nil {
			return err
		}
		next := in.ExpectedVersion + 1
		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, artifactTable, existing.ID, in.ExpectedVersion, map[string]any{
			"payload":        in.Payload,
			"schema_version": schemaVersion,
			"version":        next,
			"updated_at":     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("artifact version is %d, expected %d", existing.Version, in.ExpectedVersion)); err != nil {
			return err
		}
		out = domainagg.SaveArtifactResult{ArtifactID: existing.ID, NewVersion: next}
		return nil
	})
	return out, err
}
