package workshop

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/canvas"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/steps"
	"github.com/yungbote/workshop-backend/internal/platform/lock"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	Log *logger.Logger

	Registry     *stages.Registry
	Dependencies *stages.DependencyMap
	Renderer     canvas.Renderer
	Locker       lock.Locker

	Workshops repos.WorkshopRepo
	Stages    repos.StageInstanceRepo
	Artifacts repos.ArtifactRepo
	Summaries repos.StageSummaryRepo
	Messages  repos.ConversationMessageRepo
	Canvas    repos.CanvasItemRepo
	Credits   repos.UserCreditRepo

	WorkshopAggregate domainagg.WorkshopAggregate
	ArtifactAggregate domainagg.ArtifactAggregate

	// Generator may be nil; summaries then always fall back.
	Generator   steps.TextGenerator
	Transcripts steps.TranscriptProvider
	Snapshots   steps.CanvasSnapshotProvider

	Gate    steps.GateConfig
	Summary SummaryConfig
}

type SummaryConfig struct {
	Timeout         time.Duration
	FallbackTimeout time.Duration
	MaxWords        int
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Renderer == nil {
		deps.Renderer = canvas.NewTextRenderer()
	}
	if deps.Transcripts == nil && deps.Stages != nil && deps.Messages != nil {
		deps.Transcripts = steps.NewRepoTranscriptProvider(deps.Stages, deps.Messages)
	}
	if deps.Snapshots == nil && deps.Canvas != nil {
		deps.Snapshots = steps.NewRepoCanvasProvider(deps.Canvas)
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

func (u Usecases) Registry() *stages.Registry { return u.deps.Registry }

type (
	AdvanceInput           = steps.AdvanceInput
	AdvanceOutput          = steps.AdvanceOutput
	CompleteStageInput     = steps.CompleteStageInput
	CompleteStageOutput    = steps.CompleteStageOutput
	ResetInput             = steps.ResetInput
	ResetOutput            = steps.ResetOutput
	CompleteWorkshopInput  = steps.CompleteWorkshopInput
	CompleteWorkshopOutput = steps.CompleteWorkshopOutput

	CreateWorkshopInput        = steps.CreateWorkshopInput
	CreateWorkshopOutput       = steps.CreateWorkshopOutput
	DeleteWorkshopInput        = steps.DeleteWorkshopInput
	GetProgressInput           = steps.GetProgressInput
	Progress                   = steps.Progress
	StageProgress              = steps.StageProgress
	MarkNeedsRegenerationInput = steps.MarkNeedsRegenerationInput
	ConsumeCreditInput         = steps.ConsumeCreditInput
	ConsumeCreditOutput        = steps.ConsumeCreditOutput
	CheckGateInput             = steps.CheckGateInput
	GateDecision               = steps.GateDecision

	AssembleContextInput = steps.AssembleContextInput
	ContextBundle        = steps.ContextBundle

	ArtifactRef             = steps.ArtifactRef
	SaveArtifactInput       = steps.SaveArtifactInput
	SaveArtifactLatestInput = steps.SaveArtifactLatestInput
	SaveArtifactOutput      = steps.SaveArtifactOutput

	StageRef           = steps.StageRef
	AppendMessageInput = steps.AppendMessageInput
	CanvasItemInput    = steps.CanvasItemInput
	ReplaceCanvasInput = steps.ReplaceCanvasInput
)

func (u Usecases) stateMachineDeps() steps.StateMachineDeps {
	return steps.StateMachineDeps{
		Log:       u.deps.Log.With("service", "StageStateMachine"),
		Registry:  u.deps.Registry,
		Locker:    u.deps.Locker,
		Aggregate: u.deps.WorkshopAggregate,
		Workshops: u.deps.Workshops,
		Stages:    u.deps.Stages,
		Gate:      u.gateDeps(),
		Summary: steps.SummaryDeps{
			Log:             u.deps.Log.With("service", "SummaryGenerator"),
			Generator:       u.deps.Generator,
			Transcripts:     u.deps.Transcripts,
			Summaries:       u.deps.Summaries,
			Timeout:         u.deps.Summary.Timeout,
			FallbackTimeout: u.deps.Summary.FallbackTimeout,
			MaxWords:        u.deps.Summary.MaxWords,
		},
	}
}

func (u Usecases) gateDeps() steps.GateDeps {
	return steps.GateDeps{
		Log:       u.deps.Log.With("service", "MonetizationGate"),
		Config:    u.deps.Gate,
		Workshops: u.deps.Workshops,
		Credits:   u.deps.Credits,
	}
}

func (u Usecases) artifactDeps() steps.ArtifactDeps {
	return steps.ArtifactDeps{
		Log:       u.deps.Log.With("service", "ArtifactStore"),
		Workshops: u.deps.Workshops,
		Stages:    u.deps.Stages,
		Artifacts: u.deps.Artifacts,
		Aggregate: u.deps.ArtifactAggregate,
	}
}

func (u Usecases) ingestDeps() steps.IngestDeps {
	return steps.IngestDeps{
		Workshops: u.deps.Workshops,
		Stages:    u.deps.Stages,
		Messages:  u.deps.Messages,
		Canvas:    u.deps.Canvas,
	}
}

func (u Usecases) Advance(ctx context.Context, in AdvanceInput) (AdvanceOutput, error) {
	return steps.Advance(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) CompleteStage(ctx context.Context, in CompleteStageInput) (CompleteStageOutput, error) {
	return steps.CompleteStage(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) Reset(ctx context.Context, in ResetInput) (ResetOutput, error) {
	return steps.Reset(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) CompleteWorkshop(ctx context.Context, in CompleteWorkshopInput) (CompleteWorkshopOutput, error) {
	return steps.CompleteWorkshop(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) CreateWorkshop(ctx context.Context, in CreateWorkshopInput) (CreateWorkshopOutput, error) {
	return steps.CreateWorkshop(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) DeleteWorkshop(ctx context.Context, in DeleteWorkshopInput) error {
	return steps.DeleteWorkshop(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) GetProgress(ctx context.Context, in GetProgressInput) (Progress, error) {
	return steps.GetProgress(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) ListWorkshops(ctx context.Context, userID uuid.UUID) ([]*types.Workshop, error) {
	return steps.ListWorkshops(ctx, u.deps.Workshops, userID)
}

func (u Usecases) MarkNeedsRegeneration(ctx context.Context, in MarkNeedsRegenerationInput) (int64, error) {
	return steps.MarkNeedsRegeneration(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) ConsumeCredit(ctx context.Context, in ConsumeCreditInput) (ConsumeCreditOutput, error) {
	return steps.ConsumeCredit(ctx, u.stateMachineDeps(), in)
}

func (u Usecases) GetCreditBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return steps.GetCreditBalance(ctx, u.deps.Credits, userID)
}

func (u Usecases) CheckGate(ctx context.Context, in CheckGateInput) (GateDecision, error) {
	return steps.CheckGate(ctx, u.gateDeps(), in)
}

func (u Usecases) AssembleContext(ctx context.Context, in AssembleContextInput) (ContextBundle, error) {
	return steps.AssembleContext(ctx, steps.AssembleContextDeps{
		Log:          u.deps.Log.With("service", "ContextAssembler"),
		Registry:     u.deps.Registry,
		Dependencies: u.deps.Dependencies,
		Workshops:    u.deps.Workshops,
		Summaries:    u.deps.Summaries,
		Canvas:       u.deps.Snapshots,
		Renderer:     u.deps.Renderer,
	}, in)
}

func (u Usecases) SaveArtifact(ctx context.Context, in SaveArtifactInput) (SaveArtifactOutput, error) {
	return steps.SaveArtifact(ctx, u.artifactDeps(), in)
}

func (u Usecases) SaveArtifactLatest(ctx context.Context, in SaveArtifactLatestInput) (SaveArtifactOutput, error) {
	return steps.SaveArtifactLatest(ctx, u.artifactDeps(), in)
}

func (u Usecases) LoadArtifact(ctx context.Context, in ArtifactRef) (*types.StageArtifact, error) {
	return steps.LoadArtifact(ctx, u.artifactDeps(), in)
}

func (u Usecases) AppendMessage(ctx context.Context, in AppendMessageInput) (*types.ConversationMessage, error) {
	return steps.AppendMessage(ctx, u.ingestDeps(), in)
}

func (u Usecases) ListMessages(ctx context.Context, in StageRef) ([]*types.ConversationMessage, error) {
	return steps.ListMessages(ctx, u.ingestDeps(), in)
}

func (u Usecases) ReplaceCanvas(ctx context.Context, in ReplaceCanvasInput) ([]*types.CanvasItem, error) {
	return steps.ReplaceCanvas(ctx, u.ingestDeps(), in)
}

func (u Usecases) ListCanvas(ctx context.Context, in StageRef) ([]*types.CanvasItem, error) {
	return steps.ListCanvas(ctx, u.ingestDeps(), in)
}
