package steps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/aggregates"
	"github.com/yungbote/workshop-backend/internal/data/repos"
	"github.com/yungbote/workshop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/lock"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
	"github.com/yungbote/workshop-backend/internal/platform/openai"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db  *gorm.DB
	log *logger.Logger
	reg *stages.Registry
	dep *stages.DependencyMap

	workshops repos.WorkshopRepo
	instances repos.StageInstanceRepo
	artifacts repos.ArtifactRepo
	summaries repos.StageSummaryRepo
	messages  repos.ConversationMessageRepo
	canvas    repos.CanvasItemRepo
	credits   repos.UserCreditRepo

	gen *fakeGenerator
	sm  StateMachineDeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	reg, dep := stages.MustDefault()
	env := &testEnv{
		db:        db,
		log:       log,
		reg:       reg,
		dep:       dep,
		workshops: repos.NewWorkshopRepo(db, log),
		instances: repos.NewStageInstanceRepo(db, log),
		artifacts: repos.NewArtifactRepo(db, log),
		summaries: repos.NewStageSummaryRepo(db, log),
		messages:  repos.NewConversationMessageRepo(db, log),
		canvas:    repos.NewCanvasItemRepo(db, log),
		credits:   repos.NewUserCreditRepo(db, log),
		gen:       &fakeGenerator{text: "- agreed on the clinic intake problem"},
	}
	agg := aggregates.NewWorkshopAggregate(aggregates.WorkshopAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log},
		Workshops: env.workshops,
		Stages:    env.instances,
		Artifacts: env.artifacts,
		Summaries: env.summaries,
		Messages:  env.messages,
		Canvas:    env.canvas,
		Credits:   env.credits,
	})
	env.sm = StateMachineDeps{
		Log:       log,
		Registry:  reg,
		Locker:    lock.NewLocal(lock.Options{Wait: time.Second}),
		Aggregate: agg,
		Workshops: env.workshops,
		Stages:    env.instances,
		Gate: GateDeps{
			Log: log,
			Config: GateConfig{
				Enabled:           true,
				StageID:           "user-research",
				GrandfatherCutoff: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			Workshops: env.workshops,
			Credits:   env.credits,
		},
		Summary: SummaryDeps{
			Log:         log,
			Generator:   env.gen,
			Transcripts: NewRepoTranscriptProvider(env.instances, env.messages),
			Summaries:   env.summaries,
			Timeout:     time.Second,
		},
		Now: func() time.Time { return testNow },
	}
	return env
}

func (e *testEnv) artifactDeps() ArtifactDeps {
	return ArtifactDeps{
		Log:       e.log,
		Workshops: e.workshops,
		Stages:    e.instances,
		Artifacts: e.artifacts,
		Aggregate: aggregates.NewArtifactAggregate(aggregates.ArtifactAggregateDeps{
			Base:      aggregates.BaseDeps{DB: e.db, Log: e.log},
			Artifacts: e.artifacts,
		}),
	}
}

func (e *testEnv) ingestDeps() IngestDeps {
	return IngestDeps{Workshops: e.workshops, Stages: e.instances, Messages: e.messages, Canvas: e.canvas}
}

func (e *testEnv) assembleDeps() AssembleContextDeps {
	return AssembleContextDeps{
		Registry:     e.reg,
		Dependencies: e.dep,
		Workshops:    e.workshops,
		Summaries:    e.summaries,
		Canvas:       NewRepoCanvasProvider(e.canvas),
	}
}

// create makes a workshop through the engine, stamped with testNow.
func (e *testEnv) create(t *testing.T, owner uuid.UUID) uuid.UUID {
	t.Helper()
	out, err := CreateWorkshop(context.Background(), e.sm, CreateWorkshopInput{UserID: owner, Title: "Clinic intake"})
	if err != nil {
		t.Fatalf("CreateWorkshop: %v", err)
	}
	return out.WorkshopID
}

func (e *testEnv) stage(t *testing.T, workshopID uuid.UUID, stageID string) *types.StageInstance {
	t.Helper()
	si, err := e.instances.GetByWorkshopAndStage(dbctx.Context{Ctx: context.Background()}, workshopID, stageID)
	if err != nil || si == nil {
		t.Fatalf("load stage %s: si=%v err=%v", stageID, si, err)
	}
	return si
}

// advanceTo walks the workshop from the first stage until stageID is in progress.
func (e *testEnv) advanceTo(t *testing.T, workshopID, owner uuid.UUID, stageID string) {
	t.Helper()
	ordered := e.reg.Ordered()
	for i := 0; i+1 < len(ordered) && ordered[i].ID != stageID; i++ {
		out, err := Advance(context.Background(), e.sm, AdvanceInput{
			WorkshopID:  workshopID,
			UserID:      owner,
			FromStageID: ordered[i].ID,
			ToStageID:   ordered[i+1].ID,
		})
		if err != nil {
			t.Fatalf("advance %s -> %s: %v", ordered[i].ID, ordered[i+1].ID, err)
		}
		if out.Blocked {
			t.Fatalf("advance %s -> %s: unexpectedly blocked (%s)", ordered[i].ID, ordered[i+1].ID, out.Gate.Reason)
		}
	}
}

type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, bundle ContextBundle) (string, openai.Usage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", openai.Usage{}, g.err
	}
	return g.text, openai.Usage{InputTokens: len(prompt) / 4, OutputTokens: 12}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var errSummaryStoreTouched = errors.New("summary store must not be queried")

// spySummaryStore records ListForStages calls and can fail them.
type spySummaryStore struct {
	repos.StageSummaryRepo
	mu      sync.Mutex
	listed  [][]string
	failAll error
}

func (s *spySummaryStore) ListForStages(dbc dbctx.Context, workshopID uuid.UUID, stageIDs []string, excludeStageID string) ([]*types.StageSummary, error) {
	s.mu.Lock()
	s.listed = append(s.listed, append([]string(nil), stageIDs...))
	fail := s.failAll
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.StageSummaryRepo.ListForStages(dbc, workshopID, stageIDs, excludeStageID)
}
