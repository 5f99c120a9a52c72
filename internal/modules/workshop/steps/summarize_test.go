package steps

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/data/repos/testutil"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/platform/openai"
)

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string, _ ContextBundle) (string, openai.Usage, error) {
	<-ctx.Done()
	return "", openai.Usage{}, ctx.Err()
}

type staticTranscripts []TranscriptTurn

func (s staticTranscripts) LoadTranscript(context.Context, uuid.UUID, string) ([]TranscriptTurn, error) {
	return s, nil
}

func TestGenerateSummaryTimeoutStoresFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, instances := testutil.SeedWorkshop(t, ctx, env.db, uuid.New(), testNow, nil)
	si := instances[1]

	deps := SummaryDeps{
		Generator:   blockingGenerator{},
		Transcripts: staticTranscripts{{Role: types.RoleUser, Text: "The nurses own scheduling."}},
		Summaries:   env.summaries,
		Timeout:     20 * time.Millisecond,
	}
	out := GenerateSummary(ctx, deps, GenerateSummaryInput{WorkshopID: si.WorkshopID, StageInstanceID: si.ID, StageID: si.StageID, StageName: "Stakeholder Mapping"})
	if !out.Fallback || !out.Persisted || out.GenerationErr == nil {
		t.Fatalf("outcome: want persisted fallback got=%+v", out)
	}
	if out.Text != FallbackSummary("Stakeholder Mapping") {
		t.Fatalf("fallback text: got=%q", out.Text)
	}
}

func TestGenerateSummaryFallbackSurvivesCallerCancel(t *testing.T) {
	env := newTestEnv(t)
	_, instances := testutil.SeedWorkshop(t, context.Background(), env.db, uuid.New(), testNow, nil)
	si := instances[0]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deps := SummaryDeps{
		Generator:   blockingGenerator{},
		Transcripts: staticTranscripts{{Role: types.RoleUser, Text: "Long queues."}},
		Summaries:   env.summaries,
	}
	out := GenerateSummary(ctx, deps, GenerateSummaryInput{WorkshopID: si.WorkshopID, StageInstanceID: si.ID, StageID: si.StageID, StageName: "Challenge"})
	if !out.Fallback || !out.Persisted {
		t.Fatalf("outcome: want persisted fallback after cancel got=%+v", out)
	}
	if n := testutil.CountRows(t, env.db, &types.StageSummary{}, "stage_instance_id = ? AND is_fallback = ?", si.ID, true); n != 1 {
		t.Fatalf("fallback rows: want=1 got=%d", n)
	}
}

func TestGenerateSummarySkipsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, instances := testutil.SeedWorkshop(t, ctx, env.db, uuid.New(), testNow, nil)
	si := instances[0]
	testutil.SeedSummary(t, ctx, env.db, si, "kept")

	gen := &fakeGenerator{text: "replacement"}
	out := GenerateSummary(ctx, SummaryDeps{Generator: gen, Transcripts: staticTranscripts{{Text: "x"}}, Summaries: env.summaries},
		GenerateSummaryInput{WorkshopID: si.WorkshopID, StageInstanceID: si.ID, StageID: si.StageID})
	if !out.Skipped || out.Persisted || gen.callCount() != 0 {
		t.Fatalf("want skipped without generation: out=%+v calls=%d", out, gen.callCount())
	}
}
