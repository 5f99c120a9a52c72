package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/workshop-backend/internal/data/repos"
	types "github.com/yungbote/workshop-backend/internal/domain"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

const (
	defaultSummaryTimeout  = 30 * time.Second
	defaultFallbackTimeout = 5 * time.Second
	defaultSummaryMaxWords = 150
)

var errEmptyTranscript = errors.New("empty transcript")

type SummaryDeps struct {
	Log         *logger.Logger
	Generator   TextGenerator
	Transcripts TranscriptProvider
	Summaries   repos.StageSummaryRepo

	// Timeout bounds the generation call.
	Timeout time.Duration
	// FallbackTimeout bounds the fallback write, which ignores caller cancellation.
	FallbackTimeout time.Duration
	MaxWords        int
}

type GenerateSummaryInput struct {
	WorkshopID      uuid.UUID
	StageInstanceID uuid.UUID
	StageID         string
	StageName       string
}

// SummaryOutcome reports what happened. Summary failures never surface as an
// error: callers inspect the outcome and carry on.
type SummaryOutcome struct {
	Text      string `json:"text,omitempty"`
	Fallback  bool   `json:"fallback"`
	Persisted bool   `json:"persisted"`
	// Skipped is true when a summary already existed for the stage instance.
	Skipped       bool  `json:"skipped"`
	GenerationErr error `json:"-"`
	PersistErr    error `json:"-"`
}

// FallbackSummary is the deterministic text stored when generation fails.
func FallbackSummary(stageName string) string {
	return fmt.Sprintf("Stage %s completed; detailed summary unavailable", strings.TrimSpace(stageName))
}

// GenerateSummary compresses a completed stage's transcript into its summary row.
// On generation failure it stores FallbackSummary so later stages always find a row.
func GenerateSummary(ctx context.Context, deps SummaryDeps, in GenerateSummaryInput) SummaryOutcome {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("workshop_id", in.WorkshopID, "stage_id", in.StageID)
	metrics := observability.Current()
	var out SummaryOutcome

	if deps.Summaries == nil || in.StageInstanceID == uuid.Nil {
		out.PersistErr = fmt.Errorf("summary store not configured or stage instance missing")
		log.Error("summary skipped", "error", out.PersistErr)
		metrics.IncSummaryOutcome("persist_failed")
		return out
	}
	stageName := strings.TrimSpace(in.StageName)
	if stageName == "" {
		stageName = in.StageID
	}

	ctx, span := observability.StartSpan(ctx, "workshop.summary.generate",
		attribute.String("workshop.id", in.WorkshopID.String()),
		attribute.String("workshop.stage", in.StageID),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("summary.fallback", out.Fallback), attribute.Bool("summary.persisted", out.Persisted))
		observability.EndSpan(span, out.PersistErr)
	}()

	exists, err := deps.Summaries.ExistsForStageInstance(dbctx.Context{Ctx: ctx}, in.StageInstanceID)
	if err == nil && exists {
		out.Skipped = true
		metrics.IncSummaryOutcome("skipped")
		return out
	}
	if err != nil {
		log.Warn("summary existence check failed; generating anyway", "error", err)
	}

	text, tokens, genErr := generateSummaryText(ctx, deps, in, stageName)
	row := &types.StageSummary{
		StageInstanceID: in.StageInstanceID,
		WorkshopID:      in.WorkshopID,
		StageID:         in.StageID,
	}
	writeCtx := ctx
	if genErr != nil {
		out.GenerationErr = genErr
		out.Fallback = true
		text = FallbackSummary(stageName)
		row.IsFallback = true
		log.Warn("summary generation failed; storing fallback", "error", genErr)

		// the fallback write must finish even when the caller's deadline is what failed generation
		fallbackTimeout := deps.FallbackTimeout
		if fallbackTimeout <= 0 {
			fallbackTimeout = defaultFallbackTimeout
		}
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
		defer cancel()
	} else if tokens > 0 {
		row.TokenCount = &tokens
	}
	row.Summary = text
	out.Text = text

	created, err := deps.Summaries.CreateIfAbsent(dbctx.Context{Ctx: writeCtx}, row)
	if err != nil {
		out.PersistErr = err
		log.Error("summary write failed; continuing without summary", "fallback", out.Fallback, "error", err)
		metrics.IncSummaryOutcome("persist_failed")
		return out
	}
	out.Persisted = created
	out.Skipped = !created
	switch {
	case !created:
		metrics.IncSummaryOutcome("skipped")
	case out.Fallback:
		metrics.IncSummaryOutcome("fallback")
	default:
		metrics.IncSummaryOutcome("generated")
	}
	return out
}

func generateSummaryText(ctx context.Context, deps SummaryDeps, in GenerateSummaryInput, stageName string) (string, int, error) {
	if deps.Generator == nil {
		return "", 0, fmt.Errorf("text generator not configured")
	}
	if deps.Transcripts == nil {
		return "", 0, fmt.Errorf("transcript provider not configured")
	}
	turns, err := deps.Transcripts.LoadTranscript(ctx, in.WorkshopID, in.StageID)
	if err != nil {
		return "", 0, fmt.Errorf("load transcript: %w", err)
	}
	transcript := renderTranscript(turns)
	if transcript == "" {
		return "", 0, errEmptyTranscript
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultSummaryTimeout
	}
	maxWords := deps.MaxWords
	if maxWords <= 0 {
		maxWords = defaultSummaryMaxWords
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, usage, err := deps.Generator.Generate(genCtx, summaryPrompt(stageName, maxWords, transcript), ContextBundle{
		WorkshopID: in.WorkshopID,
		StageID:    in.StageID,
		StageName:  stageName,
	})
	if err != nil {
		return "", 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, fmt.Errorf("generator returned empty summary")
	}
	return text, usage.OutputTokens, nil
}

func summaryPrompt(stageName string, maxWords int, transcript string) string {
	return fmt.Sprintf(`Summarize the %q stage of this workshop conversation as short bullet points.
Stay strictly factual: record decisions, named people, problems and ideas the participants stated.
Do not add suggestions. Use at most %d words.

Transcript:
%s`, stageName, maxWords, transcript)
}

func renderTranscript(turns []TranscriptTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		role := strings.TrimSpace(t.Role)
		if role == "" {
			role = types.RoleUser
		}
		lines = append(lines, role+": "+text)
	}
	return strings.Join(lines, "\n")
}
